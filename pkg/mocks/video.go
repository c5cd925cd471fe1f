package mocks

import (
	"context"
	"image"
	"image/color"
	"io"
	"sync"

	"github.com/user/mediachunk/pkg/ports"
)

// VideoOpener is a mock implementation of ports.VideoOpener serving a fixed
// list of frames.
type VideoOpener struct {
	Info   ports.StreamInfo
	Frames []ports.DecodedFrame

	OpenFunc func(ctx context.Context, src ports.VideoSource) error

	// FailAfter makes every stream return FailErr once it has produced that
	// many frames. Zero disables the failure.
	FailAfter int
	FailErr   error

	mu         sync.Mutex
	Sources    []ports.VideoSource
	Containers []*VideoContainer
}

// NewVideoOpener creates an opener with n frames of width x height. Frame i
// is filled with color {i, i, i} and has PTS i*ptsStep.
func NewVideoOpener(n, width, height int, timeBase ports.Rational, ptsStep int64) *VideoOpener {
	frames := make([]ports.DecodedFrame, n)
	for i := range frames {
		img := image.NewRGBA(image.Rect(0, 0, width, height))
		c := color.RGBA{R: uint8(i), G: uint8(i), B: uint8(i), A: 255}
		for p := 0; p < len(img.Pix); p += 4 {
			img.Pix[p], img.Pix[p+1], img.Pix[p+2], img.Pix[p+3] = c.R, c.G, c.B, c.A
		}
		frames[i] = ports.DecodedFrame{Image: img, PTS: int64(i) * ptsStep}
	}

	rate := ports.Rational{Num: 25, Den: 1}
	return &VideoOpener{
		Info: ports.StreamInfo{
			Width:          width,
			Height:         height,
			TimeBase:       timeBase,
			GuessedRate:    rate,
			Metadata:       map[string]string{},
			DeclaredFrames: n,
		},
		Frames: frames,
	}
}

// FrameIndex recovers the index of a frame produced by NewVideoOpener.
func FrameIndex(img image.Image) int {
	r, _, _, _ := img.At(img.Bounds().Min.X, img.Bounds().Min.Y).RGBA()
	return int(r >> 8)
}

func (m *VideoOpener) OpenVideo(ctx context.Context, src ports.VideoSource) (ports.VideoContainer, error) {
	if m.OpenFunc != nil {
		if err := m.OpenFunc(ctx, src); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := &VideoContainer{opener: m}
	m.Sources = append(m.Sources, src)
	m.Containers = append(m.Containers, c)
	return c, nil
}

// Last returns the most recently opened container.
func (m *VideoOpener) Last() *VideoContainer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Containers) == 0 {
		return nil
	}
	return m.Containers[len(m.Containers)-1]
}

// OpenCount returns the number of OpenVideo calls.
func (m *VideoOpener) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Containers)
}

// AllClosed reports whether every container and stream handed out was closed.
func (m *VideoOpener) AllClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.Containers {
		if c.CloseCalls == 0 {
			return false
		}
		for _, s := range c.Streams {
			if s.CloseCalls == 0 {
				return false
			}
		}
	}
	return true
}

// VideoContainer is a mock implementation of ports.VideoContainer.
type VideoContainer struct {
	opener *VideoOpener
	start  int

	// Recorded calls for verification
	SeekCalls    []int64
	DecodeCalls  []ports.DecodeOptions
	Streams      []*FrameStream
	CloseCalls   int
	ClosedStream bool
}

func (c *VideoContainer) Stream() ports.StreamInfo {
	return c.opener.Info
}

// Seek positions decoding on the last frame whose PTS is at or before pts.
func (c *VideoContainer) Seek(pts int64) error {
	c.SeekCalls = append(c.SeekCalls, pts)
	c.start = 0
	for i, f := range c.opener.Frames {
		if f.PTS <= pts {
			c.start = i
		}
	}
	return nil
}

func (c *VideoContainer) Decode(opts ports.DecodeOptions) (ports.FrameStream, error) {
	c.DecodeCalls = append(c.DecodeCalls, opts)
	s := &FrameStream{
		frames:    c.opener.Frames[c.start:],
		failAfter: c.opener.FailAfter,
		failErr:   c.opener.FailErr,
	}
	c.Streams = append(c.Streams, s)
	return s, nil
}

func (c *VideoContainer) Close() error {
	c.CloseCalls++
	if len(c.Streams) > 0 {
		c.ClosedStream = c.Streams[len(c.Streams)-1].CloseCalls > 0
	}
	return nil
}

// FrameStream is a mock implementation of ports.FrameStream.
type FrameStream struct {
	frames    []ports.DecodedFrame
	pos       int
	failAfter int
	failErr   error
	drained   bool

	// Recorded calls for verification
	NextCalls  int
	DrainCalls int
	CloseCalls int
}

func (s *FrameStream) Next() (ports.DecodedFrame, error) {
	s.NextCalls++
	if s.drained {
		return ports.DecodedFrame{}, io.EOF
	}
	if s.failAfter > 0 && s.pos >= s.failAfter {
		return ports.DecodedFrame{}, s.failErr
	}
	if s.pos >= len(s.frames) {
		return ports.DecodedFrame{}, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

func (s *FrameStream) Drain() error {
	s.DrainCalls++
	s.drained = true
	return nil
}

func (s *FrameStream) Close() error {
	s.CloseCalls++
	return nil
}

// Decoded returns the number of frames the stream produced before it was
// drained or closed.
func (s *FrameStream) Decoded() int {
	return s.pos
}

var (
	_ ports.VideoOpener    = (*VideoOpener)(nil)
	_ ports.VideoContainer = (*VideoContainer)(nil)
	_ ports.FrameStream    = (*FrameStream)(nil)
)
