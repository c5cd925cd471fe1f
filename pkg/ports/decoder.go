package ports

import (
	"context"
	"image"
	"io"
)

// VideoSource identifies a video either by file path or by an in-memory
// buffer. Exactly one of Path and Buffer is set.
type VideoSource struct {
	Path   string
	Buffer io.ReadSeeker
}

// Name returns a printable identifier for the source.
func (s VideoSource) Name() string {
	if s.Path != "" {
		return s.Path
	}
	return "<buffer>"
}

// Rational is a numerator/denominator pair such as a stream time base.
type Rational struct {
	Num int
	Den int
}

// Float returns the value of the rational, or 0 when the denominator is 0.
func (r Rational) Float() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// StreamInfo describes the first video stream of a container.
type StreamInfo struct {
	Width  int
	Height int

	// TimeBase is the unit of PTS and Duration values.
	TimeBase Rational

	// GuessedRate is the best-effort frame rate of the stream.
	GuessedRate Rational

	// Duration is the stream duration in TimeBase units, 0 when unknown.
	Duration int64

	// Metadata holds stream tags such as "rotate" and "DURATION".
	Metadata map[string]string

	// DeclaredFrames is the frame count claimed by the container. It is
	// frequently wrong and is never used as the total frame count.
	DeclaredFrames int
}

// DecodedFrame is one frame produced by a FrameStream.
type DecodedFrame struct {
	Image image.Image
	PTS   int64
}

// DecodeOptions configures a decode pass.
type DecodeOptions struct {
	// Threaded lets the codec engine use its own internal threads.
	Threaded bool
}

// FrameStream yields decoded frames in decode order.
type FrameStream interface {
	// Next returns the next decoded frame, or io.EOF at end of stream.
	Next() (DecodedFrame, error)

	// Drain consumes every remaining packet without decoding it. It is the
	// safety net run when a consumer abandons the stream early.
	Drain() error

	// Close releases the stream. It is idempotent.
	Close() error
}

// VideoContainer is an opened media container positioned on its first
// video stream.
type VideoContainer interface {
	// Stream describes the video stream.
	Stream() StreamInfo

	// Seek positions the next Decode call at the keyframe at or before pts.
	Seek(pts int64) error

	// Decode starts demuxing and decoding from the current position.
	Decode(opts DecodeOptions) (FrameStream, error)

	// Close closes every open codec context and then the container. It is idempotent.
	Close() error
}

// VideoOpener opens video containers.
type VideoOpener interface {
	OpenVideo(ctx context.Context, src VideoSource) (VideoContainer, error)
}
