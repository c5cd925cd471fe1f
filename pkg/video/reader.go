// Package video decodes video sources into frame sequences.
package video

import (
	"context"
	"fmt"
	"image"
	"io"
	"strconv"
	"strings"

	"github.com/user/mediachunk/pkg/adapters/logger"
	"github.com/user/mediachunk/pkg/imaging"
	"github.com/user/mediachunk/pkg/media"
	"github.com/user/mediachunk/pkg/ports"
	"github.com/user/mediachunk/pkg/randomaccess"
)

// Options configures a Reader.
type Options struct {
	Start int

	// Stop is the last frame number, inclusive. Nil decodes to the end.
	Stop *int

	// Step values below 1 are treated as 1.
	Step int

	// Threaded lets the codec engine use its own threads. Decoding is
	// single-threaded by default.
	Threaded bool

	Logger ports.Logger
}

// Reader is a media.Sequence over the frames of a video. It holds no
// decoder between iterations: every iteration opens the container and
// releases it when the iteration ends or is closed.
type Reader struct {
	opener   ports.VideoOpener
	src      ports.VideoSource
	start    int
	stop     *int
	step     int
	threaded bool
	log      ports.Logger

	info       *ports.StreamInfo
	frameSize  *image.Point
	frameCount int
	duration   *float64
}

// NewReader creates a Reader over src.
func NewReader(opener ports.VideoOpener, src ports.VideoSource, opts Options) *Reader {
	step := opts.Step
	if step < 1 {
		step = 1
	}
	return &Reader{
		opener:     opener,
		src:        src,
		start:      opts.Start,
		stop:       opts.Stop,
		step:       step,
		threaded:   opts.Threaded,
		log:        logger.OrNoop(opts.Logger).WithComponent("video"),
		frameCount: -1,
	}
}

// Source returns the video source.
func (r *Reader) Source() ports.VideoSource { return r.src }

// IterateFrames decodes the video from the start and yields the frames
// selected by filter. Closing the iterator early releases the decoder.
func (r *Reader) IterateFrames(ctx context.Context, filter Filter) (randomaccess.Iterator[media.Frame], error) {
	var want numbers
	switch filter.mode {
	case filterConfigured:
		want = countFrom(r.start, r.step, r.stop)
	case filterAll:
		want = countFrom(0, 1, nil)
	default:
		want = fromSlice(filter.ids)
	}
	return r.iterate(ctx, want, 0, 0)
}

func (r *Reader) iterate(ctx context.Context, want numbers, seek int64, firstNumber int) (randomaccess.Iterator[media.Frame], error) {
	first, ok := want()
	if !ok {
		return randomaccess.NewSliceIterator[media.Frame](nil), nil
	}

	g, err := openGuard(ctx, r.opener, r.src, seek, r.threaded, r.log)
	if err != nil {
		return nil, err
	}
	info := g.container.Stream()
	r.info = &info

	return &frameIterator{
		ctx:     ctx,
		guard:   g,
		path:    r.src.Path,
		rotate:  rotation(info),
		want:    want,
		next:    first,
		counter: firstNumber,
		onFrame: r.observe,
	}, nil
}

func (r *Reader) observe(f media.Frame) {
	if r.frameSize == nil {
		b := f.Image.Bounds()
		r.frameSize = &image.Point{X: b.Dx(), Y: b.Dy()}
	}
}

// Iterate yields the configured frames.
func (r *Reader) Iterate() (randomaccess.Iterator[media.Frame], error) {
	return r.IterateFrames(context.Background(), Configured())
}

// Stream returns the stream description, opening the container once.
func (r *Reader) Stream(ctx context.Context) (ports.StreamInfo, error) {
	if r.info != nil {
		return *r.info, nil
	}
	c, err := r.opener.OpenVideo(ctx, r.src)
	if err != nil {
		return ports.StreamInfo{}, fmt.Errorf("open %s: %w", r.src.Name(), err)
	}
	info := c.Stream()
	if err := c.Close(); err != nil {
		r.log.Warn("Decoder cleanup failed: %v", err)
	}
	r.info = &info
	return info, nil
}

// ImageSize returns the size of the first configured frame. The index is
// ignored since every frame of a video has the same size.
func (r *Reader) ImageSize(int) (int, int, error) {
	if r.frameSize != nil {
		return r.frameSize.X, r.frameSize.Y, nil
	}

	it, err := r.Iterate()
	if err != nil {
		return 0, 0, err
	}
	defer it.Close()

	if _, err := it.Next(); err != nil {
		if err == io.EOF {
			return 0, 0, ErrNoFrames
		}
		return 0, 0, err
	}
	return r.frameSize.X, r.frameSize.Y, nil
}

// FrameCount returns the number of frames in the whole video, ignoring
// start, stop and step. Container frame counts are unreliable, so the
// first call decodes the entire stream; the result is memoized.
func (r *Reader) FrameCount(ctx context.Context) (int, error) {
	if r.frameCount >= 0 {
		return r.frameCount, nil
	}

	it, err := r.IterateFrames(ctx, AllFrames())
	if err != nil {
		return 0, err
	}
	defer it.Close()

	n := 0
	for {
		if _, err := it.Next(); err != nil {
			if err == io.EOF {
				break
			}
			return 0, err
		}
		n++
	}
	r.log.Debug("Counted %d frames in %s", n, r.src.Name())
	r.frameCount = n
	return n, nil
}

// Len returns the number of configured frames. It needs the total frame
// count and may decode the whole video once; an explicit stop past the
// last frame is clamped to it.
func (r *Reader) Len() int {
	n, err := r.FrameCount(context.Background())
	if err != nil {
		if r.stop == nil {
			r.log.Warn("Cannot count frames of %s: %v", r.src.Name(), err)
			return 0
		}
		r.log.Warn("Cannot count frames of %s, using stop %d: %v", r.src.Name(), *r.stop, err)
		n = *r.stop + 1
	}
	stop := n - 1
	if r.stop != nil {
		stop = min(*r.stop, n-1)
	}
	if stop < r.start {
		return 0
	}
	return (stop-r.start)/r.step + 1
}

// Duration returns the stream duration in time base units, or 0 when the
// container declares none.
func (r *Reader) Duration(ctx context.Context) (float64, error) {
	if r.duration != nil {
		return *r.duration, nil
	}
	info, err := r.Stream(ctx)
	if err != nil {
		return 0, err
	}
	d := streamDuration(info)
	r.duration = &d
	return d, nil
}

func streamDuration(info ports.StreamInfo) float64 {
	if info.Duration > 0 {
		return float64(info.Duration)
	}
	s, ok := info.Metadata["DURATION"]
	if !ok || info.TimeBase.Den == 0 {
		return 0
	}
	sec, err := parseClock(s)
	if err != nil {
		return 0
	}
	return sec * float64(info.TimeBase.Den)
}

// parseClock parses "HH:MM:SS.fffffffff" into seconds.
func parseClock(s string) (float64, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("malformed duration %q", s)
	}
	var total float64
	for _, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return 0, fmt.Errorf("malformed duration %q: %w", s, err)
		}
		total = total*60 + v
	}
	return total, nil
}

// Progress returns pos divided by the stream duration, or 0 when the
// duration is unknown.
func (r *Reader) Progress(pos int) float64 {
	d, err := r.Duration(context.Background())
	if err != nil || d == 0 {
		return 0
	}
	return float64(pos) / d
}

// Preview seeks near frame and returns a thumbnail of the first frame
// decoded after the seek.
func (r *Reader) Preview(frame int) (image.Image, error) {
	ctx := context.Background()
	info, err := r.Stream(ctx)
	if err != nil {
		return nil, err
	}

	var seek int64
	if rate := info.GuessedRate.Float(); rate > 0 {
		seek = int64(float64(frame) / rate * float64(info.TimeBase.Den))
	}

	it, err := r.iterate(ctx, countFrom(0, 1, nil), seek, 0)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	f, err := it.Next()
	if err != nil {
		if err == io.EOF {
			return nil, ErrNoFrames
		}
		return nil, err
	}
	return imaging.PreviewImage(f.Image, 1), nil
}

// Close is a no-op: decoders are released by their iterators.
func (r *Reader) Close() error {
	return nil
}

var _ media.Sequence = (*Reader)(nil)

// Iterable returns a restartable source of the frames selected by filter,
// suitable for randomaccess.New and randomaccess.NewCaching.
func (r *Reader) Iterable(ctx context.Context, filter Filter) randomaccess.Iterable[media.Frame] {
	return randomaccess.IterableFunc[media.Frame](func() (randomaccess.Iterator[media.Frame], error) {
		return r.IterateFrames(ctx, filter)
	})
}
