package video

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/user/mediachunk/pkg/imaging"
	"github.com/user/mediachunk/pkg/media"
	"github.com/user/mediachunk/pkg/ports"
)

// frameIterator pulls decoded frames through a guard and emits the ones
// whose decode counter matches the next wanted number.
type frameIterator struct {
	ctx     context.Context
	guard   *decodeGuard
	path    string
	rotate  int
	want    numbers
	next    int
	counter int
	done    bool

	// onFrame observes every emitted frame.
	onFrame func(media.Frame)
}

func (it *frameIterator) Next() (media.Frame, error) {
	if it.done {
		return media.Frame{}, io.EOF
	}

	for {
		if err := it.ctx.Err(); err != nil {
			it.Close()
			return media.Frame{}, err
		}

		df, err := it.guard.stream.Next()
		if errors.Is(err, io.EOF) {
			it.guard.exhausted = true
			it.Close()
			return media.Frame{}, io.EOF
		}
		if err != nil {
			it.Close()
			return media.Frame{}, err
		}

		n := it.counter
		it.counter++
		if n != it.next {
			continue
		}

		img := df.Image
		if it.rotate != 0 {
			img = imaging.Rotate(img, 360-it.rotate)
		}
		f := media.Frame{Index: n, Path: it.path, Image: img, PTS: df.PTS}
		if it.onFrame != nil {
			it.onFrame(f)
		}

		next, ok := it.want()
		if !ok {
			it.Close()
		}
		it.next = next
		return f, nil
	}
}

// Close releases the decoder. It is safe to call more than once.
func (it *frameIterator) Close() error {
	it.done = true
	if it.guard == nil {
		return nil
	}
	return it.guard.Close()
}

// rotation returns the stream's rotate tag normalized to [0, 360).
func rotation(info ports.StreamInfo) int {
	v, ok := info.Metadata["rotate"]
	if !ok {
		return 0
	}
	deg, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return ((deg % 360) + 360) % 360
}
