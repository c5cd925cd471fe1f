package video

import (
	"context"
	"fmt"
	"sync"

	"github.com/user/mediachunk/pkg/ports"
)

// decodeGuard owns a container and its frame stream for one iteration.
// Close runs the release sequence exactly once: drain the stream unless it
// reached end of stream, close the stream, then close the container.
type decodeGuard struct {
	container ports.VideoContainer
	stream    ports.FrameStream
	log       ports.Logger

	once      sync.Once
	exhausted bool
	err       error
}

// openGuard opens src, optionally seeks to pts and starts decoding. Any
// resource acquired before a failure is released.
func openGuard(ctx context.Context, opener ports.VideoOpener, src ports.VideoSource, seek int64, threaded bool, log ports.Logger) (*decodeGuard, error) {
	c, err := opener.OpenVideo(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", src.Name(), err)
	}
	g := &decodeGuard{container: c, log: log}

	if seek > 0 {
		if err := c.Seek(seek); err != nil {
			g.Close()
			return nil, fmt.Errorf("seek to %d: %w", seek, err)
		}
	}

	s, err := c.Decode(ports.DecodeOptions{Threaded: threaded})
	if err != nil {
		g.Close()
		return nil, fmt.Errorf("decode %s: %w", src.Name(), err)
	}
	g.stream = s
	return g, nil
}

// Close releases the stream and the container. Faults while draining or
// closing the stream are logged, only a container close failure is returned.
func (g *decodeGuard) Close() error {
	g.once.Do(func() {
		if g.stream != nil {
			if !g.exhausted {
				if err := g.stream.Drain(); err != nil {
					g.log.Warn("Decoder cleanup failed: %v", fmt.Errorf("%w: drain: %v", ErrDecodeResourceFault, err))
				}
			}
			if err := g.stream.Close(); err != nil {
				g.log.Warn("Decoder cleanup failed: %v", fmt.Errorf("%w: close stream: %v", ErrDecodeResourceFault, err))
			}
		}
		if err := g.container.Close(); err != nil {
			g.err = fmt.Errorf("close container: %w", err)
		}
	})
	return g.err
}
