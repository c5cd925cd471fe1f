// Package chunk packages frame sequences into storage chunks: zip archives
// of original or recompressed images, or short H.264 videos.
package chunk

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/user/mediachunk/pkg/media"
	"github.com/user/mediachunk/pkg/randomaccess"
)

// Size is the width and height of a stored frame.
type Size struct {
	Width  int
	Height int
}

// Writer stores a frame sequence at path. SaveAsChunk consumes and closes
// frames. On error nothing is left at path.
type Writer interface {
	SaveAsChunk(ctx context.Context, frames randomaccess.Iterator[media.Frame], path string) ([]Size, error)
}

// FrameQuality selects between the compressed and original chunk of a segment.
type FrameQuality int

const (
	Compressed FrameQuality = 0
	Original   FrameQuality = 100
)

func (q FrameQuality) String() string {
	if q == Original {
		return "original"
	}
	return "compressed"
}

// ParseFrameQuality parses "compressed" or "original".
func ParseFrameQuality(s string) (FrameQuality, error) {
	switch s {
	case "compressed":
		return Compressed, nil
	case "original":
		return Original, nil
	}
	return 0, fmt.Errorf("unknown frame quality: %s", s)
}

// staging is an output file written under a temporary name and moved to
// its destination only once complete.
type staging struct {
	path string
	tmp  string
}

func stage(path string) (*staging, error) {
	if _, err := os.Lstat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrChunkExists, path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	dir, base := filepath.Split(path)
	return &staging{
		path: path,
		tmp:  filepath.Join(dir, "."+base+"."+uuid.NewString()+".tmp"),
	}, nil
}

// commit moves the temporary file into place without replacing an
// existing destination.
func (s *staging) commit() error {
	if err := os.Link(s.tmp, s.path); err != nil {
		if errors.Is(err, os.ErrExist) {
			s.discard()
			return fmt.Errorf("%w: %s", ErrChunkExists, s.path)
		}
		if err := os.Rename(s.tmp, s.path); err != nil {
			s.discard()
			return fmt.Errorf("move chunk into place: %w", err)
		}
		return nil
	}
	return os.Remove(s.tmp)
}

func (s *staging) discard() {
	os.Remove(s.tmp)
}
