package chunk

import (
	"errors"
	"fmt"
)

var (
	// ErrNoFrames is returned when a writer is given an empty frame sequence.
	ErrNoFrames = errors.New("chunk: no frames to encode")

	// ErrUnsupportedResolution is returned when a frame exceeds the encoder's pixel ceiling.
	ErrUnsupportedResolution = errors.New("chunk: unsupported video resolution")

	// ErrChunkExists is returned when the destination path is already taken.
	ErrChunkExists = errors.New("chunk: destination already exists")

	// ErrNoEncoderAvailable is returned when neither supported H.264 encoder is available.
	ErrNoEncoderAvailable = errors.New("chunk: no H.264 encoder available")
)

// ResolutionError reports a frame size the video encoder cannot handle.
type ResolutionError struct {
	Width  int
	Height int
	Limit  int
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("the video codec being used does not support %dx%d frames (%d pixels, limit %d)",
		e.Width, e.Height, e.Width*e.Height, e.Limit)
}

func (e *ResolutionError) Unwrap() error {
	return ErrUnsupportedResolution
}
