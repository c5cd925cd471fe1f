package ffmpeg

import "errors"

var (
	// ErrFFmpegNotFound is returned when no ffmpeg executable can be located.
	ErrFFmpegNotFound = errors.New("ffmpeg: ffmpeg not found")

	// ErrFFprobeNotFound is returned when no ffprobe executable can be located.
	ErrFFprobeNotFound = errors.New("ffmpeg: ffprobe not found")

	// ErrNoVideoStream is returned when a container has no video stream.
	ErrNoVideoStream = errors.New("ffmpeg: no video stream")

	// ErrNoEncoderAvailable is returned when none of the candidate encoders is built into ffmpeg.
	ErrNoEncoderAvailable = errors.New("ffmpeg: no suitable video encoder available")

	// ErrNotInitialized is returned when encoder methods are called before Begin.
	ErrNotInitialized = errors.New("ffmpeg: encoder not initialized")

	// ErrTruncatedFrame is returned when the decoder output ends inside a frame.
	ErrTruncatedFrame = errors.New("ffmpeg: truncated frame in decoder output")
)
