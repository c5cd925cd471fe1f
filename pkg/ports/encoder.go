package ports

import (
	"image"
)

// ChunkEncoder writes a sequence of frames into a video file.
type ChunkEncoder interface {
	// Begin creates the output at path with the given stream geometry.
	Begin(path string, width, height int, fps int, opts EncoderOptions) error

	// EncodeFrame pushes one frame. Its timestamp is assigned by the encoder.
	EncodeFrame(img image.Image) error

	// End flushes the encoder and closes the output.
	End() error

	// Abort stops encoding and releases resources without finishing the output.
	Abort()
}

// EncoderOptions configures a chunk encoder.
type EncoderOptions struct {
	// Codec is the encoder name, e.g. "libopenh264" or "libx264".
	Codec string

	// Params are codec private options passed through to the encoder.
	Params map[string]string

	// PixelFormat is the output pixel format, "yuv420p" when empty.
	PixelFormat string
}

// CodecProber reports which video encoders the runtime provides.
type CodecProber interface {
	HasEncoder(name string) bool
}
