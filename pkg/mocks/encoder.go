package mocks

import (
	"image"
	"os"

	"github.com/user/mediachunk/pkg/ports"
)

// ChunkEncoder is a mock implementation of ports.ChunkEncoder. Unless
// BeginFunc is set, Begin creates an empty file at the output path so
// callers can observe where output was written.
type ChunkEncoder struct {
	BeginFunc       func(path string, width, height, fps int, opts ports.EncoderOptions) error
	EncodeFrameFunc func(img image.Image) error
	EndFunc         func() error

	// Recorded calls for verification
	BeginCalled bool
	Path        string
	Width       int
	Height      int
	FPS         int
	Options     ports.EncoderOptions
	Frames      []image.Rectangle
	EndCalled   bool
	Aborted     bool
}

func (m *ChunkEncoder) Begin(path string, width, height int, fps int, opts ports.EncoderOptions) error {
	m.BeginCalled = true
	m.Path, m.Width, m.Height, m.FPS, m.Options = path, width, height, fps, opts
	if m.BeginFunc != nil {
		return m.BeginFunc(path, width, height, fps, opts)
	}
	return os.WriteFile(path, nil, 0o644)
}

func (m *ChunkEncoder) EncodeFrame(img image.Image) error {
	m.Frames = append(m.Frames, img.Bounds())
	if m.EncodeFrameFunc != nil {
		return m.EncodeFrameFunc(img)
	}
	return nil
}

func (m *ChunkEncoder) End() error {
	m.EndCalled = true
	if m.EndFunc != nil {
		return m.EndFunc()
	}
	return nil
}

func (m *ChunkEncoder) Abort() {
	m.Aborted = true
	if m.Path != "" {
		os.Remove(m.Path)
	}
}

// CodecProber is a mock implementation of ports.CodecProber.
type CodecProber struct {
	Encoders map[string]bool
}

func (p CodecProber) HasEncoder(name string) bool {
	return p.Encoders[name]
}

var (
	_ ports.ChunkEncoder = (*ChunkEncoder)(nil)
	_ ports.CodecProber  = CodecProber{}
)
