package ffmpeg

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os"
	"os/exec"
	"sort"
	"sync"

	"github.com/user/mediachunk/pkg/adapters/logger"
	"github.com/user/mediachunk/pkg/ports"
)

// Encoder encodes frames into an MP4 file with an ffmpeg subprocess reading
// raw RGBA frames from stdin. The encoder assigns timestamps from the frame
// rate, so input frames carry no timing.
type Encoder struct {
	// FFmpegPath overrides executable discovery when set.
	FFmpegPath string

	Logger ports.Logger

	mu         sync.Mutex
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	stderr     bytes.Buffer
	canvas     *image.RGBA
	path       string
	frameCount int
	closed     bool
}

// NewEncoder creates an ffmpeg-based chunk encoder.
func NewEncoder(log ports.Logger) *Encoder {
	return &Encoder{Logger: log}
}

func encodeArgs(path string, width, height, fps int, opts ports.EncoderOptions) []string {
	pixFmt := opts.PixelFormat
	if pixFmt == "" {
		pixFmt = "yuv420p"
	}
	args := []string{
		"-hide_banner", "-nostdin",
		"-loglevel", "error",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-r", fmt.Sprintf("%d", fps),
		"-i", "pipe:0",
		"-c:v", opts.Codec,
		"-pix_fmt", pixFmt,
	}

	keys := make([]string, 0, len(opts.Params))
	for k := range opts.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-"+k, opts.Params[k])
	}

	return append(args, "-movflags", "+faststart", "-f", "mp4", path)
}

// Begin starts ffmpeg writing to path. The output file must not exist.
func (e *Encoder) Begin(path string, width, height, fps int, opts ports.EncoderOptions) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if opts.Codec == "" {
		return fmt.Errorf("%w: no codec selected", ErrNoEncoderAvailable)
	}
	ffmpegPath := e.FFmpegPath
	if ffmpegPath == "" {
		p, err := FindFFmpeg()
		if err != nil {
			return err
		}
		ffmpegPath = p
	}

	e.path = path
	e.frameCount = 0
	e.closed = false
	e.stderr.Reset()
	e.canvas = image.NewRGBA(image.Rect(0, 0, width, height))

	e.cmd = exec.Command(ffmpegPath, encodeArgs(path, width, height, fps, opts)...)
	e.cmd.Stderr = &e.stderr

	stdin, err := e.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to get stdin pipe: %w", err)
	}
	e.stdin = stdin

	if err := e.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	logger.OrNoop(e.Logger).WithComponent("ffmpeg").Debug("Encoding %dx%d at %d fps with %s", width, height, fps, opts.Codec)
	return nil
}

// EncodeFrame writes one frame. Frames smaller than the output are padded
// with black at the right and bottom edges.
func (e *Encoder) EncodeFrame(img image.Image) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stdin == nil || e.closed {
		return ErrNotInitialized
	}

	draw.Draw(e.canvas, e.canvas.Bounds(), image.Black, image.Point{}, draw.Src)
	draw.Draw(e.canvas, e.canvas.Bounds(), img, img.Bounds().Min, draw.Src)

	if _, err := e.stdin.Write(e.canvas.Pix); err != nil {
		return fmt.Errorf("failed to write frame: %w\nstderr: %s", err, e.stderr.String())
	}
	e.frameCount++
	return nil
}

// End flushes the encoder and waits for the output to be finalized.
func (e *Encoder) End() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stdin == nil || e.closed {
		return ErrNotInitialized
	}

	e.stdin.Close()
	e.stdin = nil
	e.closed = true

	if err := e.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg encoding failed: %w\nstderr: %s", err, e.stderr.String())
	}
	return nil
}

// Abort kills ffmpeg and removes the partial output.
func (e *Encoder) Abort() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	if e.stdin != nil {
		e.stdin.Close()
		e.stdin = nil
	}
	if e.cmd != nil && e.cmd.Process != nil {
		e.cmd.Process.Kill()
		e.cmd.Wait()
	}
	if e.path != "" {
		os.Remove(e.path)
	}
	e.closed = true
}

// FrameCount returns the number of frames written since Begin.
func (e *Encoder) FrameCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frameCount
}

var _ ports.ChunkEncoder = (*Encoder)(nil)

// Factory returns a function producing a fresh Encoder per chunk.
func Factory(ffmpegPath string, log ports.Logger) func() ports.ChunkEncoder {
	return func() ports.ChunkEncoder {
		return &Encoder{FFmpegPath: ffmpegPath, Logger: log}
	}
}
