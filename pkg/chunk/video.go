package chunk

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"strconv"

	"github.com/user/mediachunk/pkg/adapters/logger"
	"github.com/user/mediachunk/pkg/imaging"
	"github.com/user/mediachunk/pkg/media"
	"github.com/user/mediachunk/pkg/ports"
	"github.com/user/mediachunk/pkg/randomaccess"
)

const (
	// MaxMacroblocksPerFrame is the libopenh264 level limit. Frames with
	// more than MaxMacroblocksPerFrame<<8 pixels are rejected for every codec.
	MaxMacroblocksPerFrame = 36864

	// OutputFPS is the frame rate of every video chunk.
	OutputFPS = 25

	// CompressedMaxHeight bounds the height of compressed video chunks.
	CompressedMaxHeight = 1080

	CodecOpenH264 = "libopenh264"
	CodecX264     = "libx264"
)

// MapQuality translates a 1 to 100 quality, higher is better, to the 0 to
// 51 quantizer scale of H.264 encoders.
func MapQuality(quality int) int {
	return int(math.Round(51 * float64(100-quality) / 99))
}

// EvenSize rounds width and height up to even values as yuv420p requires.
func EvenSize(width, height int) (int, int) {
	return width + width%2, height + height%2
}

// CodecOptions returns the encoder options for codec at quantizer q.
func CodecOptions(codec string, q int, compressed bool) map[string]string {
	qs := strconv.Itoa(q)
	switch {
	case codec == CodecOpenH264:
		return map[string]string{
			"profile:v": "constrained_baseline",
			"qmin":      qs,
			"qmax":      qs,
			"rc_mode":   "buffer",
		}
	case compressed:
		return map[string]string{
			"profile:v": "baseline",
			"coder":     "0",
			"crf":       qs,
			"wpredp":    "0",
			"flags":     "-loop",
		}
	default:
		return map[string]string{
			"crf":    qs,
			"preset": "ultrafast",
		}
	}
}

// VideoWriter encodes frames into an MP4 chunk with libopenh264, falling
// back to libx264 when libopenh264 is unavailable. It reports the size of
// the first input frame for the whole chunk.
type VideoWriter struct {
	newEncoder func() ports.ChunkEncoder
	prober     ports.CodecProber
	quantizer  int
	compressed bool
	log        ports.Logger
}

// NewVideoWriter creates a writer at quality 1 to 100.
func NewVideoWriter(newEncoder func() ports.ChunkEncoder, prober ports.CodecProber, quality int, log ports.Logger) *VideoWriter {
	return &VideoWriter{
		newEncoder: newEncoder,
		prober:     prober,
		quantizer:  MapQuality(quality),
		log:        logger.OrNoop(log).WithComponent("chunk"),
	}
}

// NewCompressedVideoWriter creates a writer that also halves frames until
// they are under CompressedMaxHeight pixels tall.
func NewCompressedVideoWriter(newEncoder func() ports.ChunkEncoder, prober ports.CodecProber, quality int, log ports.Logger) *VideoWriter {
	w := NewVideoWriter(newEncoder, prober, quality, log)
	w.compressed = true
	return w
}

// Codec returns the encoder the writer will use.
func (w *VideoWriter) Codec() (string, error) {
	for _, c := range []string{CodecOpenH264, CodecX264} {
		if w.prober.HasEncoder(c) {
			return c, nil
		}
	}
	return "", ErrNoEncoderAvailable
}

// SaveAsChunk encodes frames into a new MP4 at path.
func (w *VideoWriter) SaveAsChunk(ctx context.Context, frames randomaccess.Iterator[media.Frame], path string) ([]Size, error) {
	defer frames.Close()

	first, err := frames.Next()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoFrames
	}
	if err != nil {
		return nil, err
	}
	img, err := first.Decode()
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", first.Index, err)
	}
	in := img.Bounds()
	inW, inH := in.Dx(), in.Dy()

	outW, outH := inW, inH
	if w.compressed {
		for outH >= CompressedMaxHeight && outH > 1 {
			outW, outH = max(1, outW/2), outH/2
		}
	}
	outW, outH = EvenSize(outW, outH)
	if limit := MaxMacroblocksPerFrame << 8; outW*outH > limit {
		return nil, &ResolutionError{Width: outW, Height: outH, Limit: limit}
	}

	codec, err := w.Codec()
	if err != nil {
		return nil, err
	}
	st, err := stage(path)
	if err != nil {
		return nil, err
	}

	enc := w.newEncoder()
	opts := ports.EncoderOptions{
		Codec:       codec,
		Params:      CodecOptions(codec, w.quantizer, w.compressed),
		PixelFormat: "yuv420p",
	}
	if err := enc.Begin(st.tmp, outW, outH, OutputFPS, opts); err != nil {
		st.discard()
		return nil, fmt.Errorf("start encoder: %w", err)
	}

	n, err := w.encode(ctx, enc, img, frames)
	if err != nil {
		enc.Abort()
		st.discard()
		return nil, err
	}
	if err := enc.End(); err != nil {
		enc.Abort()
		st.discard()
		return nil, fmt.Errorf("finish encoder: %w", err)
	}
	if err := st.commit(); err != nil {
		return nil, err
	}

	w.log.Debug("Encoded %d frames at %dx%d with %s to %s", n, outW, outH, codec, path)
	return []Size{{Width: inW, Height: inH}}, nil
}

func (w *VideoWriter) encode(ctx context.Context, enc ports.ChunkEncoder, first image.Image, frames randomaccess.Iterator[media.Frame]) (int, error) {
	img := first
	n := 0
	for {
		if w.compressed {
			img = imaging.Downscale(img, CompressedMaxHeight)
		}
		if err := enc.EncodeFrame(img); err != nil {
			return n, fmt.Errorf("encode frame %d: %w", n, err)
		}
		n++

		if err := ctx.Err(); err != nil {
			return n, err
		}
		f, err := frames.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if img, err = f.Decode(); err != nil {
			return n, fmt.Errorf("frame %d: %w", f.Index, err)
		}
	}
}
