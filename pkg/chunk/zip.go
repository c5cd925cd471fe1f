package chunk

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"github.com/user/mediachunk/pkg/adapters/logger"
	"github.com/user/mediachunk/pkg/imaging"
	"github.com/user/mediachunk/pkg/media"
	"github.com/user/mediachunk/pkg/pointcloud"
	"github.com/user/mediachunk/pkg/ports"
	"github.com/user/mediachunk/pkg/randomaccess"
)

const (
	imageExt      = "jpeg"
	pointCloudExt = "pcd"
)

// ZipWriter stores frames as they are. Rotated images and TIFFs are
// re-encoded so the rotation is baked into the pixels; point clouds are
// stored as PCD. It reports no frame sizes.
type ZipWriter struct {
	Dimension media.DimensionType
	Logger    ports.Logger
}

// NewZipWriter creates a ZipWriter for a dataset of the given dimension.
func NewZipWriter(dim media.DimensionType, log ports.Logger) *ZipWriter {
	return &ZipWriter{Dimension: dim, Logger: log}
}

// SaveAsChunk writes frames to a new zip archive at path.
func (w *ZipWriter) SaveAsChunk(ctx context.Context, frames randomaccess.Iterator[media.Frame], path string) ([]Size, error) {
	err := writeZip(ctx, frames, path, 0, func(f media.Frame) ([]byte, string, error) {
		if w.Dimension == media.Dim3D {
			data, ext, _, err := pointCloudEntry(f)
			return data, ext, err
		}
		return originalEntry(f)
	})
	if err != nil {
		return nil, err
	}
	logger.OrNoop(w.Logger).WithComponent("chunk").Debug("Wrote zip chunk %s", path)
	return []Size{}, nil
}

// CompressedZipWriter re-encodes every frame as JPEG and reports the size
// of each stored frame.
type CompressedZipWriter struct {
	// Quality is the JPEG quality from 0 to 100.
	Quality int

	// CompressFrames re-encodes images. When false, encoded bytes are stored
	// unchanged and only probed for their size.
	CompressFrames bool

	// ZipCompressLevel is the deflate level from 0 to 9; 0 stores entries.
	ZipCompressLevel int

	Dimension media.DimensionType
	Logger    ports.Logger
}

// NewCompressedZipWriter creates a writer that recompresses frames at quality.
func NewCompressedZipWriter(quality int, dim media.DimensionType, log ports.Logger) *CompressedZipWriter {
	return &CompressedZipWriter{Quality: quality, CompressFrames: true, Dimension: dim, Logger: log}
}

// SaveAsChunk writes frames to a new zip archive at path.
func (w *CompressedZipWriter) SaveAsChunk(ctx context.Context, frames randomaccess.Iterator[media.Frame], path string) ([]Size, error) {
	var sizes []Size
	err := writeZip(ctx, frames, path, w.ZipCompressLevel, func(f media.Frame) ([]byte, string, error) {
		if w.Dimension == media.Dim3D {
			data, ext, size, err := pointCloudEntry(f)
			sizes = append(sizes, size)
			return data, ext, err
		}
		data, size, err := w.imageEntry(f)
		sizes = append(sizes, size)
		return data, imageExt, err
	})
	if err != nil {
		return nil, err
	}
	logger.OrNoop(w.Logger).WithComponent("chunk").Debug("Wrote %d frames at quality %d to %s", len(sizes), w.Quality, path)
	return sizes, nil
}

func (w *CompressedZipWriter) imageEntry(f media.Frame) ([]byte, Size, error) {
	if !w.CompressFrames {
		data, err := f.Bytes()
		if err != nil {
			return nil, Size{}, err
		}
		width, height, err := imaging.DecodeSize(data)
		if err != nil {
			return nil, Size{}, fmt.Errorf("frame %d: %w", f.Index, err)
		}
		return data, Size{width, height}, nil
	}

	img := f.Image
	if img == nil {
		data, err := f.Bytes()
		if err != nil {
			return nil, Size{}, err
		}
		l, err := imaging.Load(data)
		if err != nil {
			return nil, Size{}, fmt.Errorf("frame %d: %w", f.Index, err)
		}
		img = l.Image
		if l.HasRotation() {
			img = imaging.ApplyOrientation(img, l.Orientation)
		}
	}

	width, height, data, err := imaging.CompressJPEG(img, w.Quality)
	if err != nil {
		return nil, Size{}, fmt.Errorf("frame %d: %w", f.Index, err)
	}
	return data, Size{width, height}, nil
}

// originalEntry returns the frame's stored bytes and extension, re-encoding
// only rotated images and TIFFs.
func originalEntry(f media.Frame) ([]byte, string, error) {
	if f.Image != nil {
		data, err := imaging.EncodeAs(f.Image, "jpeg")
		return data, imageExt, err
	}

	data, err := f.Bytes()
	if err != nil {
		return nil, "", err
	}
	ext := f.Ext()

	format := imaging.Format(data)
	if format != "tiff" && imaging.Orientation(data) <= 1 {
		return data, ext, nil
	}

	l, err := imaging.Load(data)
	if err != nil {
		return nil, "", fmt.Errorf("frame %d: %w", f.Index, err)
	}
	img := imaging.ApplyOrientation(l.Image, l.Orientation)
	out, err := imaging.EncodeAs(img, l.Format)
	if err != nil {
		return nil, "", fmt.Errorf("frame %d: %w", f.Index, err)
	}
	switch l.Format {
	case "jpeg", "png", "gif", "bmp", "tiff":
	default:
		ext = imageExt
	}
	return out, ext, nil
}

// pointCloudEntry returns the frame as PCD bytes. Legacy .bin point clouds
// are converted.
func pointCloudEntry(f media.Frame) ([]byte, string, Size, error) {
	data, err := f.Bytes()
	if err != nil {
		return nil, "", Size{}, err
	}
	if f.Ext() == "bin" {
		if data, err = pointcloud.BinToPCD(data); err != nil {
			return nil, "", Size{}, fmt.Errorf("frame %d: %w", f.Index, err)
		}
	}
	width, height, err := pointcloud.SizeOf(bytes.NewReader(data))
	if err != nil {
		return nil, "", Size{}, fmt.Errorf("frame %d: %w", f.Index, err)
	}
	return data, pointCloudExt, Size{width, height}, nil
}

type entryFunc func(f media.Frame) (data []byte, ext string, err error)

// writeZip stores each frame as {index:06d}.{ext} in a new archive at path.
// A level of 0 stores entries uncompressed.
func writeZip(ctx context.Context, frames randomaccess.Iterator[media.Frame], path string, level int, entry entryFunc) (err error) {
	defer frames.Close()

	st, err := stage(path)
	if err != nil {
		return err
	}
	out, err := os.OpenFile(st.tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create chunk: %w", err)
	}
	defer func() {
		if err != nil {
			out.Close()
			st.discard()
		}
	}()

	zw := zip.NewWriter(out)
	method := zip.Store
	if level > 0 {
		method = zip.Deflate
		zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(w, level)
		})
	}

	for idx := 0; ; idx++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		f, err := frames.Next()
		if errors.Is(err, io.EOF) {
			if idx == 0 {
				return ErrNoFrames
			}
			break
		}
		if err != nil {
			return err
		}

		data, ext, err := entry(f)
		if err != nil {
			return err
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: fmt.Sprintf("%06d.%s", idx, ext), Method: method})
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish zip: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close chunk: %w", err)
	}
	return st.commit()
}
