package ingest

import (
	"context"
	"fmt"
	"io"

	"github.com/user/mediachunk/pkg/chunk"
	"github.com/user/mediachunk/pkg/media"
	"github.com/user/mediachunk/pkg/pointcloud"
	"github.com/user/mediachunk/pkg/randomaccess"
	"github.com/user/mediachunk/pkg/video"
)

// Dataset is an opened set of inputs ready to be cut into chunks.
type Dataset struct {
	Category  media.Category
	Mode      media.Mode
	Dimension media.DimensionType

	// Sequence reads the dataset's frames. It is Images or Video.
	Sequence media.Sequence
	Images   *media.ImageReader
	Video    *video.Reader

	// Keyframes is set for videos opened with a keyframe manifest.
	Keyframes *video.ManifestReader

	// Validation is the point-cloud scan result for 3D datasets.
	Validation *pointcloud.Result

	cacheSettings CacheSettings
	cache         *randomaccess.Caching[media.Frame]
	start, step   int
}

// Len returns the number of frames in the dataset.
func (d *Dataset) Len() int {
	return d.Sequence.Len()
}

// ChunkIDs splits the dataset into consecutive position ranges of size
// frames each. The last range may be shorter.
func (d *Dataset) ChunkIDs(size int) [][]int {
	if size < 1 {
		size = 1
	}
	n := d.Len()
	var chunks [][]int
	for first := 0; first < n; first += size {
		last := min(first+size, n)
		ids := make([]int, 0, last-first)
		for i := first; i < last; i++ {
			ids = append(ids, i)
		}
		chunks = append(chunks, ids)
	}
	return chunks
}

// NewFrameCache wraps seq with a cache bounded by settings.
func NewFrameCache(seq media.Sequence, settings CacheSettings) *randomaccess.Caching[media.Frame] {
	return randomaccess.NewCaching[media.Frame](seq, randomaccess.Options[media.Frame]{
		MaxMemory:  settings.MaxMemory,
		MaxEntries: settings.MaxEntries,
		SizeFunc:   media.Frame.MemorySize,
	})
}

// Frames yields the frames at positions ids through cache. Closing the
// iterator leaves the cache open for the next chunk.
func Frames(cache *randomaccess.Caching[media.Frame], ids []int) randomaccess.Iterator[media.Frame] {
	pos := 0
	return randomaccess.NewFuncIterator(func() (media.Frame, error) {
		if pos >= len(ids) {
			return media.Frame{}, io.EOF
		}
		f, err := cache.Get(ids[pos])
		if err != nil {
			if err == io.EOF {
				return media.Frame{}, fmt.Errorf("frame %d: %w", ids[pos], media.ErrInvalidRange)
			}
			return media.Frame{}, err
		}
		pos++
		return f, nil
	}, nil)
}

// Frames yields the frames at positions ids. Videos with a keyframe
// manifest decode from the nearest keyframe; everything else is served
// through the dataset's frame cache.
func (d *Dataset) Frames(ctx context.Context, ids []int) (randomaccess.Iterator[media.Frame], error) {
	if d.Keyframes != nil {
		numbers := make([]int, len(ids))
		for i, id := range ids {
			numbers[i] = d.start + id*d.step
		}
		return d.Keyframes.IterateFrames(ctx, numbers)
	}
	if d.cache == nil {
		d.cache = NewFrameCache(d.Sequence, d.cacheSettings)
	}
	return Frames(d.cache, ids), nil
}

// Writer returns the chunk writer for quality under settings. Video
// datasets get mp4 writers unless zip chunks are requested; point clouds
// always go to zip.
func (s *Service) Writer(d *Dataset, quality chunk.FrameQuality) (chunk.Writer, error) {
	useVideo := d.Category == media.CategoryVideo && !s.Chunk.UseZipChunks && d.Dimension != media.Dim3D
	if useVideo {
		if s.NewEncoder == nil || s.Prober == nil {
			return nil, fmt.Errorf("%w: video encoder", ErrMissingCollaborator)
		}
		if quality == chunk.Original {
			return chunk.NewVideoWriter(s.NewEncoder, s.Prober, int(chunk.Original), s.Logger), nil
		}
		return chunk.NewCompressedVideoWriter(s.NewEncoder, s.Prober, s.Chunk.VideoQuality, s.Logger), nil
	}

	if quality == chunk.Original {
		return chunk.NewZipWriter(d.Dimension, s.Logger), nil
	}
	w := chunk.NewCompressedZipWriter(s.Chunk.ImageQuality, d.Dimension, s.Logger)
	w.CompressFrames = s.Chunk.CompressFrames
	w.ZipCompressLevel = s.Chunk.ZipCompressLevel
	return w, nil
}

// WriteChunk writes the frames at positions ids of d to path.
func (s *Service) WriteChunk(ctx context.Context, d *Dataset, quality chunk.FrameQuality, ids []int, path string) ([]chunk.Size, error) {
	w, err := s.Writer(d, quality)
	if err != nil {
		return nil, err
	}
	frames, err := d.Frames(ctx, ids)
	if err != nil {
		return nil, err
	}
	defer frames.Close()

	sizes, err := w.SaveAsChunk(ctx, frames, path)
	if err != nil {
		s.log().Error("Failed to write chunk %s: %v", path, err)
		return nil, err
	}
	s.log().Info("Wrote %s chunk %s with %d frames", quality, path, len(ids))
	return sizes, nil
}

// Close releases the frame cache and the sequence.
func (d *Dataset) Close() error {
	var cacheErr error
	if d.cache != nil {
		cacheErr = d.cache.Close()
	}
	if err := d.Sequence.Close(); err != nil {
		return err
	}
	return cacheErr
}
