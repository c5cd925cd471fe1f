package video

import (
	"context"

	"github.com/user/mediachunk/pkg/adapters/logger"
	"github.com/user/mediachunk/pkg/manifest"
	"github.com/user/mediachunk/pkg/media"
	"github.com/user/mediachunk/pkg/ports"
	"github.com/user/mediachunk/pkg/randomaccess"
)

// ManifestReader decodes requested frames starting from the nearest
// keyframe recorded in a manifest instead of the start of the video.
type ManifestReader struct {
	index  manifest.Index
	reader *Reader
	log    ports.Logger
}

// NewManifestReader creates a ManifestReader. A nil or empty index makes
// every request decode from the start.
func NewManifestReader(index manifest.Index, opener ports.VideoOpener, src ports.VideoSource, opts Options) *ManifestReader {
	if index == nil {
		index = manifest.Memory(nil)
	}
	r := NewReader(opener, src, opts)
	return &ManifestReader{
		index:  index,
		reader: r,
		log:    logger.OrNoop(opts.Logger).WithComponent("video"),
	}
}

// NearestKeyframe returns the frame number and timestamp of the last
// keyframe at or before id.
func (m *ManifestReader) NearestKeyframe(id int) (int, int64) {
	return manifest.NearestKeyframe(m.index, id)
}

// IterateFrames yields the frames numbered ids, which must be ascending.
// Decoding starts at the keyframe preceding the first id.
func (m *ManifestReader) IterateFrames(ctx context.Context, ids []int) (randomaccess.Iterator[media.Frame], error) {
	if len(ids) == 0 {
		return randomaccess.NewSliceIterator[media.Frame](nil), nil
	}
	number, pts := m.NearestKeyframe(ids[0])
	m.log.Debug("Seeking to keyframe %d (pts %d) for frame %d", number, pts, ids[0])
	return m.reader.iterate(ctx, fromSlice(ids), pts, number)
}

// Iterable returns a restartable source of the frames numbered ids.
func (m *ManifestReader) Iterable(ctx context.Context, ids []int) randomaccess.Iterable[media.Frame] {
	return randomaccess.IterableFunc[media.Frame](func() (randomaccess.Iterator[media.Frame], error) {
		return m.IterateFrames(ctx, ids)
	})
}
