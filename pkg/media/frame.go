package media

import (
	"bytes"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/user/mediachunk/pkg/imaging"
	"github.com/user/mediachunk/pkg/pointcloud"
	"github.com/user/mediachunk/pkg/randomaccess"
)

// DimensionType is the dimensionality of a dataset.
type DimensionType = pointcloud.Dimension

const (
	Dim2D = pointcloud.Dim2D
	Dim3D = pointcloud.Dim3D
)

// Frame is a handle to one frame's source. Exactly one of Data, Image or a
// readable Path carries the content: zip entries are loaded into Data,
// decoded video frames carry Image and PTS, everything else is read from
// Path on demand.
type Frame struct {
	Index int
	Path  string
	Data  []byte
	Image image.Image

	// PTS is the presentation timestamp of a decoded video frame.
	PTS int64
}

// Ext returns the lower-cased extension of the frame's path, without the dot.
func (f Frame) Ext() string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(f.Path)), ".")
}

// Open returns a reader over the frame's encoded bytes.
func (f Frame) Open() (io.ReadCloser, error) {
	if f.Data != nil {
		return io.NopCloser(bytes.NewReader(f.Data)), nil
	}
	return os.Open(f.Path)
}

// Bytes returns the frame's encoded bytes.
func (f Frame) Bytes() ([]byte, error) {
	if f.Data != nil {
		return f.Data, nil
	}
	return os.ReadFile(f.Path)
}

// Decode returns the frame's pixels, decoding the encoded bytes with their
// EXIF orientation applied when the frame does not already carry an image.
func (f Frame) Decode() (image.Image, error) {
	if f.Image != nil {
		return f.Image, nil
	}
	data, err := f.Bytes()
	if err != nil {
		return nil, err
	}
	l, err := imaging.Load(data)
	if err != nil {
		return nil, err
	}
	if l.HasRotation() {
		return imaging.ApplyOrientation(l.Image, l.Orientation), nil
	}
	return l.Image, nil
}

// Size returns the display size of the frame.
func (f Frame) Size() (width, height int, err error) {
	if f.Image != nil {
		b := f.Image.Bounds()
		return b.Dx(), b.Dy(), nil
	}
	if f.Ext() == "pcd" {
		return pointcloud.Size(f.Path)
	}
	data, err := f.Bytes()
	if err != nil {
		return 0, 0, err
	}
	return imaging.DisplaySize(data)
}

// MemorySize reports the bytes held in memory by the frame.
func (f Frame) MemorySize() int64 {
	n := int64(len(f.Data))
	if f.Image != nil {
		n += randomaccess.DefaultSize(f.Image)
	}
	return n
}
