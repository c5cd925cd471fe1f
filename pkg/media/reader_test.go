package media

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/mediachunk/pkg/imaging/imagingtest"
	"github.com/user/mediachunk/pkg/mocks"
	"github.com/user/mediachunk/pkg/pointcloud"
	"github.com/user/mediachunk/pkg/randomaccess"
)

func writeImages(t *testing.T, dir string, names ...string) []string {
	t.Helper()
	paths := make([]string, len(names))
	for i, name := range names {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, imagingtest.PNG(t, 8+i, 4), 0o644))
		paths[i] = p
	}
	return paths
}

func writeZip(t *testing.T, path string, files map[string][]byte) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, data := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func TestImageList_LenMatchesRange(t *testing.T) {
	paths := writeImages(t, t.TempDir(), "0.png", "1.png", "2.png", "3.png", "4.png", "5.png", "6.png", "7.png", "8.png", "9.png")

	tests := []struct {
		name  string
		start int
		stop  *int
		step  int
		want  []int
	}{
		{"defaults", 0, nil, 0, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}},
		{"step", 0, nil, 3, []int{0, 3, 6, 9}},
		{"window", 2, Stop(5), 1, []int{2, 3, 4, 5}},
		{"stop clamped", 7, Stop(100), 2, []int{7, 9}},
		{"single", 4, Stop(4), 1, []int{4}},
		{"zero stop", 0, Stop(0), 1, []int{0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewImageList(paths, Options{Start: tt.start, Stop: tt.stop, Step: tt.step})
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.FrameRange())
			assert.Equal(t, len(tt.want), r.Len())
		})
	}
}

func TestImageList_Errors(t *testing.T) {
	_, err := NewImageList(nil, Options{})
	assert.ErrorIs(t, err, ErrEmptySource)

	paths := writeImages(t, t.TempDir(), "a.png", "b.png")
	_, err = NewImageList(paths, Options{Start: 3})
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestImageList_SortingAppliedOnce(t *testing.T) {
	dir := t.TempDir()
	paths := writeImages(t, dir, "img10.png", "img2.png", "img1.png")

	r, err := NewImageList(paths, Options{Sorting: SortNatural})
	require.NoError(t, err)
	assert.Equal(t, "img1.png", filepath.Base(r.Path(0)))
	assert.Equal(t, "img2.png", filepath.Base(r.Path(1)))
	assert.Equal(t, "img10.png", filepath.Base(r.Path(2)))

	r, err = NewImageList(paths, Options{Sorting: SortPredefined})
	require.NoError(t, err)
	assert.Equal(t, paths, r.AbsoluteSourcePaths())
}

func TestImageList_ImageSizeAppliesOrientation(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "rotated.jpg")
	require.NoError(t, os.WriteFile(p, imagingtest.JPEG(t, 100, 50, 6), 0o644))

	r, err := NewImageList([]string{p}, Options{})
	require.NoError(t, err)

	w, h, err := r.ImageSize(0)
	require.NoError(t, err)
	assert.Equal(t, 50, w)
	assert.Equal(t, 100, h)
}

func TestImageList_Preview(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "big.png")
	require.NoError(t, os.WriteFile(p, imagingtest.PNG(t, 1024, 512), 0o644))

	r, err := NewImageList([]string{p}, Options{})
	require.NoError(t, err)

	img, err := r.Preview(0)
	require.NoError(t, err)
	assert.Equal(t, 256, img.Bounds().Dx())
	assert.Equal(t, 128, img.Bounds().Dy())
}

func TestImageList_Progress(t *testing.T) {
	paths := writeImages(t, t.TempDir(), "a.png", "b.png", "c.png", "d.png")
	r, err := NewImageList(paths, Options{})
	require.NoError(t, err)

	assert.InDelta(t, 0.25, r.Progress(0), 1e-9)
	assert.InDelta(t, 1.0, r.Progress(3), 1e-9)
}

func TestImageList_Iterate(t *testing.T) {
	paths := writeImages(t, t.TempDir(), "a.png", "b.png", "c.png", "d.png", "e.png")
	r, err := NewImageList(paths, Options{Start: 1, Step: 2})
	require.NoError(t, err)

	it, err := r.Iterate()
	require.NoError(t, err)
	frames, err := randomaccess.Collect(it)
	require.NoError(t, err)

	require.Len(t, frames, 2)
	assert.Equal(t, 1, frames[0].Index)
	assert.Equal(t, paths[1], frames[0].Path)
	assert.Equal(t, 3, frames[1].Index)
}

func TestImageList_3D(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cloud.pcd")
	f, err := os.Create(p)
	require.NoError(t, err)
	require.NoError(t, pointcloud.WritePCD(f, 12, 1, make([]byte, 12*16)))
	require.NoError(t, f.Close())

	r, err := NewImageList([]string{p}, Options{Dimension: Dim3D})
	require.NoError(t, err)

	w, h, err := r.ImageSize(0)
	require.NoError(t, err)
	assert.Equal(t, 12, w)
	assert.Equal(t, 1, h)

	img, err := r.Preview(0)
	require.NoError(t, err)
	assert.NotNil(t, img)
}

func TestDirectory_WalksAndFilters(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, "b/2.png", "a/1.png", "__MACOSX/a/._1.png")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644))

	r, err := NewDirectory([]string{dir}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, filepath.Join(dir, "a", "1.png"), r.Path(0))
	assert.Equal(t, filepath.Join(dir, "b", "2.png"), r.Path(1))
	assert.Equal(t, KindDirectory, r.Kind())
}

func TestImageReader_Filter(t *testing.T) {
	paths := writeImages(t, t.TempDir(), "a.png", "b.png", "c.png", "d.png")
	r, err := NewImageList(paths, Options{Step: 1})
	require.NoError(t, err)

	require.NoError(t, r.Filter(func(p string) bool { return filepath.Base(p) != "b.png" }))
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []string{paths[0], paths[2], paths[3]}, r.AbsoluteSourcePaths())

	err = r.Filter(func(string) bool { return false })
	assert.ErrorIs(t, err, ErrEmptySource)
	assert.Equal(t, 3, r.Len(), "failed filter leaves the reader unchanged")
}

func TestImageReader_RangeFollowsListing(t *testing.T) {
	all := writeImages(t, t.TempDir(), "0.png", "1.png", "2.png", "3.png", "4.png")

	tests := []struct {
		name   string
		stop   *int
		step   int
		resize func(r *ImageReader) error
		want   []int
	}{
		{
			name:   "reconcile grows without stop",
			resize: func(r *ImageReader) error { return r.Reconcile(all, "", "") },
			want:   []int{0, 1, 2, 3, 4},
		},
		{
			name:   "reconcile grows with stop",
			stop:   Stop(3),
			resize: func(r *ImageReader) error { return r.Reconcile(all, "", "") },
			want:   []int{0, 1, 2, 3},
		},
		{
			name:   "reconcile grows with stop past end",
			stop:   Stop(100),
			step:   2,
			resize: func(r *ImageReader) error { return r.Reconcile(all, "", "") },
			want:   []int{0, 2, 4},
		},
		{
			name: "filter then reconcile keeps stop",
			stop: Stop(3),
			resize: func(r *ImageReader) error {
				if err := r.Filter(func(p string) bool { return filepath.Base(p) != "1.png" }); err != nil {
					return err
				}
				if r.Len() != 2 {
					return errors.New("filter did not shrink the range")
				}
				return r.Reconcile(all, "", "")
			},
			want: []int{0, 1, 2, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewImageList(all[:3], Options{Stop: tt.stop, Step: tt.step})
			require.NoError(t, err)

			require.NoError(t, tt.resize(r))
			assert.Equal(t, tt.want, r.FrameRange())
			assert.Equal(t, len(tt.want), r.Len())
			frames, err := randomaccess.Collect(mustIterate(t, r))
			require.NoError(t, err)
			assert.Len(t, frames, r.Len())
		})
	}
}

func mustIterate(t *testing.T, r *ImageReader) randomaccess.Iterator[Frame] {
	t.Helper()
	it, err := r.Iterate()
	require.NoError(t, err)
	return it
}

func TestImageReader_Contains(t *testing.T) {
	paths := writeImages(t, t.TempDir(), "a.png")
	r, err := NewImageList(paths, Options{})
	require.NoError(t, err)

	assert.True(t, r.Contains(paths[0]))
	assert.False(t, r.Contains("missing.png"))
}

func TestArchive(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "data.tar")
	require.NoError(t, os.WriteFile(archive, []byte("tar"), 0o644))

	ex := &mocks.ArchiveExtractor{Files: map[string][]byte{
		"set/2.png": imagingtest.PNG(t, 4, 4),
		"set/1.png": imagingtest.PNG(t, 4, 4),
	}}

	r, err := NewArchive(context.Background(), ex, archive, Options{})
	require.NoError(t, err)
	assert.Equal(t, dir, ex.Dest)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, filepath.Join(dir, "set", "1.png"), r.Path(0))

	_, err = os.Stat(archive)
	assert.True(t, os.IsNotExist(err), "archive is removed without an extract dir")
}

func TestArchive_KeepsSourceWithExtractDir(t *testing.T) {
	dir := t.TempDir()
	out := t.TempDir()
	archive := filepath.Join(dir, "data.7z")
	require.NoError(t, os.WriteFile(archive, []byte("7z"), 0o644))

	ex := &mocks.ArchiveExtractor{Files: map[string][]byte{"1.png": imagingtest.PNG(t, 4, 4)}}
	r, err := NewArchive(context.Background(), ex, archive, Options{ExtractDir: out})
	require.NoError(t, err)
	assert.Equal(t, out, ex.Dest)
	assert.Equal(t, filepath.Join(out, "1.png"), r.Path(0))
	assert.FileExists(t, archive)
}

func TestArchive_ExtractorError(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "data.rar")
	require.NoError(t, os.WriteFile(archive, []byte("rar"), 0o644))

	boom := errors.New("boom")
	_, err := NewArchive(context.Background(), &mocks.ArchiveExtractor{Err: boom}, archive, Options{})
	assert.ErrorIs(t, err, boom)
	assert.FileExists(t, archive)
}

func TestPDF(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "doc.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF"), 0o644))

	rz := &mocks.PDFRasterizer{Pages: 12, Page: imagingtest.JPEG(t, 20, 10, 0)}
	r, err := NewPDF(context.Background(), rz, pdf, Options{Stop: Stop(9)})
	require.NoError(t, err)

	assert.Equal(t, 10, rz.LastPage)
	assert.Equal(t, 10, r.Len())
	assert.Equal(t, filepath.Join(dir, "doc000000000.jpeg"), r.Path(0))
	assert.Equal(t, filepath.Join(dir, "doc000000009.jpeg"), r.Path(9))

	w, h, err := r.ImageSize(3)
	require.NoError(t, err)
	assert.Equal(t, 20, w)
	assert.Equal(t, 10, h)

	_, err = os.Stat(pdf)
	assert.True(t, os.IsNotExist(err))
}

func TestZip(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "bundle.zip")
	writeZip(t, zipPath, map[string][]byte{
		"frames/img10.png":   imagingtest.PNG(t, 10, 5),
		"frames/img2.png":    imagingtest.PNG(t, 20, 5),
		"__MACOSX/._img.png": []byte("junk"),
		"readme.txt":         []byte("hello"),
	})

	r, err := NewZip(zipPath, Options{Sorting: SortNatural})
	require.NoError(t, err)
	defer r.Close()

	require.Equal(t, 2, r.Len())
	assert.Equal(t, filepath.Join(dir, "frames", "img2.png"), r.Path(0))

	f, err := r.Image(0)
	require.NoError(t, err)
	require.NotEmpty(t, f.Data)
	w, h, err := f.Size()
	require.NoError(t, err)
	assert.Equal(t, 20, w)
	assert.Equal(t, 5, h)

	assert.True(t, r.Contains(filepath.Join(dir, "frames", "img10.png")))
	assert.False(t, r.Contains(filepath.Join(dir, "img10.png")))

	name, err := r.ZipFilename()
	require.NoError(t, err)
	assert.Equal(t, zipPath, name)
}

func TestZip_Reconcile(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "bundle.zip")
	writeZip(t, zipPath, map[string][]byte{
		"a.png": imagingtest.PNG(t, 4, 4),
		"b.png": imagingtest.PNG(t, 4, 4),
		"c.png": imagingtest.PNG(t, 4, 4),
	})

	r, err := NewZip(zipPath, Options{})
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Reconcile([]string{filepath.Join(dir, "c.png"), "a.png"}, SortPredefined, ""))
	assert.Equal(t, []string{filepath.Join(dir, "c.png"), filepath.Join(dir, "a.png")}, r.AbsoluteSourcePaths())

	err = r.Reconcile([]string{"missing.png"}, "", "")
	var mismatch *MismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "missing.png", mismatch.Path)
	assert.ErrorIs(t, err, ErrSourceMismatch)
}

func TestZip_FilterSeesEntryNames(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "bundle.zip")
	writeZip(t, zipPath, map[string][]byte{
		"keep/a.png": imagingtest.PNG(t, 4, 4),
		"keep/b.png": imagingtest.PNG(t, 4, 4),
		"drop/c.png": imagingtest.PNG(t, 4, 4),
	})

	r, err := NewZip(zipPath, Options{})
	require.NoError(t, err)
	defer r.Close()

	var seen []string
	require.NoError(t, r.Filter(func(name string) bool {
		seen = append(seen, name)
		return strings.HasPrefix(name, "keep/")
	}))
	assert.ElementsMatch(t, []string{"keep/a.png", "keep/b.png", "drop/c.png"}, seen)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, filepath.Join(dir, "keep", "a.png"), r.Path(0))
}

func TestZip_Extract(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "bundle.zip")
	writeZip(t, zipPath, map[string][]byte{"sub/a.png": imagingtest.PNG(t, 4, 4)})

	r, err := NewZip(zipPath, Options{})
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Extract())
	assert.FileExists(t, filepath.Join(dir, "sub", "a.png"))
	_, err = os.Stat(zipPath)
	assert.True(t, os.IsNotExist(err))

	f, err := r.Image(0)
	require.NoError(t, err)
	rc, err := f.Open()
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestNotZip(t *testing.T) {
	paths := writeImages(t, t.TempDir(), "a.png")
	r, err := NewImageList(paths, Options{})
	require.NoError(t, err)

	_, err = r.ZipFilename()
	assert.ErrorIs(t, err, ErrNotZip)
	assert.ErrorIs(t, r.Extract(), ErrNotZip)
}

func TestFrame_MemorySize(t *testing.T) {
	f := Frame{Data: make([]byte, 10)}
	assert.Equal(t, int64(10), f.MemorySize())
	assert.Equal(t, int64(10), randomaccess.DefaultSize(f))
}
