package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/user/mediachunk/pkg/adapters/logger"
	"github.com/user/mediachunk/pkg/imaging"
	"github.com/user/mediachunk/pkg/pointcloud"
	"github.com/user/mediachunk/pkg/ports"
	"github.com/user/mediachunk/pkg/randomaccess"
)

// Sequence is a frame-addressable source.
type Sequence interface {
	// Len is the number of frames in the configured range.
	Len() int

	// Iterate yields the frames of the configured range in order.
	Iterate() (randomaccess.Iterator[Frame], error)

	// ImageSize returns the display size of frame i.
	ImageSize(i int) (width, height int, err error)

	// Preview returns a thumbnail of frame i.
	Preview(i int) (image.Image, error)

	// Progress reports how far through the sequence position pos is.
	Progress(pos int) float64

	Close() error
}

// Kind tags the source an ImageReader was built from.
type Kind int

const (
	KindImages Kind = iota
	KindDirectory
	KindArchive
	KindZip
	KindPDF
)

func (k Kind) String() string {
	switch k {
	case KindImages:
		return "images"
	case KindDirectory:
		return "directory"
	case KindArchive:
		return "archive"
	case KindZip:
		return "zip"
	case KindPDF:
		return "pdf"
	}
	return "unknown"
}

// Options configures reader construction.
type Options struct {
	Start int

	// Stop is the last frame index, inclusive. Nil selects the last entry;
	// larger values are clamped to it.
	Stop *int

	// Step values below 1 are treated as 1.
	Step int

	Dimension DimensionType
	Sorting   SortingMethod

	// ExtractDir receives extracted archive, zip or PDF content. When empty,
	// content goes next to the source, which is deleted afterwards.
	ExtractDir string

	// Registry classifies directory entries. Nil selects DefaultRegistry.
	Registry *Registry

	Logger ports.Logger
}

// Stop returns a pointer to v for Options.Stop.
func Stop(v int) *int {
	return &v
}

// ImageReader is a Sequence over still images. Its Kind selects how
// entries are resolved: zip readers hold entry names relative to the
// extraction prefix, all other kinds hold file paths.
type ImageReader struct {
	kind    Kind
	entries []string

	start, stop, step int
	dimension         DimensionType
	sorting           SortingMethod
	registry          *Registry
	log               ports.Logger

	// requestedStop is the caller's stop. stop holds it clamped to the
	// current listing.
	requestedStop *int

	source     string
	extractDir string
	prefix     string
	zip        *zip.ReadCloser
	zipFiles   map[string]*zip.File
	extracted  bool
}

// NewImageList builds a reader over already enumerated image paths.
func NewImageList(paths []string, opts Options) (*ImageReader, error) {
	r := newReader(KindImages, opts)
	if err := r.init(paths, r.sorting); err != nil {
		return nil, err
	}
	return r, nil
}

// NewDirectory builds a reader over every image found under dirs.
func NewDirectory(dirs []string, opts Options) (*ImageReader, error) {
	r := newReader(KindDirectory, opts)
	paths, err := r.walk(dirs)
	if err != nil {
		return nil, err
	}
	if err := r.init(paths, r.sorting); err != nil {
		return nil, err
	}
	return r, nil
}

// NewArchive extracts an archive with ex and reads the images it contains.
func NewArchive(ctx context.Context, ex ports.ArchiveExtractor, archive string, opts Options) (*ImageReader, error) {
	r := newReader(KindArchive, opts)
	r.source = archive

	dest := r.extractDir
	if dest == "" {
		dest = filepath.Dir(archive)
	}
	if err := ex.Extract(ctx, archive, dest); err != nil {
		return nil, fmt.Errorf("extract %s: %w", archive, err)
	}
	if r.extractDir == "" {
		if err := os.Remove(archive); err != nil {
			return nil, fmt.Errorf("remove archive: %w", err)
		}
	}

	paths, err := r.walk([]string{dest})
	if err != nil {
		return nil, err
	}
	if err := r.init(paths, r.sorting); err != nil {
		return nil, err
	}
	return r, nil
}

// NewPDF rasterizes a PDF with rz and reads its pages.
func NewPDF(ctx context.Context, rz ports.PDFRasterizer, pdf string, opts Options) (*ImageReader, error) {
	r := newReader(KindPDF, opts)
	r.source = pdf

	dest := r.extractDir
	if dest == "" {
		dest = filepath.Dir(pdf)
	}
	lastPage := 0
	if opts.Stop != nil {
		lastPage = *opts.Stop + 1
	}
	pages, err := rz.Rasterize(ctx, pdf, dest, lastPage)
	if err != nil {
		return nil, fmt.Errorf("rasterize %s: %w", pdf, err)
	}
	if r.extractDir == "" {
		if err := os.Remove(pdf); err != nil {
			return nil, fmt.Errorf("remove pdf: %w", err)
		}
	}

	if err := r.init(pages, SortPredefined); err != nil {
		return nil, err
	}
	return r, nil
}

// NewZip reads images straight out of a zip file.
func NewZip(path string, opts Options) (*ImageReader, error) {
	r := newReader(KindZip, opts)
	r.source = path
	r.prefix = r.extractDir
	if r.prefix == "" {
		r.prefix = filepath.Dir(path)
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	r.zip = zr
	r.zipFiles = make(map[string]*zip.File, len(zr.File))

	var names []string
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || pointcloud.Ignored(f.Name) || !IsImageName(f.Name) {
			continue
		}
		r.zipFiles[f.Name] = f
		names = append(names, f.Name)
	}

	if err := r.init(names, r.sorting); err != nil {
		zr.Close()
		return nil, err
	}
	return r, nil
}

func newReader(kind Kind, opts Options) *ImageReader {
	r := &ImageReader{
		kind:       kind,
		step:       opts.Step,
		dimension:  opts.Dimension,
		sorting:    opts.Sorting,
		registry:   opts.Registry,
		log:        logger.OrNoop(opts.Logger).WithComponent("media"),
		extractDir: opts.ExtractDir,
		start:      opts.Start,
		stop:       -1,
	}
	if opts.Stop != nil {
		v := *opts.Stop
		r.requestedStop = &v
	}
	if r.dimension == "" {
		r.dimension = Dim2D
	}
	if r.sorting == "" {
		r.sorting = SortLexicographical
	}
	if r.registry == nil {
		r.registry = DefaultRegistry()
	}
	return r
}

// init installs a sorted listing and derives the frame range from the
// reader's start, stop and step.
func (r *ImageReader) init(entries []string, sorting SortingMethod) error {
	if len(entries) == 0 {
		return ErrEmptySource
	}

	last := len(entries) - 1
	stop := last
	if r.requestedStop != nil && *r.requestedStop >= 0 {
		stop = min(*r.requestedStop, last)
	}
	if r.start < 0 || r.start > stop {
		return fmt.Errorf("%w: start %d, stop %d", ErrInvalidRange, r.start, stop)
	}

	r.entries = Sort(entries, sorting)
	r.stop = stop
	if r.step < 1 {
		r.step = 1
	}
	r.log.Debug("Listed %d %s entries, frames %d..%d step %d", len(r.entries), r.kind, r.start, r.stop, r.step)
	return nil
}

func (r *ImageReader) walk(dirs []string) ([]string, error) {
	var paths []string
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || pointcloud.Ignored(path) {
				return nil
			}
			if r.registry.Classify(path) == CategoryImage {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", dir, err)
		}
	}
	return paths, nil
}

// Kind returns the reader's source kind.
func (r *ImageReader) Kind() Kind { return r.kind }

// Dimension returns the reader's dimensionality.
func (r *ImageReader) Dimension() DimensionType { return r.dimension }

// Len returns len(range(start, stop+1, step)).
func (r *ImageReader) Len() int {
	return (r.stop-r.start)/r.step + 1
}

// FrameRange returns the entry indices the reader serves.
func (r *ImageReader) FrameRange() []int {
	ids := make([]int, 0, r.Len())
	for i := r.start; i <= r.stop; i += r.step {
		ids = append(ids, i)
	}
	return ids
}

// Progress returns (pos+1)/Len.
func (r *ImageReader) Progress(pos int) float64 {
	return float64(pos+1) / float64(r.Len())
}

// Path returns the file path of entry i.
func (r *ImageReader) Path(i int) string {
	if r.kind == KindZip {
		return filepath.Join(r.prefix, r.entries[i])
	}
	return r.entries[i]
}

func (r *ImageReader) checkIndex(i int) error {
	if i < 0 || i >= len(r.entries) {
		return fmt.Errorf("%w: frame %d of %d", ErrInvalidRange, i, len(r.entries))
	}
	return nil
}

// Image returns the frame handle for entry i. 2D zip entries are read into
// memory; 3D zip entries must have been extracted first.
func (r *ImageReader) Image(i int) (Frame, error) {
	if err := r.checkIndex(i); err != nil {
		return Frame{}, err
	}
	f := Frame{Index: i, Path: r.Path(i)}
	if r.kind != KindZip || r.extracted || r.dimension == Dim3D {
		return f, nil
	}

	data, err := r.readZipEntry(r.entries[i])
	if err != nil {
		return Frame{}, err
	}
	f.Data = data
	return f, nil
}

func (r *ImageReader) readZipEntry(name string) ([]byte, error) {
	zf, ok := r.zipFiles[name]
	if !ok {
		return nil, &MismatchError{Path: name}
	}
	rc, err := zf.Open()
	if err != nil {
		return nil, fmt.Errorf("open zip entry %s: %w", name, err)
	}
	defer rc.Close()

	data := make([]byte, 0, zf.UncompressedSize64)
	buf := bytes.NewBuffer(data)
	if _, err := buf.ReadFrom(rc); err != nil {
		return nil, fmt.Errorf("read zip entry %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// ImageSize returns the display size of entry i. Point clouds report the
// WIDTH and HEIGHT of their header.
func (r *ImageReader) ImageSize(i int) (int, int, error) {
	if r.dimension == Dim3D {
		if err := r.checkIndex(i); err != nil {
			return 0, 0, err
		}
		return pointcloud.Size(r.Path(i))
	}
	f, err := r.Image(i)
	if err != nil {
		return 0, 0, err
	}
	data, err := f.Bytes()
	if err != nil {
		return 0, 0, err
	}
	return imaging.DisplaySize(data)
}

// Preview returns a thumbnail of entry i, or a placeholder for point clouds.
func (r *ImageReader) Preview(i int) (image.Image, error) {
	if r.dimension == Dim3D {
		return imaging.Placeholder3D(), nil
	}
	f, err := r.Image(i)
	if err != nil {
		return nil, err
	}
	data, err := f.Bytes()
	if err != nil {
		return nil, err
	}
	return imaging.Preview(data)
}

// Iterate yields the frames of the configured range.
func (r *ImageReader) Iterate() (randomaccess.Iterator[Frame], error) {
	ids := r.FrameRange()
	pos := 0
	next := func() (Frame, error) {
		if pos >= len(ids) {
			return Frame{}, io.EOF
		}
		f, err := r.Image(ids[pos])
		if err != nil {
			return Frame{}, err
		}
		pos++
		return f, nil
	}
	return randomaccess.NewFuncIterator(next, nil), nil
}

// Contains reports whether path is part of the listing. Zip readers match
// paths relative to their extraction prefix.
func (r *ImageReader) Contains(path string) bool {
	if r.kind == KindZip {
		rel, err := filepath.Rel(r.prefix, path)
		if err != nil {
			return false
		}
		path = filepath.ToSlash(rel)
	}
	for _, e := range r.entries {
		if e == path {
			return true
		}
	}
	return false
}

// Filter keeps the entries that satisfy keep, preserving their order and
// the reader's range configuration. keep receives file paths, or entry
// names inside the archive for zip readers.
func (r *ImageReader) Filter(keep func(name string) bool) error {
	var kept []string
	for _, e := range r.entries {
		if keep(e) {
			kept = append(kept, e)
		}
	}
	return r.init(kept, SortPredefined)
}

// Reconcile replaces the listing with files, typically the set declared by
// a manifest. An empty sorting keeps the reader's own method. Zip readers
// accept either entry names or prefixed paths.
func (r *ImageReader) Reconcile(files []string, sorting SortingMethod, dimension DimensionType) error {
	if sorting == "" {
		sorting = r.sorting
	}
	if dimension != "" {
		r.dimension = dimension
	}

	entries := make([]string, 0, len(files))
	for _, f := range files {
		if r.kind == KindZip {
			if rel, err := filepath.Rel(r.prefix, f); err == nil && !strings.HasPrefix(rel, "..") {
				f = filepath.ToSlash(rel)
			}
			if _, ok := r.zipFiles[f]; !ok {
				return &MismatchError{Path: f}
			}
		}
		entries = append(entries, f)
	}

	r.sorting = sorting
	return r.init(entries, sorting)
}

// AbsoluteSourcePaths returns the path of every entry in the listing.
func (r *ImageReader) AbsoluteSourcePaths() []string {
	paths := make([]string, len(r.entries))
	for i := range r.entries {
		paths[i] = r.Path(i)
	}
	return paths
}

// Source returns the archive, zip or PDF the reader was built from.
func (r *ImageReader) Source() string { return r.source }

// ZipFilename returns the zip file a zip reader reads from.
func (r *ImageReader) ZipFilename() (string, error) {
	if r.kind != KindZip {
		return "", ErrNotZip
	}
	return r.source, nil
}

// Extract unpacks every zip entry under the extraction prefix. Without an
// explicit extract directory the zip is deleted afterwards.
func (r *ImageReader) Extract() error {
	if r.kind != KindZip {
		return ErrNotZip
	}
	if r.extracted {
		return nil
	}
	root, err := filepath.Abs(r.prefix)
	if err != nil {
		return err
	}

	for _, zf := range r.zip.File {
		dest := filepath.Join(root, zf.Name)
		if dest != root && !strings.HasPrefix(dest, root+string(filepath.Separator)) {
			return fmt.Errorf("zip entry escapes extraction root: %s", zf.Name)
		}
		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := extractEntry(zf, dest); err != nil {
			return err
		}
	}

	r.extracted = true
	if r.extractDir == "" {
		if err := r.zip.Close(); err != nil {
			return err
		}
		r.zip = nil
		if err := os.Remove(r.source); err != nil {
			return fmt.Errorf("remove zip: %w", err)
		}
	}
	r.log.Debug("Extracted %s to %s", r.source, root)
	return nil
}

func extractEntry(zf *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	rc, err := zf.Open()
	if err != nil {
		return fmt.Errorf("open zip entry %s: %w", zf.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("extract %s: %w", zf.Name, err)
	}
	return out.Close()
}

// Close releases the zip handle, if any.
func (r *ImageReader) Close() error {
	if r.zip == nil {
		return nil
	}
	err := r.zip.Close()
	r.zip = nil
	return err
}
