// Package ingest turns uploaded paths into frame sequences and writes
// their chunks.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/user/mediachunk/pkg/adapters/logger"
	"github.com/user/mediachunk/pkg/manifest"
	"github.com/user/mediachunk/pkg/media"
	"github.com/user/mediachunk/pkg/pointcloud"
	"github.com/user/mediachunk/pkg/ports"
	"github.com/user/mediachunk/pkg/video"
)

var (
	// ErrUnsupportedInput is returned for paths no media type matches.
	ErrUnsupportedInput = errors.New("ingest: unsupported input")

	// ErrMissingCollaborator is returned when an input needs an extractor,
	// rasterizer or video runtime the service was built without.
	ErrMissingCollaborator = errors.New("ingest: missing collaborator")
)

// CacheSettings bounds the frame cache of a dataset.
type CacheSettings struct {
	MaxMemory  int64
	MaxEntries int
}

// ChunkSettings selects and tunes chunk writers.
type ChunkSettings struct {
	ImageQuality     int
	VideoQuality     int
	ZipCompressLevel int
	CompressFrames   bool

	// UseZipChunks stores video frames in zip chunks instead of mp4.
	UseZipChunks bool
}

// Service opens datasets and writes their chunks.
type Service struct {
	Registry   *media.Registry
	Extractor  ports.ArchiveExtractor
	Rasterizer ports.PDFRasterizer
	Opener     ports.VideoOpener

	// NewEncoder creates one encoder per video chunk.
	NewEncoder func() ports.ChunkEncoder
	Prober     ports.CodecProber

	Chunk  ChunkSettings
	Cache  CacheSettings
	Logger ports.Logger
}

// Options configures Open.
type Options struct {
	Start int
	Stop  *int
	Step  int

	Sorting    media.SortingMethod
	ExtractDir string

	// Threaded lets the video runtime use its own threads.
	Threaded bool

	// Keyframes is a video keyframe manifest. When set, chunk frames are
	// decoded from the nearest keyframe instead of the start of the video.
	Keyframes manifest.Index
}

func (s *Service) log() ports.Logger {
	return logger.OrNoop(s.Logger).WithComponent("ingest")
}

func (s *Service) registry() *media.Registry {
	if s.Registry == nil {
		return media.DefaultRegistry()
	}
	return s.Registry
}

// Open classifies paths and builds the sequence that reads them.
// Directories, archives and zips holding point clouds become 3D datasets.
func (s *Service) Open(ctx context.Context, paths []string, opts Options) (*Dataset, error) {
	if len(paths) == 0 {
		return nil, media.ErrEmptySource
	}

	groups, err := s.registry().Group(paths)
	if err != nil {
		return nil, err
	}
	if unknown := groups[media.CategoryUnknown]; len(unknown) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedInput, unknown[0])
	}

	mopts := media.Options{
		Start:      opts.Start,
		Stop:       opts.Stop,
		Step:       opts.Step,
		Sorting:    opts.Sorting,
		ExtractDir: opts.ExtractDir,
		Registry:   s.Registry,
		Logger:     s.Logger,
	}

	ds := &Dataset{
		cacheSettings: s.Cache,
		start:         opts.Start,
		step:          max(opts.Step, 1),
	}

	switch {
	case len(groups[media.CategoryVideo]) > 0:
		err = s.openVideo(ds, groups[media.CategoryVideo][0], opts)
	case len(groups[media.CategoryArchive]) > 0:
		err = s.openArchive(ctx, ds, groups[media.CategoryArchive][0], mopts)
	case len(groups[media.CategoryZip]) > 0:
		err = s.openZip(ds, groups[media.CategoryZip][0], mopts)
	case len(groups[media.CategoryPDF]) > 0:
		err = s.openPDF(ctx, ds, groups[media.CategoryPDF][0], mopts)
	default:
		err = s.openImages(ds, groups[media.CategoryImage], groups[media.CategoryDirectory], mopts)
	}
	if err != nil {
		return nil, err
	}

	if t, ok := s.registry().Lookup(ds.Category); ok {
		ds.Mode = t.Mode
	}
	s.log().Info("Opened %s dataset (%s, %s)", ds.Category, ds.Dimension, ds.Mode)
	return ds, nil
}

func (s *Service) openVideo(ds *Dataset, path string, opts Options) error {
	if s.Opener == nil {
		return fmt.Errorf("%w: video runtime", ErrMissingCollaborator)
	}
	src := ports.VideoSource{Path: path}
	vopts := video.Options{
		Start:    opts.Start,
		Stop:     opts.Stop,
		Step:     opts.Step,
		Threaded: opts.Threaded,
		Logger:   s.Logger,
	}
	ds.Category = media.CategoryVideo
	ds.Dimension = media.Dim2D
	ds.Video = video.NewReader(s.Opener, src, vopts)
	ds.Sequence = ds.Video
	if opts.Keyframes != nil {
		ds.Keyframes = video.NewManifestReader(opts.Keyframes, s.Opener, src, vopts)
	}
	return nil
}

func (s *Service) openArchive(ctx context.Context, ds *Dataset, path string, mopts media.Options) error {
	if s.Extractor == nil {
		return fmt.Errorf("%w: archive extractor", ErrMissingCollaborator)
	}
	root := extractRoot(path, mopts.ExtractDir)
	r, err := media.NewArchive(ctx, s.Extractor, path, mopts)
	if err != nil {
		return err
	}
	ds.Category = media.CategoryArchive
	return s.settleDimension(ds, r, root)
}

func (s *Service) openZip(ds *Dataset, path string, mopts media.Options) error {
	has3D, err := zipHasPointClouds(path)
	if err != nil {
		return err
	}
	ds.Category = media.CategoryZip

	if !has3D {
		r, err := media.NewZip(path, mopts)
		if err != nil {
			return err
		}
		ds.Images, ds.Sequence, ds.Dimension = r, r, media.Dim2D
		return nil
	}

	// Point clouds need files on disk for conversion and validation, so
	// the whole archive is unpacked first.
	root := extractRoot(path, mopts.ExtractDir)
	if err := unzip(path, root); err != nil {
		return err
	}
	if mopts.ExtractDir == "" {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("remove zip: %w", err)
		}
	}
	res, err := s.validate(root)
	if err != nil {
		return err
	}
	mopts.Dimension = media.Dim3D
	r, err := media.NewImageList(relatedPaths(root, res), mopts)
	if err != nil {
		return err
	}
	ds.Images, ds.Sequence, ds.Dimension, ds.Validation = r, r, media.Dim3D, &res
	return nil
}

func (s *Service) openPDF(ctx context.Context, ds *Dataset, path string, mopts media.Options) error {
	if s.Rasterizer == nil {
		return fmt.Errorf("%w: pdf rasterizer", ErrMissingCollaborator)
	}
	r, err := media.NewPDF(ctx, s.Rasterizer, path, mopts)
	if err != nil {
		return err
	}
	ds.Category = media.CategoryPDF
	ds.Images, ds.Sequence, ds.Dimension = r, r, media.Dim2D
	return nil
}

func (s *Service) openImages(ds *Dataset, images, dirs []string, mopts media.Options) error {
	if len(dirs) > 0 && len(images) == 0 {
		ds.Category = media.CategoryDirectory
		var results []pointcloud.Result
		for _, d := range dirs {
			res, err := s.validate(d)
			if err != nil {
				return err
			}
			results = append(results, res)
		}
		r, err := media.NewDirectory(dirs, mopts)
		if err != nil {
			return err
		}
		var related []string
		for i, res := range results {
			if res.Dimension == pointcloud.Dim3D {
				related = append(related, relatedPaths(dirs[i], res)...)
				ds.Validation = &results[i]
			}
		}
		if len(related) > 0 {
			if err := r.Reconcile(related, "", media.Dim3D); err != nil {
				return err
			}
		}
		ds.Images, ds.Sequence, ds.Dimension = r, r, r.Dimension()
		return nil
	}

	ds.Category = media.CategoryImage
	paths := append([]string(nil), images...)
	if len(dirs) > 0 {
		d, err := media.NewDirectory(dirs, mopts)
		if err != nil && !errors.Is(err, media.ErrEmptySource) {
			return err
		}
		if d != nil {
			paths = append(paths, d.AbsoluteSourcePaths()...)
		}
	}

	if clouds := pointClouds(paths); len(clouds) > 0 {
		mopts.Dimension = media.Dim3D
		paths = clouds
	}
	r, err := media.NewImageList(paths, mopts)
	if err != nil {
		return err
	}
	ds.Images, ds.Sequence, ds.Dimension = r, r, r.Dimension()
	return nil
}

// settleDimension validates root and narrows r to its point clouds when the
// dataset is 3D.
func (s *Service) settleDimension(ds *Dataset, r *media.ImageReader, root string) error {
	res, err := s.validate(root)
	if err != nil {
		r.Close()
		return err
	}
	if res.Dimension == pointcloud.Dim3D {
		if err := r.Reconcile(relatedPaths(root, res), "", media.Dim3D); err != nil {
			r.Close()
			return err
		}
		ds.Validation = &res
	}
	ds.Images, ds.Sequence, ds.Dimension = r, r, r.Dimension()
	return nil
}

func (s *Service) validate(root string) (pointcloud.Result, error) {
	v := pointcloud.Validator{IsImage: media.IsImagePath, Logger: s.Logger}
	res, err := v.Validate(root)
	if err != nil {
		return res, fmt.Errorf("validate %s: %w", root, err)
	}
	s.log().Debug("Validated %s as %s", root, res.Dimension)
	return res, nil
}

func extractRoot(path, extractDir string) string {
	if extractDir != "" {
		return extractDir
	}
	return filepath.Dir(path)
}

func relatedPaths(root string, res pointcloud.Result) []string {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	paths := make([]string, 0, len(res.RelatedFiles))
	for rel := range res.RelatedFiles {
		paths = append(paths, filepath.Join(abs, filepath.FromSlash(rel)))
	}
	return paths
}

// pointClouds returns the paths holding PCD data of a supported version.
func pointClouds(paths []string) []string {
	var clouds []string
	for _, p := range paths {
		if strings.ToLower(filepath.Ext(p)) != ".pcd" {
			continue
		}
		f, err := os.Open(p)
		if err != nil {
			continue
		}
		if pointcloud.VerifyVersion(f) {
			clouds = append(clouds, p)
		}
		f.Close()
	}
	return clouds
}

func zipHasPointClouds(path string) (bool, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return false, fmt.Errorf("open zip: %w", err)
	}
	defer zr.Close()
	for _, f := range zr.File {
		if pointcloud.Ignored(f.Name) {
			continue
		}
		switch strings.ToLower(filepath.Ext(f.Name)) {
		case ".pcd", ".bin":
			return true, nil
		}
	}
	return false, nil
}

// unzip extracts every entry of path under dest, including the .bin
// clouds a zip reader skips.
func unzip(path, dest string) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer zr.Close()

	absDest, err := filepath.Abs(dest)
	if err != nil {
		return err
	}
	for _, f := range zr.File {
		target := filepath.Join(absDest, filepath.FromSlash(f.Name))
		if target != absDest && !strings.HasPrefix(target, absDest+string(filepath.Separator)) {
			return fmt.Errorf("zip entry %q escapes %s", f.Name, dest)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := writeEntry(f, target); err != nil {
			return err
		}
	}
	return nil
}

func writeEntry(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := out.ReadFrom(rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
