package media

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Category classifies an input path.
type Category string

const (
	CategoryImage     Category = "image"
	CategoryVideo     Category = "video"
	CategoryArchive   Category = "archive"
	CategoryDirectory Category = "directory"
	CategoryPDF       Category = "pdf"
	CategoryZip       Category = "zip"
	CategoryUnknown   Category = "unknown"
)

// Mode is the annotation mode a category implies for a task.
type Mode string

const (
	ModeAnnotation    Mode = "annotation"
	ModeInterpolation Mode = "interpolation"
)

// MediaType describes one input category.
type MediaType struct {
	Category Category

	// Match reports whether a path belongs to the category.
	Match func(path string) bool

	Mode Mode

	// Unique categories admit exactly one input and no other category.
	Unique bool
}

// Registry is an ordered, immutable table of media types. Classification
// returns the first matching type.
type Registry struct {
	types []MediaType
}

// NewRegistry builds a registry from types in match order.
func NewRegistry(types ...MediaType) *Registry {
	t := make([]MediaType, len(types))
	copy(t, types)
	return &Registry{types: t}
}

// DefaultRegistry returns the standard table: image, video, archive,
// directory, pdf, zip.
func DefaultRegistry() *Registry {
	return NewRegistry(
		MediaType{Category: CategoryImage, Match: IsImagePath, Mode: ModeAnnotation, Unique: false},
		MediaType{Category: CategoryVideo, Match: isVideo, Mode: ModeInterpolation, Unique: true},
		MediaType{Category: CategoryArchive, Match: isArchive, Mode: ModeAnnotation, Unique: true},
		MediaType{Category: CategoryDirectory, Match: isDir, Mode: ModeAnnotation, Unique: false},
		MediaType{Category: CategoryPDF, Match: isPDF, Mode: ModeAnnotation, Unique: true},
		MediaType{Category: CategoryZip, Match: isZip, Mode: ModeAnnotation, Unique: true},
	)
}

// Classify returns the category of path, or CategoryUnknown.
func (r *Registry) Classify(path string) Category {
	for _, t := range r.types {
		if t.Match(path) {
			return t.Category
		}
	}
	return CategoryUnknown
}

// Lookup returns the media type registered for c.
func (r *Registry) Lookup(c Category) (MediaType, bool) {
	for _, t := range r.types {
		if t.Category == c {
			return t, true
		}
	}
	return MediaType{}, false
}

// Types returns a copy of the registered types in match order.
func (r *Registry) Types() []MediaType {
	t := make([]MediaType, len(r.types))
	copy(t, r.types)
	return t
}

// Group classifies paths and enforces the uniqueness rule: a unique
// category must be the only input.
func (r *Registry) Group(paths []string) (map[Category][]string, error) {
	groups := make(map[Category][]string)
	for _, p := range paths {
		c := r.Classify(p)
		groups[c] = append(groups[c], p)
	}

	for c, ps := range groups {
		t, ok := r.Lookup(c)
		if !ok || !t.Unique {
			continue
		}
		if len(ps) > 1 || len(groups) > 1 {
			return groups, fmt.Errorf("%w: %s", ErrUniqueViolation, c)
		}
	}
	return groups, nil
}

var (
	imageExts = map[string]bool{
		".jpg": true, ".jpeg": true, ".jpe": true, ".jfif": true, ".png": true, ".gif": true,
		".bmp": true, ".tif": true, ".tiff": true, ".webp": true, ".ico": true,
		".pbm": true, ".pgm": true, ".ppm": true,
		// Point clouds are listed as images so 3D datasets pass image filters.
		".pcd": true,
	}
	videoExts = map[string]bool{
		".mp4": true, ".m4v": true, ".mov": true, ".avi": true, ".mkv": true, ".webm": true,
		".mpeg": true, ".mpg": true, ".wmv": true, ".flv": true, ".3gp": true, ".ts": true,
		".mts": true, ".m2ts": true, ".ogv": true,
	}
	archiveExts = map[string]bool{
		".rar": true, ".tar": true, ".7z": true, ".cpio": true, ".gz": true, ".tgz": true,
		".bz2": true, ".tbz2": true,
	}
)

func ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// sniff detects the MIME type of an existing regular file by content.
func sniff(path string) string {
	st, err := os.Stat(path)
	if err != nil || !st.Mode().IsRegular() {
		return ""
	}
	m, err := mimetype.DetectFile(path)
	if err != nil {
		return ""
	}
	return m.String()
}

// IsImageName reports whether a file name has a raster image extension.
// It never touches the filesystem.
func IsImageName(name string) bool {
	return imageExts[ext(name)]
}

// IsImagePath reports whether path is a raster image, by extension first
// and by content for files with unknown extensions. Vector images are
// rejected.
func IsImagePath(path string) bool {
	e := ext(path)
	if imageExts[e] {
		return true
	}
	if e == ".svg" || videoExts[e] || archiveExts[e] || e == ".pdf" || e == ".zip" {
		return false
	}
	m := sniff(path)
	return strings.HasPrefix(m, "image/") && !strings.HasPrefix(m, "image/svg")
}

func isVideo(path string) bool {
	e := ext(path)
	if videoExts[e] {
		return true
	}
	if e != "" {
		return false
	}
	return strings.HasPrefix(sniff(path), "video/")
}

func isArchive(path string) bool {
	return archiveExts[ext(path)]
}

func isDir(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.IsDir()
}

func isPDF(path string) bool {
	return ext(path) == ".pdf"
}

func isZip(path string) bool {
	return ext(path) == ".zip"
}
