package pointcloud

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/user/mediachunk/pkg/adapters/logger"
	"github.com/user/mediachunk/pkg/ports"
)

// Dimension is the dimensionality of a dataset.
type Dimension string

const (
	Dim2D Dimension = "2d"
	Dim3D Dimension = "3d"
)

var ignoredNames = []string{"__MSOSX", "._.DS_Store", "__MACOSX", ".DS_Store"}

// Ignored reports whether path lies under an archive-tool artifact such as
// __MACOSX or .DS_Store.
func Ignored(path string) bool {
	for _, name := range ignoredNames {
		if strings.Contains(path, name) {
			return true
		}
	}
	return false
}

// Result is the outcome of validating a dataset directory.
type Result struct {
	Dimension Dimension

	// RelatedFiles maps each point-cloud path, relative to the root, to the
	// related images found for it.
	RelatedFiles map[string][]string

	// ImageFiles maps a file name without extension to its absolute path.
	ImageFiles map[string]string

	// ConvertedFiles lists the absolute paths of .pcd files created from .bin files.
	ConvertedFiles []string
}

// Validator walks a dataset and classifies it as 2D or 3D.
type Validator struct {
	// IsImage reports whether a path names a raster image.
	IsImage func(path string) bool

	// KeepBin leaves converted .bin sources on disk.
	KeepBin bool

	Logger ports.Logger
}

// Validate walks root, converts .bin point clouds to PCD, checks .pcd
// versions and collects images. The dataset is 3D when any point cloud was
// found.
func (v *Validator) Validate(root string) (Result, error) {
	log := logger.OrNoop(v.Logger).WithComponent("pointcloud")
	res := Result{
		Dimension:    Dim2D,
		RelatedFiles: make(map[string][]string),
		ImageFiles:   make(map[string]string),
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return res, err
	}

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || Ignored(filepath.Dir(path)) {
			return nil
		}

		ext := filepath.Ext(path)
		name := strings.TrimSuffix(d.Name(), ext)
		switch ext {
		case ".bin":
			pcdPath, err := ConvertBinToPCD(path, !v.KeepBin)
			if err != nil {
				return err
			}
			log.Debug("Converted %s to %s", path, pcdPath)
			res.ConvertedFiles = append(res.ConvertedFiles, pcdPath)
			res.RelatedFiles[relative(absRoot, pcdPath)] = []string{}

		case ".pcd":
			ok, err := verifyFile(path)
			if err != nil {
				return err
			}
			if ok {
				res.RelatedFiles[relative(absRoot, path)] = []string{}
			} else {
				log.Debug("Unsupported PCD version in %s", path)
				res.ImageFiles[name] = path
			}

		default:
			if v.IsImage != nil && v.IsImage(path) {
				res.ImageFiles[name] = path
			}
		}
		return nil
	})
	if err != nil {
		return res, err
	}

	if len(res.RelatedFiles) > 0 {
		res.Dimension = Dim3D
	}
	return res, nil
}

func verifyFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	return VerifyVersion(f), nil
}

func relative(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
