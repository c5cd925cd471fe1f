package pointcloud

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func byExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".jpg" || ext == ".png"
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestValidator_2D(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.jpg"), []byte("x"))
	writeFile(t, filepath.Join(root, "sub", "b.png"), []byte("x"))
	writeFile(t, filepath.Join(root, "notes.txt"), []byte("x"))

	res, err := (&Validator{IsImage: byExtension}).Validate(root)
	require.NoError(t, err)
	assert.Equal(t, Dim2D, res.Dimension)
	assert.Len(t, res.ImageFiles, 2)
	assert.Equal(t, filepath.Join(root, "sub", "b.png"), res.ImageFiles["b"])
	assert.Empty(t, res.RelatedFiles)
}

func TestValidator_3DConvertsBin(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "velodyne", "000001.bin"), binRecords(2))
	writeFile(t, filepath.Join(root, "image_00", "000001.png"), []byte("x"))

	res, err := (&Validator{IsImage: byExtension}).Validate(root)
	require.NoError(t, err)
	assert.Equal(t, Dim3D, res.Dimension)
	assert.Contains(t, res.RelatedFiles, "velodyne/000001.pcd")
	assert.Equal(t, []string{filepath.Join(root, "velodyne", "000001.pcd")}, res.ConvertedFiles)

	_, err = os.Stat(filepath.Join(root, "velodyne", "000001.bin"))
	assert.True(t, os.IsNotExist(err))
}

func TestValidator_PCDVersion(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "good.pcd"), []byte("VERSION 0.7\nWIDTH 1\nHEIGHT 1\nDATA binary\n"))
	writeFile(t, filepath.Join(root, "bad.pcd"), []byte("VERSION 9.9\nDATA binary\n"))

	res, err := (&Validator{IsImage: byExtension}).Validate(root)
	require.NoError(t, err)
	assert.Equal(t, Dim3D, res.Dimension)
	assert.Contains(t, res.RelatedFiles, "good.pcd")
	assert.Equal(t, filepath.Join(root, "bad.pcd"), res.ImageFiles["bad"])
}

func TestValidator_IgnoresMacArtifacts(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "__MACOSX", "x.bin"), binRecords(1))
	writeFile(t, filepath.Join(root, "a.jpg"), []byte("x"))

	res, err := (&Validator{IsImage: byExtension}).Validate(root)
	require.NoError(t, err)
	assert.Equal(t, Dim2D, res.Dimension)

	_, err = os.Stat(filepath.Join(root, "__MACOSX", "x.bin"))
	assert.NoError(t, err, "ignored files are left untouched")
}

func TestIgnored(t *testing.T) {
	assert.True(t, Ignored("/data/__MACOSX/a"))
	assert.True(t, Ignored("/data/.DS_Store"))
	assert.False(t, Ignored("/data/images"))
}
