package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/mediachunk/pkg/media"
	"github.com/user/mediachunk/pkg/ports"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "mediachunk.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestDefaultsAreValid(t *testing.T) {
	require.NoError(t, Defaults().Validate())
}

func TestLoadFromFile(t *testing.T) {
	p := writeConfig(t, `
sorting: natural
allow_threading: true
cache:
  max_entries: 8
chunk:
  image_quality: 95
  compress_frames: false
log_level: debug
`)

	cfg, err := LoadFromFile(p)
	require.NoError(t, err)

	assert.Equal(t, media.SortNatural, cfg.SortingMethod())
	assert.True(t, cfg.AllowThreading)
	assert.Equal(t, 8, cfg.Cache.MaxEntries)
	assert.Equal(t, int64(256<<20), cfg.Cache.MaxMemory)
	assert.Equal(t, 95, cfg.Chunk.ImageQuality)
	assert.Equal(t, 67, cfg.Chunk.VideoQuality)
	assert.False(t, cfg.Chunk.CompressFrames)
	assert.Equal(t, ports.LevelDebug, cfg.Level())
}

func TestLoadFromFile_EnvOverrides(t *testing.T) {
	p := writeConfig(t, "chunk:\n  video_quality: 40\n")
	t.Setenv("MEDIACHUNK_VIDEO_QUALITY", "90")
	t.Setenv("FFMPEG_PATH", "/opt/ffmpeg/bin/ffmpeg")

	cfg, err := LoadFromFile(p)
	require.NoError(t, err)
	assert.Equal(t, 90, cfg.Chunk.VideoQuality)
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", cfg.Tools.FFmpegPath)
}

func TestLoadFromFile_Invalid(t *testing.T) {
	p := writeConfig(t, "chunk:\n  video_quality: 0\n")
	_, err := LoadFromFile(p)
	assert.Error(t, err)

	p = writeConfig(t, "sorting: by-size\n")
	_, err = LoadFromFile(p)
	assert.Error(t, err)

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadFromFile_ExpandsHome(t *testing.T) {
	p := writeConfig(t, "temp_dir: ~/mediachunk-tmp\n")
	cfg, err := LoadFromFile(p)
	require.NoError(t, err)

	home, err := homedir.Dir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "mediachunk-tmp"), cfg.TempDir)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MEDIACHUNK_SORTING", "predefined")
	t.Setenv("MEDIACHUNK_ZIP_COMPRESS_LEVEL", "6")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, media.SortPredefined, cfg.SortingMethod())
	assert.Equal(t, 6, cfg.Chunk.ZipCompressLevel)
	assert.True(t, cfg.Chunk.CompressFrames)
}

func TestSaveRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Defaults()
	cfg.Chunk.ImageQuality = 42
	require.NoError(t, cfg.Save(p))

	loaded, err := LoadFromFile(p)
	require.NoError(t, err)
	assert.Equal(t, 42, loaded.Chunk.ImageQuality)
}
