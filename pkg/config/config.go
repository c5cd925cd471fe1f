// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"github.com/user/mediachunk/pkg/media"
	"github.com/user/mediachunk/pkg/ports"
)

// Config represents the full configuration for mediachunk.
type Config struct {
	Tools ToolsConfig `yaml:"tools"`

	// TempDir holds spooled video buffers and staging files.
	TempDir string `yaml:"temp_dir" env:"MEDIACHUNK_TEMP_DIR"`

	// AllowThreading lets the decoder use its own threads.
	AllowThreading bool `yaml:"allow_threading" env:"MEDIACHUNK_ALLOW_THREADING"`

	Sorting  string      `yaml:"sorting" env:"MEDIACHUNK_SORTING" env-default:"lexicographical" validate:"oneof=lexicographical natural predefined random"`
	Cache    CacheConfig `yaml:"cache"`
	Chunk    ChunkConfig `yaml:"chunk"`
	LogLevel string      `yaml:"log_level" env:"MEDIACHUNK_LOG_LEVEL" env-default:"info" validate:"oneof=debug info warn error quiet"`
}

// ToolsConfig locates external executables. Empty values use discovery.
type ToolsConfig struct {
	FFmpegPath  string `yaml:"ffmpeg_path" env:"FFMPEG_PATH"`
	FFprobePath string `yaml:"ffprobe_path" env:"FFPROBE_PATH"`
	ArchiveTool string `yaml:"archive_tool" env:"MEDIACHUNK_ARCHIVE_TOOL"`
	PDFTool     string `yaml:"pdf_tool" env:"MEDIACHUNK_PDF_TOOL"`
}

// CacheConfig bounds the frame cache used while writing chunks.
type CacheConfig struct {
	MaxMemory  int64 `yaml:"max_memory" env:"MEDIACHUNK_CACHE_MAX_MEMORY" env-default:"268435456" validate:"gte=0"`
	MaxEntries int   `yaml:"max_entries" env:"MEDIACHUNK_CACHE_MAX_ENTRIES" env-default:"64" validate:"gte=0"`
}

// ChunkConfig controls chunk encoding.
type ChunkConfig struct {
	ImageQuality     int  `yaml:"image_quality" env:"MEDIACHUNK_IMAGE_QUALITY" env-default:"70" validate:"gte=0,lte=100"`
	VideoQuality     int  `yaml:"video_quality" env:"MEDIACHUNK_VIDEO_QUALITY" env-default:"67" validate:"gte=1,lte=100"`
	ZipCompressLevel int  `yaml:"zip_compress_level" env:"MEDIACHUNK_ZIP_COMPRESS_LEVEL" env-default:"0" validate:"gte=0,lte=9"`
	CompressFrames   bool `yaml:"compress_frames" env:"MEDIACHUNK_COMPRESS_FRAMES"`
	Size             int  `yaml:"size" env:"MEDIACHUNK_CHUNK_SIZE" env-default:"36" validate:"gte=1"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		Sorting: string(media.SortLexicographical),
		Cache: CacheConfig{
			MaxMemory:  256 << 20,
			MaxEntries: 64,
		},
		Chunk: ChunkConfig{
			ImageQuality:   70,
			VideoQuality:   67,
			CompressFrames: true,
			Size:           36,
		},
		LogLevel: "info",
	}
}

// LoadFromFile loads configuration from a YAML file. Environment variables
// override file values.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	path, err := homedir.Expand(path)
	if err != nil {
		return cfg, err
	}
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.expandPaths(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// LoadFromEnv builds a configuration from environment variables only.
func LoadFromEnv() (Config, error) {
	cfg := Defaults()
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.expandPaths(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.TempDir, &c.Tools.FFmpegPath, &c.Tools.FFprobePath, &c.Tools.ArchiveTool, &c.Tools.PDFTool} {
		v, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("expand %s: %w", *p, err)
		}
		*p = v
	}
	return nil
}

var validate = validator.New()

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Save writes the configuration as YAML.
func (c Config) Save(path string) error {
	path, err := homedir.Expand(path)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// SortingMethod returns the configured reader sorting.
func (c Config) SortingMethod() media.SortingMethod {
	m, err := media.ParseSortingMethod(c.Sorting)
	if err != nil {
		return media.SortLexicographical
	}
	return m
}

// Level returns the configured log level.
func (c Config) Level() ports.LogLevel {
	l, err := ports.ParseLogLevel(c.LogLevel)
	if err != nil {
		return ports.LevelInfo
	}
	return l
}
