// Package main provides the CLI entry point for mediachunk.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/mediachunk/pkg/adapters/extract"
	"github.com/user/mediachunk/pkg/adapters/ffmpeg"
	"github.com/user/mediachunk/pkg/adapters/logger"
	"github.com/user/mediachunk/pkg/adapters/mp4index"
	"github.com/user/mediachunk/pkg/adapters/sqlitemanifest"
	"github.com/user/mediachunk/pkg/chunk"
	"github.com/user/mediachunk/pkg/config"
	"github.com/user/mediachunk/pkg/imaging"
	"github.com/user/mediachunk/pkg/ingest"
	"github.com/user/mediachunk/pkg/media"
	"github.com/user/mediachunk/pkg/pointcloud"
	"github.com/user/mediachunk/pkg/ports"
)

var version = "dev"

// state is shared by the commands of one run. Before fills it from the
// config file, the environment and the global flags.
type state struct {
	cfg config.Config
	log ports.Logger
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, l10n.T("Interrupted, shutting down..."))
		cancel()
	}()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	st := &state{cfg: config.Defaults(), log: logger.NewNoop()}

	rangeFlags := func() []cli.Flag {
		return []cli.Flag{
			&cli.IntFlag{Name: "start", Usage: l10n.T("First frame index")},
			&cli.IntFlag{Name: "stop", Usage: l10n.T("Last frame index, inclusive")},
			&cli.IntFlag{Name: "step", Value: 1, Usage: l10n.T("Frame step")},
			&cli.StringFlag{Name: "sorting", Usage: l10n.T("Sorting method (lexicographical, natural, predefined, random)")},
			&cli.StringFlag{Name: "extract-dir", Usage: l10n.T("Directory receiving extracted content")},
		}
	}

	return &cli.App{
		Name:    "mediachunk",
		Usage:   l10n.T("Read media datasets and cut them into chunks"),
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: l10n.T("Configuration file (YAML)")},
			&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Usage: l10n.T("Log level (debug, info, warn, error)")},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"Q"}, Usage: l10n.T("Suppress all log output")},
		},
		Before: st.load,
		Commands: []*cli.Command{
			{
				Name:      "info",
				Usage:     l10n.T("Describe a dataset"),
				ArgsUsage: "PATH...",
				Flags:     rangeFlags(),
				Action:    st.info,
			},
			{
				Name:      "preview",
				Usage:     l10n.T("Write the preview of one frame as PNG"),
				ArgsUsage: "PATH...",
				Flags: append([]cli.Flag{
					&cli.IntFlag{Name: "frame", Usage: l10n.T("Frame to preview")},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true, Usage: l10n.T("Output PNG file path (required)")},
				}, rangeFlags()...),
				Action: st.preview,
			},
			{
				Name:      "chunk",
				Usage:     l10n.T("Cut a dataset into chunks"),
				ArgsUsage: "PATH...",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true, Usage: l10n.T("Output directory (required)")},
					&cli.IntFlag{Name: "size", Usage: l10n.T("Frames per chunk")},
					&cli.StringSliceFlag{Name: "quality", Value: cli.NewStringSlice("compressed", "original"), Usage: l10n.T("Chunk qualities to write (compressed, original)")},
					&cli.BoolFlag{Name: "zip", Usage: l10n.T("Store video frames in zip chunks")},
					&cli.StringFlag{Name: "keyframes", Usage: l10n.T("Keyframe manifest database for seeking")},
				}, rangeFlags()...),
				Action: st.chunk,
			},
			{
				Name:      "validate",
				Usage:     l10n.T("Detect the dimension of a dataset directory"),
				ArgsUsage: "DIR",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "keep-bin", Usage: l10n.T("Keep .bin point clouds after conversion")},
				},
				Action: st.validate,
			},
			{
				Name:      "keyframes",
				Usage:     l10n.T("Index the keyframes of an MP4 file"),
				ArgsUsage: "VIDEO",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "db", Required: true, Usage: l10n.T("Manifest database path (required)")},
				},
				Action: st.keyframes,
			},
			{
				Name:  "config",
				Usage: l10n.T("Manage configuration files"),
				Subcommands: []*cli.Command{
					{
						Name:      "init",
						Usage:     l10n.T("Write the default configuration"),
						ArgsUsage: "PATH",
						Action:    st.configInit,
					},
				},
			},
			{
				Name:  "version",
				Usage: l10n.T("Show version information"),
				Action: func(c *cli.Context) error {
					fmt.Fprintln(c.App.Writer, l10n.F("mediachunk version %s", version))
					return nil
				},
			},
		},
	}
}

// load builds the configuration and logger from --config, the environment
// and the global flags, in increasing priority.
func (st *state) load(c *cli.Context) error {
	var err error
	if path := c.String("config"); path != "" {
		st.cfg, err = config.LoadFromFile(path)
	} else {
		st.cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return err
	}

	level := st.cfg.Level()
	if c.IsSet("log-level") {
		level, err = ports.ParseLogLevel(c.String("log-level"))
		if err != nil {
			return err
		}
	}
	switch {
	case c.Bool("quiet") || level == ports.LevelQuiet:
		st.log = logger.NewNoop()
	case c.App.Writer == os.Stdout:
		st.log = logger.NewConsole(level)
	default:
		st.log = logger.NewConsole(level, logger.WithWriters(c.App.Writer, c.App.ErrWriter))
	}

	ffmpeg.SetFFmpegPath(st.cfg.Tools.FFmpegPath)
	ffmpeg.SetFFprobePath(st.cfg.Tools.FFprobePath)
	return nil
}

func (st *state) service() *ingest.Service {
	cfg := st.cfg
	return &ingest.Service{
		Registry:   media.DefaultRegistry(),
		Extractor:  extract.NewArchiver(cfg.Tools.ArchiveTool, st.log),
		Rasterizer: extract.NewRasterizer(cfg.Tools.PDFTool, st.log),
		Opener: &ffmpeg.Opener{
			FFmpegPath:  cfg.Tools.FFmpegPath,
			FFprobePath: cfg.Tools.FFprobePath,
			TempDir:     cfg.TempDir,
			Logger:      st.log,
		},
		NewEncoder: ffmpeg.Factory(cfg.Tools.FFmpegPath, st.log),
		Prober:     &ffmpeg.Prober{FFmpegPath: cfg.Tools.FFmpegPath},
		Chunk: ingest.ChunkSettings{
			ImageQuality:     cfg.Chunk.ImageQuality,
			VideoQuality:     cfg.Chunk.VideoQuality,
			ZipCompressLevel: cfg.Chunk.ZipCompressLevel,
			CompressFrames:   cfg.Chunk.CompressFrames,
		},
		Cache: ingest.CacheSettings{
			MaxMemory:  cfg.Cache.MaxMemory,
			MaxEntries: cfg.Cache.MaxEntries,
		},
		Logger: st.log,
	}
}

func (st *state) openOptions(c *cli.Context) (ingest.Options, error) {
	opts := ingest.Options{
		Start:      c.Int("start"),
		Step:       c.Int("step"),
		Sorting:    st.cfg.SortingMethod(),
		ExtractDir: c.String("extract-dir"),
		Threaded:   st.cfg.AllowThreading,
	}
	if c.IsSet("stop") {
		opts.Stop = media.Stop(c.Int("stop"))
	}
	if c.IsSet("sorting") {
		m, err := media.ParseSortingMethod(c.String("sorting"))
		if err != nil {
			return opts, err
		}
		opts.Sorting = m
	}
	return opts, nil
}

func (st *state) open(c *cli.Context, svc *ingest.Service, opts ingest.Options) (*ingest.Dataset, error) {
	if c.NArg() == 0 {
		return nil, errors.New(l10n.T("At least one input path is required"))
	}
	return svc.Open(c.Context, c.Args().Slice(), opts)
}

func (st *state) info(c *cli.Context) error {
	opts, err := st.openOptions(c)
	if err != nil {
		return err
	}
	ds, err := st.open(c, st.service(), opts)
	if err != nil {
		return err
	}
	defer ds.Close()

	w := c.App.Writer
	fmt.Fprintln(w, l10n.F("Category: %s", ds.Category))
	fmt.Fprintln(w, l10n.F("Mode: %s", ds.Mode))
	fmt.Fprintln(w, l10n.F("Dimension: %s", ds.Dimension))
	fmt.Fprintln(w, l10n.F("Frames: %d", ds.Len()))
	if width, height, err := ds.Sequence.ImageSize(0); err == nil {
		fmt.Fprintln(w, l10n.F("Frame size: %dx%d", width, height))
	}
	if ds.Video != nil {
		if d, err := ds.Video.Duration(c.Context); err == nil && d > 0 {
			fmt.Fprintln(w, l10n.F("Duration: %.2fs", d))
		}
	}
	return nil
}

func (st *state) preview(c *cli.Context) error {
	opts, err := st.openOptions(c)
	if err != nil {
		return err
	}
	ds, err := st.open(c, st.service(), opts)
	if err != nil {
		return err
	}
	defer ds.Close()

	img, err := ds.Sequence.Preview(c.Int("frame"))
	if err != nil {
		return err
	}
	data, err := imaging.EncodeAs(img, "png")
	if err != nil {
		return err
	}
	out := c.String("output")
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write preview: %w", err)
	}
	st.log.Info("Output saved to %s", out)
	return nil
}

func (st *state) chunk(c *cli.Context) error {
	opts, err := st.openOptions(c)
	if err != nil {
		return err
	}

	var qualities []chunk.FrameQuality
	for _, q := range c.StringSlice("quality") {
		fq, err := chunk.ParseFrameQuality(q)
		if err != nil {
			return err
		}
		qualities = append(qualities, fq)
	}

	if db := c.String("keyframes"); db != "" {
		store, err := sqlitemanifest.Open(db, st.log)
		if err != nil {
			return err
		}
		index, err := store.Load(c.Context)
		store.Close()
		if err != nil {
			return err
		}
		opts.Keyframes = index
	}

	svc := st.service()
	svc.Chunk.UseZipChunks = c.Bool("zip")
	ds, err := st.open(c, svc, opts)
	if err != nil {
		return err
	}
	defer ds.Close()

	size := st.cfg.Chunk.Size
	if c.IsSet("size") {
		size = c.Int("size")
	}

	outDir := c.String("output")
	for _, q := range qualities {
		if err := os.MkdirAll(filepath.Join(outDir, q.String()), 0o755); err != nil {
			return err
		}
	}

	chunks := ds.ChunkIDs(size)
	for i, ids := range chunks {
		for _, q := range qualities {
			w, err := svc.Writer(ds, q)
			if err != nil {
				return err
			}
			ext := "zip"
			if _, ok := w.(*chunk.VideoWriter); ok {
				ext = "mp4"
			}
			path := filepath.Join(outDir, q.String(), fmt.Sprintf("%d.%s", i, ext))
			if _, err := svc.WriteChunk(c.Context, ds, q, ids, path); err != nil {
				return err
			}
		}
	}
	st.log.Info("Wrote %d chunks to %s", len(chunks), outDir)
	return nil
}

func (st *state) validate(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New(l10n.T("A directory argument is required"))
	}
	v := pointcloud.Validator{IsImage: media.IsImagePath, KeepBin: c.Bool("keep-bin"), Logger: st.log}
	res, err := v.Validate(c.Args().First())
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintln(w, l10n.F("Dimension: %s", res.Dimension))
	fmt.Fprintln(w, l10n.F("Point clouds: %d", len(res.RelatedFiles)))
	fmt.Fprintln(w, l10n.F("Images: %d", len(res.ImageFiles)))
	fmt.Fprintln(w, l10n.F("Converted: %d", len(res.ConvertedFiles)))
	return nil
}

func (st *state) keyframes(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New(l10n.T("A video argument is required"))
	}
	entries, err := mp4index.BuildFromFile(c.Args().First())
	if err != nil {
		return err
	}

	store, err := sqlitemanifest.Open(c.String("db"), st.log)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Replace(c.Context, entries); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, l10n.F("Indexed %d keyframes", len(entries)))
	return nil
}

func (st *state) configInit(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		path = "mediachunk.yaml"
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s: %w", path, os.ErrExist)
	}
	if err := config.Defaults().Save(path); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, l10n.F("Output saved to %s", path))
	return nil
}
