package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/user/mediachunk/pkg/adapters/logger"
	"github.com/user/mediachunk/pkg/ports"
)

// Opener opens videos by probing them with ffprobe and decoding them with
// an ffmpeg subprocess that writes raw RGB frames to a pipe.
type Opener struct {
	// FFmpegPath and FFprobePath override executable discovery when set.
	FFmpegPath  string
	FFprobePath string

	// TempDir holds spooled copies of in-memory sources.
	TempDir string

	Logger ports.Logger
}

// NewOpener creates an Opener that discovers ffmpeg and ffprobe on first use.
func NewOpener(log ports.Logger) *Opener {
	return &Opener{Logger: log}
}

// OpenVideo probes src and returns a container positioned at its start.
// Buffer sources are rewound and spooled to a temporary file, which is
// removed when the container is closed.
func (o *Opener) OpenVideo(ctx context.Context, src ports.VideoSource) (ports.VideoContainer, error) {
	log := logger.OrNoop(o.Logger).WithComponent("ffmpeg")

	ffmpegPath := o.FFmpegPath
	if ffmpegPath == "" {
		p, err := FindFFmpeg()
		if err != nil {
			return nil, err
		}
		ffmpegPath = p
	}
	ffprobePath := o.FFprobePath
	if ffprobePath == "" {
		p, err := FindFFprobe()
		if err != nil {
			return nil, err
		}
		ffprobePath = p
	}

	c := &container{ffmpegPath: ffmpegPath, log: log}
	path := src.Path
	if src.Buffer != nil {
		spooled, err := spool(src.Buffer, o.TempDir)
		if err != nil {
			return nil, err
		}
		c.spooled = spooled
		path = spooled
	}
	c.path = path

	info, err := Probe(ctx, ffprobePath, path)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.info = info
	c.ctx = ctx
	log.Debug("Opened %s: %dx%d, time base %d/%d", src.Name(), info.Width, info.Height, info.TimeBase.Num, info.TimeBase.Den)
	return c, nil
}

func spool(r io.ReadSeeker, dir string) (string, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind video buffer: %w", err)
	}
	f, err := os.CreateTemp(dir, "mediachunk-video-*")
	if err != nil {
		return "", fmt.Errorf("create spool file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("spool video buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

type container struct {
	ctx        context.Context
	ffmpegPath string
	path       string
	spooled    string
	info       ports.StreamInfo
	log        ports.Logger

	seekPTS int64
	seeking bool

	mu      sync.Mutex
	streams []*frameStream
	closed  bool
}

func (c *container) Stream() ports.StreamInfo {
	return c.info
}

func (c *container) Seek(pts int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return os.ErrClosed
	}
	c.seekPTS = pts
	c.seeking = pts > 0
	return nil
}

// seekArg formats pts as seconds, rounded up to the microsecond so the seek
// never lands before the requested keyframe.
func seekArg(pts int64, tb ports.Rational) string {
	if tb.Den == 0 {
		return "0"
	}
	us := (pts*int64(tb.Num)*1_000_000 + int64(tb.Den) - 1) / int64(tb.Den)
	return fmt.Sprintf("%d.%06d", us/1_000_000, us%1_000_000)
}

func (c *container) decodeArgs(opts ports.DecodeOptions) []string {
	threads := "1"
	if opts.Threaded {
		threads = "0"
	}
	args := []string{
		"-hide_banner", "-nostdin",
		"-loglevel", "info",
		"-threads", threads,
		"-noautorotate",
	}
	if c.seeking {
		args = append(args, "-noaccurate_seek", "-ss", seekArg(c.seekPTS, c.info.TimeBase))
	}
	return append(args,
		"-copyts",
		"-i", c.path,
		"-map", "0:v:0",
		"-vf", "showinfo",
		"-fps_mode", "passthrough",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"pipe:1",
	)
}

func (c *container) Decode(opts ports.DecodeOptions) (ports.FrameStream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, os.ErrClosed
	}

	cmd := exec.CommandContext(c.ctx, c.ffmpegPath, c.decodeArgs(opts)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("get stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("get stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	s := &frameStream{
		cmd:    cmd,
		stdout: bufio.NewReaderSize(stdout, 1<<20),
		width:  c.info.Width,
		height: c.info.Height,
		pts:    make(chan int64, 1024),
		done:   make(chan struct{}),
		log:    c.log,
	}
	go s.readLog(stderr)
	c.streams = append(c.streams, s)
	return s, nil
}

// Close closes every frame stream opened from the container and removes any
// spooled copy of the source.
func (c *container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	for _, s := range c.streams {
		errs = append(errs, s.Close())
	}
	c.streams = nil
	if c.spooled != "" {
		if err := os.Remove(c.spooled); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var showinfoPTS = regexp.MustCompile(`Parsed_showinfo.*\bpts:\s*(-?\d+)`)

const stderrTail = 20

type frameStream struct {
	cmd    *exec.Cmd
	stdout *bufio.Reader
	width  int
	height int
	pts    chan int64
	done   chan struct{}
	log    ports.Logger

	tailMu sync.Mutex
	tail   []string

	mu       sync.Mutex
	finished bool
	closed   bool
	waitErr  error
}

// readLog parses frame timestamps from showinfo lines and keeps the last
// lines of other output for error reports.
func (s *frameStream) readLog(r io.Reader) {
	defer close(s.done)
	defer close(s.pts)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		if m := showinfoPTS.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseInt(m[1], 10, 64); err == nil {
				s.pts <- v
			}
			continue
		}
		s.tailMu.Lock()
		s.tail = append(s.tail, line)
		if len(s.tail) > stderrTail {
			s.tail = s.tail[1:]
		}
		s.tailMu.Unlock()
	}
}

func (s *frameStream) stderrText() string {
	s.tailMu.Lock()
	defer s.tailMu.Unlock()
	return strings.Join(s.tail, "\n")
}

func (s *frameStream) Next() (ports.DecodedFrame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.finished {
		return ports.DecodedFrame{}, io.EOF
	}

	img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	row := make([]byte, s.width*3)
	for y := 0; y < s.height; y++ {
		if _, err := io.ReadFull(s.stdout, row); err != nil {
			if y == 0 && errors.Is(err, io.EOF) {
				return ports.DecodedFrame{}, s.finish()
			}
			s.finish()
			return ports.DecodedFrame{}, fmt.Errorf("%w: %v", ErrTruncatedFrame, err)
		}
		off := y * img.Stride
		for x := 0; x < s.width; x++ {
			img.Pix[off+x*4] = row[x*3]
			img.Pix[off+x*4+1] = row[x*3+1]
			img.Pix[off+x*4+2] = row[x*3+2]
			img.Pix[off+x*4+3] = 0xff
		}
	}

	pts, ok := <-s.pts
	if !ok {
		pts = -1
	}
	return ports.DecodedFrame{Image: img, PTS: pts}, nil
}

// finish waits for a process whose output reached end of stream.
func (s *frameStream) finish() error {
	s.finished = true
	s.discardLog()
	err := s.cmd.Wait()
	s.waitErr = err
	if err != nil {
		return fmt.Errorf("ffmpeg decode failed: %w\nstderr: %s", err, s.stderrText())
	}
	return io.EOF
}

// discardLog consumes unread timestamps until the log reader exits.
func (s *frameStream) discardLog() {
	for range s.pts {
	}
	<-s.done
}

// Drain stops decoding and consumes whatever the process still writes so
// that it can exit. It is safe to call on a finished stream.
func (s *frameStream) Drain() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drainLocked()
}

func (s *frameStream) drainLocked() error {
	if s.finished {
		return nil
	}
	s.finished = true
	if s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	io.Copy(io.Discard, s.stdout)
	s.discardLog()
	s.cmd.Wait()
	s.log.Debug("Drained abandoned decoder")
	return nil
}

func (s *frameStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	err := s.drainLocked()
	s.closed = true
	return err
}
