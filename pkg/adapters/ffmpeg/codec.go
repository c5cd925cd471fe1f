package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/user/mediachunk/pkg/ports"
)

// AvailableEncoders lists the video encoders built into the ffmpeg at path.
func AvailableEncoders(ctx context.Context, ffmpegPath string) (map[string]bool, error) {
	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, ffmpegPath, "-hide_banner", "-encoders")
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("list ffmpeg encoders: %w", err)
	}
	return parseEncoders(stdout.String()), nil
}

// parseEncoders reads lines such as " V....D libx264   libx264 H.264 ...".
// The listing header ends with a "------" separator line.
func parseEncoders(out string) map[string]bool {
	encoders := make(map[string]bool)
	inList := false
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "------") {
			inList = true
			continue
		}
		if !inList {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || !strings.HasPrefix(fields[0], "V") {
			continue
		}
		encoders[fields[1]] = true
	}
	return encoders
}

// Prober answers encoder availability queries, listing encoders once.
type Prober struct {
	FFmpegPath string

	once     sync.Once
	encoders map[string]bool
	err      error
}

// HasEncoder reports whether ffmpeg provides the named encoder. A failure
// to run ffmpeg reports every encoder as missing.
func (p *Prober) HasEncoder(name string) bool {
	p.once.Do(func() {
		path := p.FFmpegPath
		if path == "" {
			path, p.err = FindFFmpeg()
			if p.err != nil {
				return
			}
		}
		p.encoders, p.err = AvailableEncoders(context.Background(), path)
	})
	return p.err == nil && p.encoders[name]
}

// Err returns the error from listing encoders, if any.
func (p *Prober) Err() error {
	return p.err
}

var _ ports.CodecProber = (*Prober)(nil)

// SelectCodec returns the first candidate the prober reports as available.
func SelectCodec(p ports.CodecProber, candidates ...string) (string, error) {
	for _, c := range candidates {
		if p.HasEncoder(c) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrNoEncoderAvailable, strings.Join(candidates, ", "))
}
