package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/user/mediachunk/pkg/ports"
)

type probeOutput struct {
	Streams []probeStream `json:"streams"`
}

type probeStream struct {
	CodecType    string            `json:"codec_type"`
	Width        int               `json:"width"`
	Height       int               `json:"height"`
	TimeBase     string            `json:"time_base"`
	RFrameRate   string            `json:"r_frame_rate"`
	AvgFrameRate string            `json:"avg_frame_rate"`
	DurationTS   int64             `json:"duration_ts"`
	NbFrames     string            `json:"nb_frames"`
	Tags         map[string]string `json:"tags"`
	SideData     []struct {
		Type     string  `json:"side_data_type"`
		Rotation float64 `json:"rotation"`
	} `json:"side_data_list"`
}

// Probe describes the first video stream of the file at path.
func Probe(ctx context.Context, ffprobePath, path string) (ports.StreamInfo, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_streams",
		"-of", "json",
		path,
	)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return ports.StreamInfo{}, fmt.Errorf("ffprobe %s: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}
	return parseProbe(stdout.Bytes())
}

func parseProbe(data []byte) (ports.StreamInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return ports.StreamInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var s *probeStream
	for i := range out.Streams {
		if out.Streams[i].CodecType == "video" {
			s = &out.Streams[i]
			break
		}
	}
	if s == nil {
		return ports.StreamInfo{}, ErrNoVideoStream
	}

	info := ports.StreamInfo{
		Width:       s.Width,
		Height:      s.Height,
		TimeBase:    parseRational(s.TimeBase),
		GuessedRate: parseRational(s.RFrameRate),
		Duration:    s.DurationTS,
		Metadata:    make(map[string]string, len(s.Tags)+1),
	}
	if info.GuessedRate.Num == 0 {
		info.GuessedRate = parseRational(s.AvgFrameRate)
	}
	if n, err := strconv.Atoi(s.NbFrames); err == nil {
		info.DeclaredFrames = n
	}
	for k, v := range s.Tags {
		info.Metadata[k] = v
	}

	// Newer ffmpeg builds report rotation only as display matrix side data,
	// counter-clockwise and negated relative to the legacy rotate tag.
	if _, ok := info.Metadata["rotate"]; !ok {
		for _, sd := range s.SideData {
			if sd.Type == "Display Matrix" && sd.Rotation != 0 {
				deg := int(math.Round(-sd.Rotation))
				deg = ((deg % 360) + 360) % 360
				if deg != 0 {
					info.Metadata["rotate"] = strconv.Itoa(deg)
				}
			}
		}
	}
	return info, nil
}

func parseRational(s string) ports.Rational {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		n, err := strconv.Atoi(s)
		if err != nil {
			return ports.Rational{}
		}
		return ports.Rational{Num: n, Den: 1}
	}
	n, err1 := strconv.Atoi(num)
	d, err2 := strconv.Atoi(den)
	if err1 != nil || err2 != nil {
		return ports.Rational{}
	}
	return ports.Rational{Num: n, Den: d}
}
