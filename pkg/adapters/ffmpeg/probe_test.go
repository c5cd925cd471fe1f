package ffmpeg

import (
	"testing"

	"github.com/user/mediachunk/pkg/ports"
)

const sampleProbe = `{
  "streams": [
    {
      "index": 0,
      "codec_name": "h264",
      "codec_type": "video",
      "width": 1920,
      "height": 1080,
      "r_frame_rate": "30000/1001",
      "avg_frame_rate": "30000/1001",
      "time_base": "1/30000",
      "duration_ts": 900900,
      "nb_frames": "900",
      "tags": {"language": "und", "DURATION": "00:00:30.030000000"},
      "side_data_list": [{"side_data_type": "Display Matrix", "rotation": -90}]
    }
  ]
}`

func TestParseProbe(t *testing.T) {
	info, err := parseProbe([]byte(sampleProbe))
	if err != nil {
		t.Fatalf("parseProbe failed: %v", err)
	}

	if info.Width != 1920 || info.Height != 1080 {
		t.Errorf("unexpected size %dx%d", info.Width, info.Height)
	}
	if info.TimeBase != (ports.Rational{Num: 1, Den: 30000}) {
		t.Errorf("unexpected time base %+v", info.TimeBase)
	}
	if info.GuessedRate != (ports.Rational{Num: 30000, Den: 1001}) {
		t.Errorf("unexpected rate %+v", info.GuessedRate)
	}
	if info.Duration != 900900 {
		t.Errorf("unexpected duration %d", info.Duration)
	}
	if info.DeclaredFrames != 900 {
		t.Errorf("unexpected declared frames %d", info.DeclaredFrames)
	}
	if got := info.Metadata["rotate"]; got != "90" {
		t.Errorf("expected rotate 90 from display matrix, got %q", got)
	}
	if got := info.Metadata["DURATION"]; got != "00:00:30.030000000" {
		t.Errorf("expected DURATION tag, got %q", got)
	}
}

func TestParseProbe_RotateTagWins(t *testing.T) {
	data := `{"streams":[{"codec_type":"video","width":2,"height":2,"time_base":"1/25",
		"tags":{"rotate":"270"},"side_data_list":[{"side_data_type":"Display Matrix","rotation":-90}]}]}`
	info, err := parseProbe([]byte(data))
	if err != nil {
		t.Fatalf("parseProbe failed: %v", err)
	}
	if got := info.Metadata["rotate"]; got != "270" {
		t.Errorf("expected rotate tag to be kept, got %q", got)
	}
}

func TestParseProbe_NoVideo(t *testing.T) {
	_, err := parseProbe([]byte(`{"streams":[{"codec_type":"audio"}]}`))
	if err != ErrNoVideoStream {
		t.Errorf("expected ErrNoVideoStream, got %v", err)
	}
}

func TestParseRational(t *testing.T) {
	tests := []struct {
		in   string
		want ports.Rational
	}{
		{"1/25", ports.Rational{Num: 1, Den: 25}},
		{"25", ports.Rational{Num: 25, Den: 1}},
		{"0/0", ports.Rational{Num: 0, Den: 0}},
		{"bogus", ports.Rational{}},
	}
	for _, tt := range tests {
		if got := parseRational(tt.in); got != tt.want {
			t.Errorf("parseRational(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestSeekArg(t *testing.T) {
	tests := []struct {
		pts  int64
		tb   ports.Rational
		want string
	}{
		{0, ports.Rational{Num: 1, Den: 12800}, "0.000000"},
		{2000, ports.Rational{Num: 1, Den: 12800}, "0.156250"},
		{1, ports.Rational{Num: 1, Den: 3}, "0.333334"},
		{90000 * 5, ports.Rational{Num: 1, Den: 90000}, "5.000000"},
		{10, ports.Rational{}, "0"},
	}
	for _, tt := range tests {
		if got := seekArg(tt.pts, tt.tb); got != tt.want {
			t.Errorf("seekArg(%d, %+v) = %q, want %q", tt.pts, tt.tb, got, tt.want)
		}
	}
}
