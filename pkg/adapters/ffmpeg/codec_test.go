package ffmpeg

import (
	"errors"
	"strings"
	"testing"

	"github.com/user/mediachunk/pkg/ports"
)

const sampleEncoders = `Encoders:
 V..... = Video
 A..... = Audio
 ------
 V....D libx264              libx264 H.264 / AVC / MPEG-4 AVC / MPEG-4 part 10 (codec h264)
 V....D libopenh264          OpenH264 H.264 / AVC / MPEG-4 AVC / MPEG-4 part 10 (codec h264)
 A....D aac                  AAC (Advanced Audio Coding)
`

func TestParseEncoders(t *testing.T) {
	got := parseEncoders(sampleEncoders)
	if !got["libx264"] || !got["libopenh264"] {
		t.Errorf("expected both h264 encoders, got %v", got)
	}
	if got["aac"] {
		t.Error("audio encoders must be skipped")
	}
	if got["="] || got["Video"] {
		t.Error("legend lines must be skipped")
	}
}

type staticProber map[string]bool

func (p staticProber) HasEncoder(name string) bool { return p[name] }

var _ ports.CodecProber = staticProber(nil)

func TestSelectCodec(t *testing.T) {
	codec, err := SelectCodec(staticProber{"libx264": true}, "libopenh264", "libx264")
	if err != nil {
		t.Fatalf("SelectCodec failed: %v", err)
	}
	if codec != "libx264" {
		t.Errorf("expected fallback libx264, got %s", codec)
	}

	codec, _ = SelectCodec(staticProber{"libx264": true, "libopenh264": true}, "libopenh264", "libx264")
	if codec != "libopenh264" {
		t.Errorf("expected preferred libopenh264, got %s", codec)
	}

	_, err = SelectCodec(staticProber{}, "libopenh264")
	if !errors.Is(err, ErrNoEncoderAvailable) {
		t.Errorf("expected ErrNoEncoderAvailable, got %v", err)
	}
}

func TestEncodeArgs(t *testing.T) {
	args := encodeArgs("/tmp/out.mp4", 64, 48, 25, ports.EncoderOptions{
		Codec:  "libx264",
		Params: map[string]string{"preset": "ultrafast", "crf": "17"},
	})
	joined := strings.Join(args, " ")

	for _, want := range []string{
		"-f rawvideo -pix_fmt rgba -s 64x48 -r 25 -i pipe:0",
		"-c:v libx264 -pix_fmt yuv420p -crf 17 -preset ultrafast",
		"-f mp4 /tmp/out.mp4",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args %q missing %q", joined, want)
		}
	}
}

func TestDecodeArgs(t *testing.T) {
	c := &container{path: "in.mp4", info: ports.StreamInfo{TimeBase: ports.Rational{Num: 1, Den: 25}}}

	joined := strings.Join(c.decodeArgs(ports.DecodeOptions{}), " ")
	if !strings.Contains(joined, "-threads 1") {
		t.Errorf("single-threaded decode expected: %s", joined)
	}
	if strings.Contains(joined, "-ss") {
		t.Errorf("no seek expected: %s", joined)
	}
	if !strings.Contains(joined, "-noautorotate") || !strings.Contains(joined, "-vf showinfo") {
		t.Errorf("missing decode flags: %s", joined)
	}

	if err := c.Seek(50); err != nil {
		t.Fatal(err)
	}
	joined = strings.Join(c.decodeArgs(ports.DecodeOptions{Threaded: true}), " ")
	if !strings.Contains(joined, "-threads 0") {
		t.Errorf("threaded decode expected: %s", joined)
	}
	if !strings.Contains(joined, "-ss 2.000000 -copyts -i in.mp4") {
		t.Errorf("seek before input expected: %s", joined)
	}
}
