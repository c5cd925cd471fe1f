package mp4index

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// encodeFixture renders a short test pattern with a fixed GOP so the
// keyframe positions are known.
func encodeFixture(t *testing.T, extra ...string) string {
	t.Helper()
	ffmpeg, err := exec.LookPath("ffmpeg")
	if err != nil {
		t.Skip("ffmpeg not available")
	}
	out := filepath.Join(t.TempDir(), "fixture.mp4")
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "lavfi", "-i", "testsrc=size=64x48:rate=25",
		"-frames:v", "30",
		"-g", "10", "-keyint_min", "10", "-sc_threshold", "0", "-bf", "0",
		"-pix_fmt", "yuv420p",
	}
	args = append(args, extra...)
	args = append(args, out)
	var stderr bytes.Buffer
	cmd := exec.Command(ffmpeg, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		t.Skipf("cannot encode fixture: %v: %s", err, stderr.String())
	}
	return out
}

func TestBuildFromFile_Progressive(t *testing.T) {
	path := encodeFixture(t, "-c:v", "libx264")

	entries, err := BuildFromFile(path)
	if err != nil {
		t.Fatalf("BuildFromFile failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 keyframes, got %d: %+v", len(entries), entries)
	}
	for i, e := range entries {
		if e.Number != i*10 {
			t.Errorf("keyframe %d: expected number %d, got %d", i, i*10, e.Number)
		}
	}
	if entries[1].PTS <= entries[0].PTS {
		t.Errorf("timestamps must increase: %+v", entries)
	}
}

func TestBuildFromFile_Fragmented(t *testing.T) {
	path := encodeFixture(t, "-c:v", "libx264", "-movflags", "frag_keyframe+empty_moov")

	entries, err := BuildFromFile(path)
	if err != nil {
		t.Fatalf("BuildFromFile failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 keyframes, got %d: %+v", len(entries), entries)
	}
	if entries[2].Number != 20 {
		t.Errorf("expected third keyframe at 20, got %d", entries[2].Number)
	}
}

func TestDetectCodecFile(t *testing.T) {
	path := encodeFixture(t, "-c:v", "libx264")

	codec, err := DetectCodecFile(path)
	if err != nil {
		t.Fatalf("DetectCodecFile failed: %v", err)
	}
	if codec != CodecH264 {
		t.Errorf("expected %s, got %s", CodecH264, codec)
	}
}

func TestBuild_NotMP4(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "*.mp4")
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("definitely not an mp4 file")
	f.Seek(0, 0)
	defer f.Close()

	if _, err := Build(f); err == nil {
		t.Error("expected error for non-mp4 input")
	}
}
