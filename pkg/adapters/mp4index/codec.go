package mp4index

import (
	"fmt"
	"io"
	"os"

	"github.com/Eyevinn/mp4ff/mp4"
)

// Codec is a video codec family.
type Codec string

const (
	CodecH264    Codec = "h264"
	CodecHEVC    Codec = "hevc"
	CodecAV1     Codec = "av1"
	CodecVP9     Codec = "vp9"
	CodecUnknown Codec = "unknown"
)

// DetectCodecFile detects the video codec of the MP4 file at path.
func DetectCodecFile(path string) (Codec, error) {
	f, err := os.Open(path)
	if err != nil {
		return CodecUnknown, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()
	return DetectCodec(f)
}

// DetectCodec reads the sample description of the first video track and
// rewinds r afterwards.
func DetectCodec(r io.ReadSeeker) (Codec, error) {
	f, err := mp4.DecodeFile(r)
	if err != nil {
		return CodecUnknown, fmt.Errorf("decode mp4: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return CodecUnknown, fmt.Errorf("seek: %w", err)
	}

	var traks []*mp4.TrakBox
	switch {
	case f.IsFragmented() && f.Init != nil && f.Init.Moov != nil:
		traks = f.Init.Moov.Traks
	case f.Moov != nil:
		traks = f.Moov.Traks
	}

	trak := videoTrack(traks)
	if trak == nil {
		return CodecUnknown, ErrNoVideoTrack
	}
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
		return CodecUnknown, nil
	}
	for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
		switch child.Type() {
		case "avc1", "avc3":
			return CodecH264, nil
		case "hvc1", "hev1":
			return CodecHEVC, nil
		case "av01":
			return CodecAV1, nil
		case "vp09":
			return CodecVP9, nil
		}
	}
	return CodecUnknown, nil
}
