// Package mp4index builds keyframe manifests for MP4 sources directly from
// the container's sample tables, without decoding any frames.
package mp4index

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/user/mediachunk/pkg/manifest"
)

// ErrNoVideoTrack is returned when the file has no video track.
var ErrNoVideoTrack = errors.New("mp4index: no video track found")

// BuildFromFile builds the keyframe index of the MP4 file at path.
func BuildFromFile(path string) ([]manifest.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()
	return Build(f)
}

// Build returns one entry per sync sample. Number is the zero-based frame
// index in decode order and PTS is the presentation time in the track
// timescale.
func Build(r io.ReadSeeker) ([]manifest.Entry, error) {
	f, err := mp4.DecodeFile(r)
	if err != nil {
		return nil, fmt.Errorf("decode mp4: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek: %w", err)
	}

	if f.IsFragmented() {
		return buildFragmented(f)
	}
	return buildProgressive(f)
}

func buildProgressive(f *mp4.File) ([]manifest.Entry, error) {
	if f.Moov == nil {
		return nil, ErrNoVideoTrack
	}
	trak := videoTrack(f.Moov.Traks)
	if trak == nil || trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil {
		return nil, ErrNoVideoTrack
	}
	stbl := trak.Mdia.Minf.Stbl
	if stbl.Stts == nil || stbl.Stsz == nil {
		return nil, fmt.Errorf("mp4index: video track has no sample tables")
	}

	var syncSamples []uint32
	if stbl.Stss != nil {
		syncSamples = stbl.Stss.SampleNumber
	} else {
		// Without stss every sample is a sync sample.
		syncSamples = make([]uint32, stbl.Stsz.SampleNumber)
		for i := range syncSamples {
			syncSamples[i] = uint32(i + 1)
		}
	}

	entries := make([]manifest.Entry, 0, len(syncSamples))
	for _, nr := range syncSamples {
		decTime, _ := stbl.Stts.GetDecodeTime(nr)
		pts := int64(decTime)
		if stbl.Ctts != nil {
			pts += int64(stbl.Ctts.GetCompositionTimeOffset(nr))
		}
		entries = append(entries, manifest.Entry{Number: int(nr) - 1, PTS: pts})
	}
	return entries, nil
}

func buildFragmented(f *mp4.File) ([]manifest.Entry, error) {
	if f.Init == nil || f.Init.Moov == nil {
		return nil, ErrNoVideoTrack
	}
	trak := videoTrack(f.Init.Moov.Traks)
	if trak == nil {
		return nil, ErrNoVideoTrack
	}
	trackID := trak.Tkhd.TrackID

	var trex *mp4.TrexBox
	if f.Init.Moov.Mvex != nil {
		for _, t := range f.Init.Moov.Mvex.Trexs {
			if t.TrackID == trackID {
				trex = t
				break
			}
		}
	}

	var entries []manifest.Entry
	number := 0
	for _, seg := range f.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil || frag.Moof.Traf == nil || frag.Moof.Traf.Tfhd.TrackID != trackID {
				continue
			}
			samples, err := frag.GetFullSamples(trex)
			if err != nil {
				return nil, fmt.Errorf("get samples: %w", err)
			}
			for _, s := range samples {
				if s.IsSync() {
					pts := int64(s.DecodeTime) + int64(s.CompositionTimeOffset)
					entries = append(entries, manifest.Entry{Number: number, PTS: pts})
				}
				number++
			}
		}
	}
	return entries, nil
}

func videoTrack(traks []*mp4.TrakBox) *mp4.TrakBox {
	for _, trak := range traks {
		if trak.Mdia != nil && trak.Mdia.Hdlr != nil && trak.Mdia.Hdlr.HandlerType == "vide" {
			return trak
		}
	}
	return nil
}
