// Package manifest models the ordered frame index that lets readers seek to
// keyframes and address images without a full decode.
package manifest

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/user/mediachunk/pkg/randomaccess"
)

// ErrOutOfRange is returned when an id is not present in an index.
var ErrOutOfRange = errors.New("manifest: frame id out of range")

// Entry describes one manifest record. Video manifests list keyframes with
// their presentation timestamps; image manifests list every frame with its
// path and size.
type Entry struct {
	Number int    `db:"number" json:"number"`
	PTS    int64  `db:"pts" json:"pts,omitempty"`
	Path   string `db:"path" json:"name,omitempty"`
	Width  int    `db:"width" json:"width,omitempty"`
	Height int    `db:"height" json:"height,omitempty"`
}

// Index is an ordered, index-addressable list of entries sorted by Number.
type Index interface {
	Len() int
	At(i int) Entry
}

// Memory is an in-memory Index.
type Memory []Entry

// NewMemory returns entries sorted by frame number.
func NewMemory(entries []Entry) Memory {
	m := make(Memory, len(entries))
	copy(m, entries)
	sort.SliceStable(m, func(i, j int) bool { return m[i].Number < m[j].Number })
	return m
}

func (m Memory) Len() int       { return len(m) }
func (m Memory) At(i int) Entry { return m[i] }

// NearestKeyframe returns the number and timestamp of the last entry whose
// number is not greater than id. When no such entry exists, including for
// an empty index, decoding starts at frame 0, timestamp 0.
func NearestKeyframe(idx Index, id int) (number int, pts int64) {
	if idx == nil {
		return 0, 0
	}
	// First position whose number is greater than id.
	pos := sort.Search(idx.Len(), func(i int) bool { return idx.At(i).Number > id })
	if pos == 0 {
		return 0, 0
	}
	e := idx.At(pos - 1)
	return e.Number, e.PTS
}

// ImageFrames iterates the entries of an image manifest at the given
// positions, in the order given.
func ImageFrames(idx Index, ids []int) randomaccess.Iterator[Entry] {
	pos := 0
	return randomaccess.NewFuncIterator(func() (Entry, error) {
		if pos >= len(ids) {
			return Entry{}, io.EOF
		}
		id := ids[pos]
		if id < 0 || id >= idx.Len() {
			return Entry{}, fmt.Errorf("%w: %d", ErrOutOfRange, id)
		}
		pos++
		return idx.At(id), nil
	}, nil)
}
