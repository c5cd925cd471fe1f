package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/mediachunk/pkg/randomaccess"
)

func TestNearestKeyframe(t *testing.T) {
	idx := NewMemory([]Entry{
		{Number: 100, PTS: 4000},
		{Number: 0, PTS: 0},
		{Number: 50, PTS: 2000},
	})

	tests := []struct {
		id         int
		wantNumber int
		wantPTS    int64
	}{
		{0, 0, 0},
		{49, 0, 0},
		{50, 50, 2000},
		{75, 50, 2000},
		{100, 100, 4000},
		{1000, 100, 4000},
	}
	for _, tt := range tests {
		n, pts := NearestKeyframe(idx, tt.id)
		assert.Equal(t, tt.wantNumber, n, "id %d", tt.id)
		assert.Equal(t, tt.wantPTS, pts, "id %d", tt.id)
	}
}

func TestNearestKeyframe_Empty(t *testing.T) {
	n, pts := NearestKeyframe(Memory{}, 42)
	assert.Zero(t, n)
	assert.Zero(t, pts)

	n, pts = NearestKeyframe(nil, 42)
	assert.Zero(t, n)
	assert.Zero(t, pts)
}

func TestNearestKeyframe_BeforeFirst(t *testing.T) {
	n, pts := NearestKeyframe(NewMemory([]Entry{{Number: 10, PTS: 500}}), 3)
	assert.Zero(t, n)
	assert.Zero(t, pts)
}

func TestImageFrames(t *testing.T) {
	idx := NewMemory([]Entry{
		{Number: 0, Path: "a.jpg"},
		{Number: 1, Path: "b.jpg"},
		{Number: 2, Path: "c.jpg"},
	})

	got, err := randomaccess.Collect(ImageFrames(idx, []int{2, 0}))
	require.NoError(t, err)
	assert.Equal(t, []string{"c.jpg", "a.jpg"}, []string{got[0].Path, got[1].Path})

	_, err = randomaccess.Collect(ImageFrames(idx, []int{5}))
	assert.ErrorIs(t, err, ErrOutOfRange)
}
