package randomaccess

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sizeByValue(v int) int64 { return int64(v) }

func TestCaching_HitDoesNotTouchSource(t *testing.T) {
	src := &countingSource{items: []int{1, 1, 1, 1}}
	c := NewCaching[int](src, Options[int]{MaxMemory: 100, MaxEntries: 10, SizeFunc: sizeByValue})
	defer c.Close()

	_, err := c.Get(2)
	require.NoError(t, err)
	pulled := src.pulled

	_, err = c.Get(2)
	require.NoError(t, err)
	_, err = c.Get(0)
	require.NoError(t, err)

	// Index 0 was not cached, so it required a restart; index 2 did not.
	assert.Equal(t, 2, src.opened)
	assert.Equal(t, pulled+1, src.pulled)
}

func TestCaching_EvictsSmallestIndexByCount(t *testing.T) {
	src := &countingSource{items: []int{1, 1, 1, 1, 1}}
	c := NewCaching[int](src, Options[int]{MaxMemory: 100, MaxEntries: 3, SizeFunc: sizeByValue})

	for _, i := range []int{0, 1, 2, 3, 4} {
		_, err := c.Get(i)
		require.NoError(t, err)
	}

	if diff := cmp.Diff([]int{2, 3, 4}, c.Cached()); diff != "" {
		t.Errorf("cached indices mismatch (-want +got):\n%s", diff)
	}
	assert.EqualValues(t, 3, c.UsedMemory())
}

func TestCaching_EvictsSmallestIndexNotLRU(t *testing.T) {
	src := &countingSource{items: []int{1, 1, 1, 1}}
	c := NewCaching[int](src, Options[int]{MaxMemory: 100, MaxEntries: 2, SizeFunc: sizeByValue})

	for _, i := range []int{3, 1, 0} {
		_, err := c.Get(i)
		require.NoError(t, err)
	}

	// 1 was used more recently than 3 but has the smaller index.
	assert.Equal(t, []int{0, 3}, c.Cached())
}

func TestCaching_EvictsByMemory(t *testing.T) {
	src := &countingSource{items: []int{4, 4, 4, 6}}
	c := NewCaching[int](src, Options[int]{MaxMemory: 10, MaxEntries: 10, SizeFunc: sizeByValue})

	for i := range src.items {
		_, err := c.Get(i)
		require.NoError(t, err)
	}

	assert.Equal(t, []int{2, 3}, c.Cached())
	assert.EqualValues(t, 10, c.UsedMemory())
}

func TestCaching_OversizedValueReturnedNotCached(t *testing.T) {
	src := &countingSource{items: []int{2, 50, 3}}
	c := NewCaching[int](src, Options[int]{MaxMemory: 10, MaxEntries: 10, SizeFunc: sizeByValue})

	v, err := c.Get(1)
	require.NoError(t, err)
	assert.Equal(t, 50, v)
	assert.Zero(t, c.Len())
	assert.Zero(t, c.UsedMemory())
}

func TestCaching_ZeroEntriesNeverCaches(t *testing.T) {
	src := &countingSource{items: []int{1, 2}}
	c := NewCaching[int](src, Options[int]{MaxMemory: 100, MaxEntries: 0, SizeFunc: sizeByValue})

	v, err := c.Get(1)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Zero(t, c.Len())
}

func TestCaching_NextAdvancesOverHits(t *testing.T) {
	src := &countingSource{items: []int{7, 8, 9}}
	c := NewCaching[int](src, Options[int]{MaxMemory: 100, MaxEntries: 10, SizeFunc: sizeByValue})

	_, err := c.Get(0)
	require.NoError(t, err)
	_, err = c.Get(1)
	require.NoError(t, err)
	_, err = c.Get(0)
	require.NoError(t, err)

	v, err := c.Next()
	require.NoError(t, err)
	assert.Equal(t, 8, v)
	v, err = c.Next()
	require.NoError(t, err)
	assert.Equal(t, 9, v)
}

func TestCaching_BoundsHoldUnderRandomAccess(t *testing.T) {
	items := make([]int, 50)
	for i := range items {
		items[i] = 1 + i%7
	}
	src := &countingSource{items: items}
	c := NewCaching[int](src, Options[int]{MaxMemory: 20, MaxEntries: 5, SizeFunc: sizeByValue})
	defer c.Close()

	rng := rand.New(rand.NewSource(1))
	for n := 0; n < 500; n++ {
		idx := rng.Intn(len(items))
		v, err := c.Get(idx)
		require.NoError(t, err)
		assert.Equal(t, items[idx], v)

		var sum int64
		for _, k := range c.Cached() {
			sum += int64(items[k])
		}
		assert.Equal(t, sum, c.UsedMemory())
		assert.LessOrEqual(t, c.UsedMemory(), int64(20))
		assert.LessOrEqual(t, c.Len(), 5)
	}
}

type sizedValue struct{ n int64 }

func (s sizedValue) MemorySize() int64 { return s.n }

func TestDefaultSize(t *testing.T) {
	assert.EqualValues(t, 3, DefaultSize([]byte("abc")))
	assert.EqualValues(t, 42, DefaultSize(sizedValue{n: 42}))
	assert.EqualValues(t, 0, DefaultSize(struct{}{}))

	src := SliceIterable([]sizedValue{{n: 4}, {n: 5}})
	c := NewCaching[sizedValue](src, Options[sizedValue]{MaxMemory: 100, MaxEntries: 10})
	_, err := c.Get(1)
	require.NoError(t, err)
	assert.EqualValues(t, 5, c.UsedMemory())
}
