package media

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSort(t *testing.T) {
	in := []string{"img10.png", "img2.png", "img1.png"}

	tests := []struct {
		method SortingMethod
		want   []string
	}{
		{SortLexicographical, []string{"img1.png", "img10.png", "img2.png"}},
		{SortNatural, []string{"img1.png", "img2.png", "img10.png"}},
		{SortPredefined, []string{"img10.png", "img2.png", "img1.png"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.method), func(t *testing.T) {
			got := Sort(in, tt.method)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Sort(%s) mismatch (-want +got):\n%s", tt.method, diff)
			}
		})
	}

	assert.Equal(t, []string{"img10.png", "img2.png", "img1.png"}, in, "input must not be modified")
}

func TestSort_RandomIsPermutation(t *testing.T) {
	in := []string{"a", "b", "c", "d", "e"}
	got := Sort(in, SortRandom)
	assert.ElementsMatch(t, in, got)
}

func TestNaturalLess(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"img2.png", "img10.png", true},
		{"img10.png", "img2.png", false},
		{"IMG2.png", "img10.png", true},
		{"a/img9.png", "b/img1.png", true},
		{"dir2/x.png", "dir10/a.png", true},
		{"frame.png", "frame1.png", true},
		{"f99999999999999999999.png", "f100000000000000000000.png", true},
		{"a.png", "a.png", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NaturalLess(tt.a, tt.b), "NaturalLess(%q, %q)", tt.a, tt.b)
	}
}

func TestParseSortingMethod(t *testing.T) {
	m, err := ParseSortingMethod("Natural")
	require.NoError(t, err)
	assert.Equal(t, SortNatural, m)

	m, err = ParseSortingMethod("")
	require.NoError(t, err)
	assert.Equal(t, SortLexicographical, m)

	_, err = ParseSortingMethod("by-size")
	assert.Error(t, err)
}
