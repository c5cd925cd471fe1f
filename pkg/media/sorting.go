package media

import (
	"fmt"
	"math/rand"
	"regexp"
	"sort"
	"strings"
)

// SortingMethod is the ordering a reader applies to its listing once, at
// construction.
type SortingMethod string

const (
	SortLexicographical SortingMethod = "lexicographical"
	SortNatural         SortingMethod = "natural"
	SortPredefined      SortingMethod = "predefined"
	SortRandom          SortingMethod = "random"
)

// ParseSortingMethod parses a sorting method name. The empty string selects
// lexicographical order.
func ParseSortingMethod(s string) (SortingMethod, error) {
	switch m := SortingMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return SortLexicographical, nil
	case SortLexicographical, SortNatural, SortPredefined, SortRandom:
		return m, nil
	default:
		return "", fmt.Errorf("unknown sorting method: %s", s)
	}
}

// Sort returns a sorted copy of paths. Random order is not reproducible.
func Sort(paths []string, method SortingMethod) []string {
	out := make([]string, len(paths))
	copy(out, paths)

	switch method {
	case SortNatural:
		sort.SliceStable(out, func(i, j int) bool { return NaturalLess(out[i], out[j]) })
	case SortPredefined:
	case SortRandom:
		rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	default:
		sort.Strings(out)
	}
	return out
}

var reNum = regexp.MustCompile(`\d+`)

// NaturalLess orders paths component by component, ignoring case and
// comparing digit runs by value, so "img2.png" sorts before "img10.png".
func NaturalLess(a, b string) bool {
	ap := strings.Split(strings.ReplaceAll(a, "\\", "/"), "/")
	bp := strings.Split(strings.ReplaceAll(b, "\\", "/"), "/")
	for i := 0; i < len(ap) && i < len(bp); i++ {
		if ap[i] == bp[i] {
			continue
		}
		x, y := strings.ToLower(ap[i]), strings.ToLower(bp[i])
		if x == y {
			return ap[i] < bp[i]
		}
		return naturalLess(x, y)
	}
	return len(ap) < len(bp)
}

func naturalLess(a, b string) bool {
	aa := reNum.FindAllStringIndex(a, -1)
	bb := reNum.FindAllStringIndex(b, -1)
	pa, pb := 0, 0
	for i := 0; i < len(aa) && i < len(bb); i++ {
		if a[pa:aa[i][0]] != b[pb:bb[i][0]] {
			return a[pa:aa[i][0]] < b[pb:bb[i][0]]
		}
		if c := compareDigits(a[aa[i][0]:aa[i][1]], b[bb[i][0]:bb[i][1]]); c != 0 {
			return c < 0
		}
		pa = aa[i][1]
		pb = bb[i][1]
	}
	if a[pa:] != b[pb:] {
		return a[pa:] < b[pb:]
	}
	return a < b
}

// compareDigits compares two decimal digit runs by value without parsing,
// so runs longer than an int still order correctly.
func compareDigits(x, y string) int {
	x = strings.TrimLeft(x, "0")
	y = strings.TrimLeft(y, "0")
	if len(x) != len(y) {
		if len(x) < len(y) {
			return -1
		}
		return 1
	}
	return strings.Compare(x, y)
}
