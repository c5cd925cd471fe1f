package video

// Filter selects which decoded frames an iteration emits. Frame numbers
// must be ascending.
type Filter struct {
	mode filterMode
	ids  []int
}

type filterMode int

const (
	filterConfigured filterMode = iota
	filterAll
	filterOnly
)

// Configured emits the frames of the reader's start, stop and step.
func Configured() Filter { return Filter{mode: filterConfigured} }

// AllFrames emits every decoded frame.
func AllFrames() Filter { return Filter{mode: filterAll} }

// Only emits the given ascending frame numbers.
func Only(ids ...int) Filter { return Filter{mode: filterOnly, ids: ids} }

// numbers yields the wanted frame numbers one at a time.
type numbers func() (int, bool)

func countFrom(start, step int, stop *int) numbers {
	next := start
	return func() (int, bool) {
		if stop != nil && next > *stop {
			return 0, false
		}
		n := next
		next += step
		return n, true
	}
}

func fromSlice(ids []int) numbers {
	i := 0
	return func() (int, bool) {
		if i >= len(ids) {
			return 0, false
		}
		n := ids[i]
		i++
		return n, true
	}
}
