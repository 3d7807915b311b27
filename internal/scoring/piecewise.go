package scoring

import "sort"

// Breakpoint is one step of a piecewise score table: readings at or below
// Until score Score.
type Breakpoint struct {
	Until float64
	Score float64
}

// Table is a sorted-breakpoint piecewise function from a reading to a [0,1]
// score. Tables replace nested range conditionals so monotonicity and
// continuity are trivial to property-test.
type Table struct {
	points []Breakpoint
	above  float64 // score for readings beyond the last breakpoint
}

// NewTable builds a Table. Breakpoints are sorted by Until at construction,
// so callers may declare them in reading order.
func NewTable(above float64, points ...Breakpoint) Table {
	sorted := make([]Breakpoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Until < sorted[j].Until })
	return Table{points: sorted, above: above}
}

// Eval returns the score of the first breakpoint at or beyond v, or the
// above score past the last breakpoint.
func (t Table) Eval(v float64) float64 {
	for _, p := range t.points {
		if v <= p.Until {
			return p.Score
		}
	}
	return t.above
}

// band scores a reading against an ideal range: 1 inside [lo,hi], decaying
// linearly to 0 at lo-span and hi+span.
func band(v, lo, hi, span float64) float64 {
	switch {
	case v >= lo && v <= hi:
		return 1
	case v < lo:
		return clamp01(1 - (lo-v)/span)
	default:
		return clamp01(1 - (v-hi)/span)
	}
}
