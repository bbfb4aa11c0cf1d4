package model

import (
	"fmt"
	"math"

	"rmimodels/pkg/common"
	"rmimodels/pkg/dataset"
)

// Segment splits v[from:to) into line segments whose interior points stay
// within threshold of the line joining the segment's end points, and
// returns the segment boundaries.
//
// The scan is greedy and single pass. A left anchor l is fixed and the right
// anchor r grows from l+2; as soon as some point strictly between l and r-1
// is further than threshold from the line l-r, r-1 becomes a breakpoint and
// the next anchor. The first point always opens the list and the last point
// closes it, so the result covers the whole range.
func Segment(v dataset.View, from, to int, threshold float64) ([]common.Point, error) {
	if from < 0 || to > v.Len() || from >= to {
		return nil, fmt.Errorf("%w: range [%d, %d) of %d points", ErrEmptyData, from, to, v.Len())
	}

	breakpoints := []common.Point{v.Get(from)}
	l := from
	for r := from + 2; r < to; r++ {
		left, right := v.Get(l), v.Get(r)
		xl, yl := left.Key.AsFloat(), float64(left.Pos)
		xr, yr := right.Key.AsFloat(), float64(right.Pos)

		// A zero-width segment has no slope. Keys are compared as doubles
		// because distinct keys above 2^53 can round to the same value.
		if xl == xr || xl == v.GetKey(r-1).AsFloat() {
			continue
		}

		a := (yr - yl) / (xr - xl)
		b := yl - a*xl

		for i := l + 1; i < r-1; i++ {
			p := v.Get(i)
			if math.Abs(a*p.Key.AsFloat()+b-float64(p.Pos)) > threshold {
				breakpoints = append(breakpoints, v.Get(r-1))
				l = r - 1
				break
			}
		}
	}

	last := v.Get(to - 1)
	if breakpoints[len(breakpoints)-1].Key.AsFloat() != last.Key.AsFloat() {
		breakpoints = append(breakpoints, last)
	}
	return breakpoints, nil
}
