package dataset

import (
	"rmimodels/pkg/common"
)

// View is a read-only, sorted sequence of (key, position) pairs.
// Implementations must be safe for concurrent readers.
type View interface {
	Len() int
	Get(i int) common.Point
	GetKey(i int) common.KeyType
}

// Slice is the in-memory View used by the models and tests.
type Slice struct {
	points []common.Point
}

// FromPoints wraps an ordered sequence of points. The slice is not copied.
func FromPoints(points []common.Point) *Slice {
	return &Slice{points: points}
}

// FromKeys builds a view whose positions are the ranks 0..n-1.
func FromKeys(keys []common.KeyType) *Slice {
	points := make([]common.Point, len(keys))
	for i, k := range keys {
		points[i] = common.Point{Key: k, Pos: i}
	}
	return &Slice{points: points}
}

func (s *Slice) Len() int {
	return len(s.points)
}

func (s *Slice) Get(i int) common.Point {
	return s.points[i]
}

func (s *Slice) GetKey(i int) common.KeyType {
	return s.points[i].Key
}

// Sub returns the contiguous range [from, to) as a view sharing storage.
func (s *Slice) Sub(from, to int) *Slice {
	return &Slice{points: s.points[from:to]}
}

// Points exposes the backing slice.
func (s *Slice) Points() []common.Point {
	return s.points
}

// MaxPos returns the largest position in v, or 0 when v is empty.
func MaxPos(v View) int {
	max := 0
	for i := 0; i < v.Len(); i++ {
		if p := v.Get(i).Pos; p > max {
			max = p
		}
	}
	return max
}
