package dataset

import (
	"rmimodels/pkg/common"

	"github.com/google/btree"
)

// item orders by key and then by arrival, so duplicate keys survive
// ReplaceOrInsert and keep their insertion order.
type item struct {
	key common.KeyType
	seq uint64
}

func (i item) Less(than btree.Item) bool {
	o := than.(item)
	if i.key != o.key {
		return i.key < o.key
	}
	return i.seq < o.seq
}

// Builder collects unsorted keys and emits a sorted View.
// It is not safe for concurrent use.
type Builder struct {
	tree *btree.BTree
	seq  uint64
}

func NewBuilder(degree int) *Builder {
	if degree < 2 {
		degree = 32
	}
	return &Builder{tree: btree.New(degree)}
}

func (b *Builder) Add(key common.KeyType) {
	b.tree.ReplaceOrInsert(item{key: key, seq: b.seq})
	b.seq++
}

func (b *Builder) AddAll(keys []common.KeyType) {
	for _, k := range keys {
		b.Add(k)
	}
}

func (b *Builder) Len() int {
	return b.tree.Len()
}

// Build assigns each key its rank in ascending order.
func (b *Builder) Build() *Slice {
	points := make([]common.Point, 0, b.tree.Len())
	b.tree.Ascend(func(i btree.Item) bool {
		points = append(points, common.Point{Key: i.(item).key, Pos: len(points)})
		return true
	})
	return FromPoints(points)
}

// Distinct is like Build but keeps only the first occurrence of each key.
func (b *Builder) Distinct() *Slice {
	points := make([]common.Point, 0, b.tree.Len())
	b.tree.Ascend(func(i btree.Item) bool {
		k := i.(item).key
		if n := len(points); n > 0 && points[n-1].Key == k {
			return true
		}
		points = append(points, common.Point{Key: k, Pos: len(points)})
		return true
	})
	return FromPoints(points)
}
