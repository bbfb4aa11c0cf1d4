package common

import "fmt"

// KeyType 定义主键类型。模型同时需要它的整数和浮点形式。
type KeyType uint64

// AsUint returns the key as an unsigned 64-bit integer.
func (k KeyType) AsUint() uint64 {
	return uint64(k)
}

// AsFloat returns the key as a double.
func (k KeyType) AsFloat() float64 {
	return float64(k)
}

// Point is a key together with its position in the stored array.
// A breakpoint of a piecewise-linear function is also a Point.
type Point struct {
	Key KeyType
	Pos int
}

// String 方便调试打印
func (p Point) String() string {
	return fmt.Sprintf("Point{Key: %d, Pos: %d}", p.Key, p.Pos)
}

type ValueType []byte

// Record 是索引里存储的一条键值对
type Record struct {
	Key   KeyType
	Value ValueType
}
