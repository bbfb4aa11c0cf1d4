package model

import (
	"fmt"
	"log/slog"
	"math"

	"rmimodels/pkg/common"
	"rmimodels/pkg/dataset"
)

// Radix maps a key to the bit field that follows the prefix shared by all
// training keys. It has no trained weights; the two sizes are its parameters.
type Radix struct {
	PrefixBits uint8
	Bits       uint8
}

// NewRadix sizes the extracted field from the largest position in v.
func NewRadix(v dataset.View) *Radix {
	if v.Len() == 0 {
		return &Radix{}
	}

	largest := dataset.MaxPos(v)
	nbits := numBits(uint64(largest))
	slog.Debug("radix layer sized",
		"bits", nbits,
		"largest_value", largest,
	)

	prefix := commonPrefixSize(v)
	slog.Debug("radix layer common prefix", "prefix_bits", prefix)

	return &Radix{PrefixBits: prefix, Bits: nbits}
}

func (r *Radix) PredictInt(key common.KeyType) uint64 {
	// Go defines shifts >= 64 as zero, which covers Bits == 0.
	return (key.AsUint() << r.PrefixBits) >> (64 - uint(r.Bits))
}

func (r *Radix) PredictFloat(key common.KeyType) float64 {
	return float64(r.PredictInt(key))
}

func (r *Radix) InputType() DataType  { return TypeInt }
func (r *Radix) OutputType() DataType { return TypeInt }

func (r *Radix) Params() []Param {
	return []Param{IntParam(uint64(r.PrefixBits)), IntParam(uint64(r.Bits))}
}

func (r *Radix) Code() string {
	return `
inline uint64_t radix(uint64_t prefix_length, uint64_t bits, uint64_t inp) {
    return (inp << prefix_length) >> (64 - bits);
}`
}

func (r *Radix) FunctionName() string     { return "radix" }
func (r *Radix) NeedsBoundsCheck() bool   { return false }
func (r *Radix) Restriction() Restriction { return MustBeTop }
func (r *Radix) ErrorBound() (uint64, bool) {
	return 0, false
}
func (r *Radix) Kind() Kind { return KindRadix }
func (r *Radix) sealed()    {}

const MaxTableBits = 28

// RadixTable extends Radix with a lookup table that turns a bit-field value
// into a lower-bound position hint.
type RadixTable struct {
	PrefixBits uint8
	TableBits  uint8
	Table      []uint32
}

// NewRadixTable builds a hint table with 2^bits entries. Entry v holds the
// first position whose field is >= v; entries past the last observed field
// hold len(Table).
func NewRadixTable(v dataset.View, bits uint8) (*RadixTable, error) {
	if bits == 0 || bits > MaxTableBits {
		return nil, fmt.Errorf("%w: %d (want 1..%d)", ErrInvalidTableBits, bits, MaxTableBits)
	}

	prefix := commonPrefixSize(v)
	if int(prefix)+int(bits) > 64 {
		// fewer than bits varying bits left; use the low bits
		prefix = 64 - bits
	}

	rt := &RadixTable{
		PrefixBits: prefix,
		TableBits:  bits,
		Table:      make([]uint32, 1<<bits),
	}

	next := 0 // first slot not yet filled
	for i := 0; i < v.Len(); i++ {
		p := v.Get(i)
		cur := int(rt.field(p.Key))
		if cur < next {
			continue
		}
		if p.Pos < 0 || uint64(p.Pos) > math.MaxUint32 {
			return nil, fmt.Errorf("%w: %d", ErrPositionRange, p.Pos)
		}
		for s := next; s <= cur; s++ {
			rt.Table[s] = uint32(p.Pos)
		}
		next = cur + 1
	}
	for s := next; s < len(rt.Table); s++ {
		rt.Table[s] = uint32(len(rt.Table))
	}

	slog.Debug("radix table built",
		"prefix_bits", prefix,
		"table_bits", bits,
		"filled", next,
	)
	return rt, nil
}

func (rt *RadixTable) field(key common.KeyType) uint64 {
	p := uint(rt.PrefixBits)
	return ((key.AsUint() << p) >> p) >> (64 - p - uint(rt.TableBits))
}

func (rt *RadixTable) PredictInt(key common.KeyType) uint64 {
	return uint64(rt.Table[rt.field(key)])
}

func (rt *RadixTable) PredictFloat(key common.KeyType) float64 {
	return float64(rt.PredictInt(key))
}

func (rt *RadixTable) InputType() DataType  { return TypeInt }
func (rt *RadixTable) OutputType() DataType { return TypeInt }

func (rt *RadixTable) Params() []Param {
	return []Param{IntParam(uint64(rt.PrefixBits)), Int32ArrayParam(rt.Table)}
}

func (rt *RadixTable) Code() string {
	return fmt.Sprintf(`
inline uint64_t radix_table(uint64_t prefix_length, const uint32_t* table, uint64_t inp) {
    return table[((inp << prefix_length) >> prefix_length) >> (64 - %d)];
}`, int(rt.PrefixBits)+int(rt.TableBits))
}

func (rt *RadixTable) FunctionName() string     { return "radix_table" }
func (rt *RadixTable) NeedsBoundsCheck() bool   { return false }
func (rt *RadixTable) Restriction() Restriction { return RestrictionNone }
func (rt *RadixTable) ErrorBound() (uint64, bool) {
	return 0, false
}
func (rt *RadixTable) Kind() Kind { return KindRadixTable }
func (rt *RadixTable) sealed()    {}
