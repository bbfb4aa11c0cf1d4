package model

import (
	"encoding/binary"
	"io"
)

// ParamKind identifies the shape of a Param.
type ParamKind uint8

const (
	ParamInt ParamKind = iota
	ParamFloat
	ParamInt32Array
	ParamFloatArray
)

func (k ParamKind) String() string {
	switch k {
	case ParamInt:
		return "int"
	case ParamFloat:
		return "float"
	case ParamInt32Array:
		return "int32_array"
	case ParamFloatArray:
		return "float_array"
	default:
		return "unknown"
	}
}

// Param is one trained constant. Only the field matching Kind is set.
type Param struct {
	Kind   ParamKind
	Int    uint64
	Float  float64
	Ints   []uint32
	Floats []float64
}

func IntParam(v uint64) Param           { return Param{Kind: ParamInt, Int: v} }
func FloatParam(v float64) Param        { return Param{Kind: ParamFloat, Float: v} }
func Int32ArrayParam(v []uint32) Param  { return Param{Kind: ParamInt32Array, Ints: v} }
func FloatArrayParam(v []float64) Param { return Param{Kind: ParamFloatArray, Floats: v} }

// Len is 1 for scalars and the element count for arrays.
func (p Param) Len() int {
	switch p.Kind {
	case ParamInt32Array:
		return len(p.Ints)
	case ParamFloatArray:
		return len(p.Floats)
	default:
		return 1
	}
}

// Size is the number of bytes WriteTo produces.
func (p Param) Size() int {
	switch p.Kind {
	case ParamInt32Array:
		return 4 * len(p.Ints)
	case ParamFloatArray:
		return 8 * len(p.Floats)
	default:
		return 8
	}
}

// CType is the C declaration type used by generated code.
func (p Param) CType() string {
	switch p.Kind {
	case ParamInt:
		return "uint64_t"
	case ParamFloat:
		return "double"
	case ParamInt32Array:
		return "uint32_t"
	default:
		return "double"
	}
}

func (p Param) IsArray() bool {
	return p.Kind == ParamInt32Array || p.Kind == ParamFloatArray
}

// WriteTo writes the value little endian, without any header.
func (p Param) WriteTo(w io.Writer) (int64, error) {
	var err error
	switch p.Kind {
	case ParamInt:
		err = binary.Write(w, binary.LittleEndian, p.Int)
	case ParamFloat:
		err = binary.Write(w, binary.LittleEndian, p.Float)
	case ParamInt32Array:
		err = binary.Write(w, binary.LittleEndian, p.Ints)
	case ParamFloatArray:
		err = binary.Write(w, binary.LittleEndian, p.Floats)
	}
	if err != nil {
		return 0, err
	}
	return int64(p.Size()), nil
}
