package model

import (
	"math"

	"rmimodels/pkg/common"
)

// DataType is the numeric kind a model consumes or produces.
type DataType uint8

const (
	TypeInt DataType = iota
	TypeFloat
)

func (t DataType) String() string {
	if t == TypeFloat {
		return "float"
	}
	return "int"
}

// Restriction declares which layer of a multi-stage index a model may occupy.
// Enforcement belongs to whoever assembles the layers.
type Restriction uint8

const (
	RestrictionNone Restriction = iota
	MustBeTop
	MustBeBottom
)

func (r Restriction) String() string {
	switch r {
	case MustBeTop:
		return "must_be_top"
	case MustBeBottom:
		return "must_be_bottom"
	default:
		return "none"
	}
}

// Kind tags the concrete model family.
type Kind uint8

const (
	KindRadix Kind = iota
	KindRadixTable
	KindPrefixBucketed
	KindLinear
)

func (k Kind) String() string {
	switch k {
	case KindRadix:
		return "radix"
	case KindRadixTable:
		return "radix_table"
	case KindPrefixBucketed:
		return "prefix_bucketed"
	case KindLinear:
		return "linear"
	default:
		return "unknown"
	}
}

// Model is the contract shared by every model family.
//
// The set of implementations is closed: the unexported method keeps other
// packages from adding families, so a switch on Kind() is exhaustive.
type Model interface {
	PredictFloat(key common.KeyType) float64
	PredictInt(key common.KeyType) uint64

	InputType() DataType
	OutputType() DataType

	// Params returns the trained constants in the order Code expects them.
	Params() []Param
	// Code returns C source for the prediction function.
	Code() string
	FunctionName() string

	NeedsBoundsCheck() bool
	Restriction() Restriction

	// ErrorBound reports the max absolute error over the training set,
	// or ok=false for families that do not compute one.
	ErrorBound() (bound uint64, ok bool)

	Kind() Kind

	sealed()
}

// floorToInt floors a float prediction, clamping negatives and NaN to zero.
func floorToInt(v float64) uint64 {
	f := math.Floor(v)
	if !(f > 0) {
		return 0
	}
	if f >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(f)
}
