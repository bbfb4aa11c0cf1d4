package model

import (
	"fmt"

	"rmimodels/pkg/common"
	"rmimodels/pkg/dataset"

	"gonum.org/v1/gonum/stat"
)

// LinearModel is a least-squares line from key to position.
type LinearModel struct {
	Slope     float64
	Intercept float64
}

// NewLinearModel fits v. With fewer than two distinct keys the line is flat
// at the mean position.
func NewLinearModel(v dataset.View) (*LinearModel, error) {
	n := v.Len()
	if n == 0 {
		return nil, ErrEmptyData
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := 0; i < n; i++ {
		p := v.Get(i)
		xs[i] = p.Key.AsFloat()
		ys[i] = float64(p.Pos)
	}

	// 防止所有 key 相同导致除零
	if xs[0] == xs[n-1] {
		return &LinearModel{Intercept: stat.Mean(ys, nil)}, nil
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	return &LinearModel{Slope: beta, Intercept: alpha}, nil
}

func (lm *LinearModel) PredictFloat(key common.KeyType) float64 {
	return lm.Slope*key.AsFloat() + lm.Intercept
}

func (lm *LinearModel) PredictInt(key common.KeyType) uint64 {
	return floorToInt(lm.PredictFloat(key))
}

func (lm *LinearModel) InputType() DataType  { return TypeFloat }
func (lm *LinearModel) OutputType() DataType { return TypeFloat }

func (lm *LinearModel) Params() []Param {
	return []Param{FloatParam(lm.Intercept), FloatParam(lm.Slope)}
}

func (lm *LinearModel) Code() string {
	return fmt.Sprintf(`
inline double linear(double alpha, double beta, double inp) {
    return std::fma(beta, inp, alpha);
}
// alpha = %.17g, beta = %.17g`, lm.Intercept, lm.Slope)
}

func (lm *LinearModel) FunctionName() string     { return "linear" }
func (lm *LinearModel) NeedsBoundsCheck() bool   { return true }
func (lm *LinearModel) Restriction() Restriction { return RestrictionNone }
func (lm *LinearModel) ErrorBound() (uint64, bool) {
	return 0, false
}
func (lm *LinearModel) Kind() Kind { return KindLinear }
func (lm *LinearModel) sealed()    {}
