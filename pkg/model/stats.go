package model

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"rmimodels/pkg/dataset"
)

// ErrorStats summarizes |PredictInt(key) - pos| over a dataset.
type ErrorStats struct {
	Count  int
	Mean   float64
	StdDev float64
	Max    float64
}

// MeasureErrors evaluates m against every point of v.
func MeasureErrors(m Model, v dataset.View) ErrorStats {
	if v.Len() == 0 {
		return ErrorStats{}
	}

	errs := make([]float64, v.Len())
	for i := range errs {
		p := v.Get(i)
		errs[i] = float64(absDiff(m.PredictInt(p.Key), p.Pos))
	}

	mean, std := stat.MeanStdDev(errs, nil)
	if len(errs) == 1 {
		std = 0
	}
	return ErrorStats{
		Count:  len(errs),
		Mean:   mean,
		StdDev: std,
		Max:    floats.Max(errs),
	}
}
