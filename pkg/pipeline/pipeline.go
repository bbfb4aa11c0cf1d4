// Package pipeline trains the configured model families over one dataset.
package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"rmimodels/pkg/config"
	"rmimodels/pkg/dataset"
	"rmimodels/pkg/model"
	"rmimodels/pkg/monitor"
)

// Result is one trained model.
type Result struct {
	Name     string
	Model    model.Model
	Duration time.Duration
}

// Train builds a single family.
func Train(family string, cfg config.TrainingConfig, v dataset.View) (model.Model, error) {
	switch family {
	case config.FamilyRadix:
		return model.NewRadix(v), nil
	case config.FamilyRadixTable:
		return model.NewRadixTable(v, cfg.TableBits)
	case config.FamilyLinear:
		return model.NewLinearModel(v)
	case config.FamilyPrefixBucketed:
		opts, err := cfg.Options()
		if err != nil {
			return nil, err
		}
		return model.NewPrefixBucketed(v, opts)
	default:
		return nil, fmt.Errorf("pipeline: unknown model family %q", family)
	}
}

// Build trains every family in cfg.Families in order. metrics may be nil.
func Build(cfg config.TrainingConfig, v dataset.View, metrics *monitor.TrainingMetrics) ([]Result, error) {
	results := make([]Result, 0, len(cfg.Families))
	for _, family := range cfg.Families {
		start := time.Now()
		m, err := Train(family, cfg, v)
		if err != nil {
			return results, fmt.Errorf("train %s: %w", family, err)
		}
		d := time.Since(start)

		bound, ok := m.ErrorBound()
		attrs := []any{
			"family", family,
			"duration", d,
			"restriction", m.Restriction().String(),
			"params", len(m.Params()),
		}
		if ok {
			attrs = append(attrs, "error_bound", bound)
		}
		slog.Info("model trained", attrs...)

		if metrics != nil {
			metrics.RecordModel(m.Kind().String(), d, bound, ok)
			if pb, isBucketed := m.(*model.PrefixBucketed); isBucketed {
				metrics.RecordBuckets(trainedBuckets(pb))
			}
		}

		results = append(results, Result{Name: family, Model: m, Duration: d})
	}
	return results, nil
}

// trainedBuckets counts buckets whose corrector has at least one hidden unit.
func trainedBuckets(pb *model.PrefixBucketed) int {
	n := 0
	for b := 0; b < pb.NumBuckets(); b++ {
		if pb.Corrector(b).Units() > 0 {
			n++
		}
	}
	return n
}
