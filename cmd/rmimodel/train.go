package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"rmimodels/pkg/model"
	"rmimodels/pkg/monitor"
	"rmimodels/pkg/pipeline"
	"rmimodels/pkg/storage"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the configured model families",
	Long: `Train every family listed in training.families.

Prefix-bucketed models are written to <output.dir>/<family>/ as one nn_<i>
corrector file per bucket plus manifest.yaml. When output.catalog is set every
model is also recorded in that SQLite catalog, and output.metrics_file receives
the training metrics in Prometheus textfile format.`,
	RunE: runTrain,
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	v, err := loadKeys()
	if err != nil {
		return err
	}

	metrics := monitor.NewTrainingMetrics()
	results, err := pipeline.Build(cfg.Training, v, metrics)
	if err != nil {
		return err
	}

	for _, r := range results {
		pb, ok := r.Model.(*model.PrefixBucketed)
		if !ok {
			continue
		}
		paths, err := pb.SaveDir(filepath.Join(cfg.Output.Dir, r.Name))
		if err != nil {
			return err
		}
		slog.Info("correctors saved", "family", r.Name, "files", len(paths))
	}

	if cfg.Output.Catalog != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Output.Catalog), 0755); err != nil {
			return err
		}
		catalog, err := storage.NewCatalog(cfg.Output.Catalog)
		if err != nil {
			return err
		}
		defer catalog.Close()
		for _, r := range results {
			if err := catalog.Put(r.Name, r.Model); err != nil {
				return err
			}
		}
		slog.Info("catalog updated", "path", cfg.Output.Catalog, "models", len(results))
	}

	if cfg.Output.MetricsFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Output.MetricsFile), 0755); err != nil {
			return err
		}
		if err := metrics.WriteTextfile(cfg.Output.MetricsFile); err != nil {
			return err
		}
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tKIND\tRESTRICTION\tERROR BOUND\tMEAN ERR\tTIME")
	for _, r := range results {
		bound := "-"
		if b, ok := r.Model.ErrorBound(); ok {
			bound = fmt.Sprint(b)
		}
		stats := model.MeasureErrors(r.Model, v)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%v\n",
			r.Name, r.Model.Kind(), r.Model.Restriction(), bound, stats.Mean, r.Duration)
	}
	return w.Flush()
}
