package main

import (
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"

	"rmimodels/pkg/common"
	"rmimodels/pkg/core/learned"
	"rmimodels/pkg/model"
)

var lookupQueries int

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Train a prefix-bucketed model and run bounded lookups against it",
	RunE:  runLookup,
}

func init() {
	lookupCmd.Flags().IntVarP(&lookupQueries, "queries", "q", 10000, "number of lookups")
}

func runLookup(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	v, err := loadKeys()
	if err != nil {
		return err
	}
	opts, err := cfg.Training.Options()
	if err != nil {
		return err
	}
	pb, err := model.NewPrefixBucketed(v, opts)
	if err != nil {
		return err
	}

	records := make([]common.Record, v.Len())
	for i := range records {
		records[i] = common.Record{Key: v.GetKey(i)}
	}
	li, err := learned.Build(records, pb)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(seed))
	for i := 0; i < lookupQueries; i++ {
		// 一半查存在的 key，一半查随机 key
		if i%2 == 0 {
			li.Get(li.Records[rng.Intn(li.Size())].Key)
		} else {
			li.Get(common.KeyType(rng.Uint64()))
		}
	}
	avgBin, avgLearned := li.Benchmark(lookupQueries, rng)

	out := cmd.OutOrStdout()
	bound, _ := pb.ErrorBound()
	stats := model.MeasureErrors(pb, v)
	fmt.Fprintf(out, "keys=%d buckets=%d error_bound=%d mean_err=%.2f std_err=%.2f\n",
		v.Len(), pb.NumBuckets(), bound, stats.Mean, stats.StdDev)
	fmt.Fprintf(out, "lookups=%d hit_rate=%.3f avg_probes=%.2f\n",
		li.Stats.Lookups, li.Stats.HitRate(), li.Stats.AvgProbes())
	fmt.Fprintf(out, "binary_search=%.1fns learned=%.1fns\n", avgBin, avgLearned)
	return nil
}
