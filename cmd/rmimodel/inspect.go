package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rmimodels/pkg/model"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <corrector file | model dir>",
	Short: "Print the record layout of saved correctors",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	path := args[0]

	st, err := os.Stat(path)
	if err != nil {
		return err
	}

	if !st.IsDir() {
		c, err := model.LoadCorrector(path)
		if err != nil {
			return err
		}
		printCorrector(cmd, path, c)
		return nil
	}

	pb, err := model.LoadPrefixBucketed(path)
	if err != nil {
		return err
	}
	bound, _ := pb.ErrorBound()
	fmt.Fprintf(out, "%s: prefix_bits=%d bucket_mode=%s buckets=%d error_bound=%d\n",
		path, pb.PrefixBits(), pb.BucketMode(), pb.NumBuckets(), bound)
	for b := 0; b < pb.NumBuckets(); b++ {
		printCorrector(cmd, model.CorrectorFileName(b), pb.Corrector(b))
	}
	return nil
}

func printCorrector(cmd *cobra.Command, name string, c *model.Corrector) {
	n := c.Units()
	fmt.Fprintf(cmd.OutOrStdout(), "  %s: units=%d records=%d bias2=%g\n", name, n, 3*n+1, c.Bias2)
}
