package main

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"rmimodels/pkg/common"
	"rmimodels/pkg/config"
	"rmimodels/pkg/dataset"
)

var (
	configPath   string
	inputPath    string
	syntheticN   int
	distribution string
	seed         int64
)

var rootCmd = &cobra.Command{
	Use:   "rmimodel",
	Short: "Train and inspect learned index models",
	Long: `rmimodel trains the models of a learned index over a sorted key set.

Keys come from a SOSD binary file (--input, *_uint64 or *_uint32) or are
generated (--synthetic N --dist uniform|lognormal|sequential).`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "config file (default: configs/rmi.yaml or rmi.yaml)")
	pf.StringVarP(&inputPath, "input", "i", "", "SOSD key file")
	pf.IntVarP(&syntheticN, "synthetic", "n", 0, "generate N synthetic keys instead of reading --input")
	pf.StringVar(&distribution, "dist", "uniform", "synthetic key distribution")
	pf.Int64Var(&seed, "seed", 42, "synthetic key seed")

	rootCmd.AddCommand(trainCmd, inspectCmd, lookupCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the config and installs the default logger.
func setup(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return cfg, nil
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", s, err)
	}
	return l, nil
}

func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// loadKeys returns the sorted key view selected by the persistent flags.
func loadKeys() (*dataset.Slice, error) {
	var keys []common.KeyType
	switch {
	case inputPath != "":
		var err error
		keys, err = dataset.LoadSOSD(inputPath)
		if err != nil {
			return nil, err
		}
		slog.Info("keys loaded", "path", inputPath, "count", len(keys))
	case syntheticN > 0:
		var err error
		keys, err = syntheticKeys(syntheticN, distribution, seed)
		if err != nil {
			return nil, err
		}
		slog.Info("keys generated", "dist", distribution, "count", len(keys), "seed", seed)
	default:
		return nil, fmt.Errorf("no keys: pass --input or --synthetic")
	}

	b := dataset.NewBuilder(32)
	b.AddAll(keys)
	return b.Build(), nil
}

func syntheticKeys(n int, dist string, seed int64) ([]common.KeyType, error) {
	rng := rand.New(rand.NewSource(seed))
	keys := make([]common.KeyType, n)
	switch strings.ToLower(dist) {
	case "uniform":
		for i := range keys {
			keys[i] = common.KeyType(rng.Uint64())
		}
	case "lognormal":
		// 偏斜分布，缩放到 2^40 附近
		for i := range keys {
			keys[i] = common.KeyType(math.Exp(rng.NormFloat64()*2) * (1 << 30))
		}
	case "sequential":
		for i := range keys {
			keys[i] = common.KeyType(i)
		}
	default:
		return nil, fmt.Errorf("unknown distribution %q", dist)
	}
	return keys, nil
}
