package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"rmimodels/pkg/model"
)

type Config struct {
	Training TrainingConfig `yaml:"training"`
	Output   OutputConfig   `yaml:"output"`
	Log      LogConfig      `yaml:"log"`
}

type TrainingConfig struct {
	Threshold  float64  `yaml:"threshold"`   // segmentation error threshold (positions)
	PrefixBits uint8    `yaml:"prefix_bits"` // bucket count = 2^prefix_bits
	BucketMode string   `yaml:"bucket_mode"` // top-bits | legacy-mask
	TableBits  uint8    `yaml:"table_bits"`  // radix_table hint table size
	Workers    int      `yaml:"workers"`     // 0 = one goroutine per bucket run
	Families   []string `yaml:"families"`
}

type OutputConfig struct {
	Dir         string `yaml:"dir"`          // corrector files
	Catalog     string `yaml:"catalog"`      // SQLite model catalog, empty = skip
	MetricsFile string `yaml:"metrics_file"` // Prometheus textfile, empty = skip
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Family names accepted in training.families.
const (
	FamilyRadix          = "radix"
	FamilyRadixTable     = "radix_table"
	FamilyPrefixBucketed = "prefix_bucketed"
	FamilyLinear         = "linear"
)

func defaultConfig() *Config {
	return &Config{
		Training: TrainingConfig{
			Threshold:  1.0,
			PrefixBits: 4,
			BucketMode: model.BucketTopBits.String(),
			TableBits:  16,
			Families:   []string{FamilyRadix, FamilyRadixTable, FamilyPrefixBucketed, FamilyLinear},
		},
		Output: OutputConfig{
			Dir: "rmi_out",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func Load(configPath string) (*Config, error) {
	cfg := defaultConfig()

	if configPath == "" {
		for _, p := range []string{"configs/rmi.yaml", "rmi.yaml"} {
			data, err := os.ReadFile(p)
			if err == nil {
				if err := yaml.Unmarshal(data, cfg); err != nil {
					return cfg, err
				}
				applyDefaults(cfg)
				return cfg, cfg.Validate()
			}
		}
		applyDefaults(cfg)
		return cfg, nil // 没找到配置文件就用默认值
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, err
	}

	applyDefaults(cfg)
	return cfg, cfg.Validate()
}

func applyDefaults(cfg *Config) {
	if cfg.Training.Threshold < 0 {
		cfg.Training.Threshold = 1.0
	}
	if cfg.Training.TableBits == 0 {
		cfg.Training.TableBits = 16
	}
	if cfg.Training.Workers < 0 {
		cfg.Training.Workers = 0
	}
	if len(cfg.Training.Families) == 0 {
		cfg.Training.Families = defaultConfig().Training.Families
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "rmi_out"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// Validate checks the values defaults cannot repair.
func (c *Config) Validate() error {
	if c.Training.PrefixBits > model.MaxPrefixBits {
		return fmt.Errorf("config: training.prefix_bits %d exceeds %d", c.Training.PrefixBits, model.MaxPrefixBits)
	}
	if c.Training.TableBits > model.MaxTableBits {
		return fmt.Errorf("config: training.table_bits %d exceeds %d", c.Training.TableBits, model.MaxTableBits)
	}
	if _, err := model.ParseBucketMode(c.Training.BucketMode); err != nil {
		return fmt.Errorf("config: training.bucket_mode: %w", err)
	}
	for _, f := range c.Training.Families {
		switch f {
		case FamilyRadix, FamilyRadixTable, FamilyPrefixBucketed, FamilyLinear:
		default:
			return fmt.Errorf("config: unknown model family %q", f)
		}
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// Options converts the training section into model options.
func (t TrainingConfig) Options() (model.Options, error) {
	mode, err := model.ParseBucketMode(t.BucketMode)
	if err != nil {
		return model.Options{}, err
	}
	return model.Options{
		Threshold:  t.Threshold,
		PrefixBits: t.PrefixBits,
		BucketMode: mode,
		Workers:    t.Workers,
	}, nil
}
