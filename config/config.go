// Package config holds the runtime settings of tea: parallelism limits,
// logging and output format.
package config

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/razeghi71/tea/expr"
	"github.com/razeghi71/tea/kernels"
	"github.com/razeghi71/tea/loader"
)

// Config is the full set of settings.
type Config struct {
	// Workers caps the goroutines used by column and group lanes.
	Workers int `yaml:"workers"`
	// ParallelMinLen is the lane count below which work stays sequential.
	ParallelMinLen int    `yaml:"parallel_min_len"`
	LogLevel       string `yaml:"log_level"`
	// Output is one of table, json or yaml.
	Output string `yaml:"output"`
}

var outputs = map[string]bool{"table": true, "json": true, "yaml": true}

// Default returns the settings used when nothing else is configured.
func Default() Config {
	return Config{
		Workers:        kernels.Workers(),
		ParallelMinLen: 2,
		LogLevel:       "warn",
		Output:         "table",
	}
}

// Load applies, in order, the defaults, the YAML file at path (skipped when
// path is empty or missing) and TEA_* environment overrides, then validates.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, errors.Wrap(err, "load config file")
		}
	}
	if err := loadEnv(&cfg); err != nil {
		return cfg, errors.Wrap(err, "load config env")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func loadEnv(cfg *Config) error {
	ints := []struct {
		key string
		dst *int
	}{
		{"TEA_WORKERS", &cfg.Workers},
		{"TEA_PARALLEL_MIN_LEN", &cfg.ParallelMinLen},
	}
	for _, e := range ints {
		v := os.Getenv(e.key)
		if v == "" {
			continue
		}
		i, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "%s=%q", e.key, v)
		}
		*e.dst = i
	}
	if v := os.Getenv("TEA_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TEA_OUTPUT"); v != "" {
		cfg.Output = v
	}
	return nil
}

// Validate checks that every setting is usable.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return errors.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.ParallelMinLen < 1 {
		return errors.Errorf("parallel_min_len must be at least 1, got %d", c.ParallelMinLen)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "log_level")
	}
	if !outputs[c.Output] {
		return errors.Errorf("output must be table, json or yaml, got %q", c.Output)
	}
	return nil
}

// Apply pushes the settings into the packages that use them and returns the
// logger they now share.
func (c Config) Apply() *logrus.Logger {
	kernels.Configure(c.Workers, c.ParallelMinLen)
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if lvl, err := logrus.ParseLevel(c.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}
	expr.SetLogger(logger)
	loader.SetLogger(logger)
	return logger
}
