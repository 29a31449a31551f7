// Package config holds tool-wide settings unmarshalled from viper (defaults,
// n145.yaml, N145_* environment variables and command line flags) and the
// experiment definitions read by the quant command
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/crtlab/n145/pkg/core"
)

// EnvPrefix is the prefix of environment variables, e.g. N145_TOLERANCE
const EnvPrefix = "N145"

// Config is the root-level settings struct
type Config struct {
	// peak search window in Da, divided by the charge
	Tolerance float64 `mapstructure:"tolerance"`

	// peptides with a lower 14N or 15N m/z are dropped
	MinMZ float64 `mapstructure:"min-mz"`

	// target-decoy FDR threshold for X!Tandem results
	FDR float64 `mapstructure:"fdr"`

	// protein label prefix of decoy sequences
	DecoyPrefix string `mapstructure:"decoy-prefix"`

	// worker goroutines for intensity lookups, 0 = one per CPU
	Threads int `mapstructure:"threads"`

	// optional SQLite file receiving every result table
	DB string `mapstructure:"db"`

	// protein domains for the ratio output, calreticulin when empty
	Regions []core.RegionBound `mapstructure:"regions"`

	Log LogConfig `mapstructure:"log"`
}

// LogConfig selects the logger level and encoding
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers the built-in defaults on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("tolerance", 0.01)
	v.SetDefault("min-mz", 500.0)
	v.SetDefault("fdr", 0.05)
	v.SetDefault("decoy-prefix", "DECOY_")
	v.SetDefault("threads", 0)
	v.SetDefault("db", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load reads settings into v. An empty file looks for n145.yaml in the
// working directory and ignores its absence.
func Load(v *viper.Viper, file string) (Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("n145")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive, got %g", c.Tolerance)
	}
	if c.MinMZ < 0 {
		return fmt.Errorf("min-mz must not be negative, got %g", c.MinMZ)
	}
	if c.FDR < 0 || c.FDR > 1 {
		return fmt.Errorf("fdr must be between 0 and 1, got %g", c.FDR)
	}
	if c.Threads < 0 {
		return fmt.Errorf("threads must not be negative, got %d", c.Threads)
	}
	if len(c.Regions) > 0 {
		if _, err := core.NewRegionMap(c.Regions); err != nil {
			return err
		}
	}
	return nil
}

// RegionMap returns the configured region map or the calreticulin default
func (c *Config) RegionMap() *core.RegionMap {
	if len(c.Regions) == 0 {
		return core.DefaultRegionMap()
	}
	rm, err := core.NewRegionMap(c.Regions)
	if err != nil {
		return core.DefaultRegionMap()
	}
	return rm
}
