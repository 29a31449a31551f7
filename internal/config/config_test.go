package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	c, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, 0.01, c.Tolerance)
	assert.Equal(t, 500.0, c.MinMZ)
	assert.Equal(t, 0.05, c.FDR)
	assert.Equal(t, "DECOY_", c.DecoyPrefix)
	assert.Zero(t, c.Threads)
	assert.Empty(t, c.DB)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, "console", c.Log.Format)
	assert.Equal(t, "Signal", c.RegionMap().At(1))
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tolerance: 0.02
min-mz: 400
regions:
  - {name: N, end: 198}
  - {name: C}
log:
  level: debug
  format: json
`), 0o644))

	t.Setenv("N145_MIN_MZ", "450")
	t.Setenv("N145_DECOY_PREFIX", "REV_")

	c, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, 0.02, c.Tolerance)
	assert.Equal(t, 450.0, c.MinMZ)
	assert.Equal(t, "REV_", c.DecoyPrefix)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, "json", c.Log.Format)

	require.Len(t, c.Regions, 2)
	assert.Equal(t, "N", c.RegionMap().At(100))
	assert.Equal(t, "C", c.RegionMap().At(300))
}

func TestLoadWorkingDirectoryFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "n145.yaml"), []byte("threads: 3\n"), 0o644))
	t.Chdir(dir)

	c, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, 3, c.Threads)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tolerance: -1\n"), 0o644))
	_, err = Load(viper.New(), path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{Tolerance: 0.01, MinMZ: 500, FDR: 0.05}
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"zero tolerance", func(c *Config) { c.Tolerance = 0 }, true},
		{"negative min mz", func(c *Config) { c.MinMZ = -1 }, true},
		{"fdr above one", func(c *Config) { c.FDR = 1.5 }, true},
		{"negative threads", func(c *Config) { c.Threads = -2 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.modify(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
