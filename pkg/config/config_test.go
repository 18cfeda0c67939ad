package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/evcollapse/pkg/errors"
)

func validConfig() *Config {
	cfg := New()
	cfg.Inputs = []string{"in.tsv"}
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "defaults with one input",
			mutate: func(c *Config) {},
		},
		{
			name:    "no inputs",
			mutate:  func(c *Config) { c.Inputs = nil },
			wantErr: true,
		},
		{
			name:    "empty prefix",
			mutate:  func(c *Config) { c.Prefix = "" },
			wantErr: true,
		},
		{
			name:    "too few threads",
			mutate:  func(c *Config) { c.Threads = 2 },
			wantErr: true,
		},
		{
			name:    "negative max reads",
			mutate:  func(c *Config) { c.MaxReads = -1 },
			wantErr: true,
		},
		{
			name:    "unknown stat field",
			mutate:  func(c *Config) { c.StatFields = []string{"mean", "variance"} },
			wantErr: true,
		},
		{
			name:   "stat field subset",
			mutate: func(c *Config) { c.StatFields = []string{StatMedian, StatMad} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWorkers(t *testing.T) {
	cfg := validConfig()
	cfg.Threads = 6
	assert.Equal(t, 4, cfg.Workers())
}

func TestOutputPaths(t *testing.T) {
	cfg := validConfig()
	cfg.OutputDir = "/data/runs"
	cfg.Prefix = "sample1"

	assert.Equal(t, "/data/runs/sample1_eventalign_collapse.tsv", cfg.DataPath())
	assert.Equal(t, "/data/runs/sample1_eventalign_collapse.tsv.idx", cfg.IndexPath())
	assert.Equal(t, "/data/runs/sample1_eventalign_collapse.json", cfg.SummaryPath())
}

func TestOrderedStatFields(t *testing.T) {
	cfg := validConfig()
	cfg.StatFields = []string{StatNumSignals, StatMean, StatMean}

	// Canonical output order, deduplicated.
	assert.Equal(t, []string{StatMean, StatNumSignals}, cfg.OrderedStatFields())
}

func TestLoadSubstitutesEnvVars(t *testing.T) {
	t.Setenv("EVCOLLAPSE_TEST_PREFIX", "from-env")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "inputs:\n  - in.tsv\nprefix: ${EVCOLLAPSE_TEST_PREFIX}\nthreads: 5\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := New()
	require.NoError(t, Load(path, cfg))

	assert.Equal(t, []string{"in.tsv"}, cfg.Inputs)
	assert.Equal(t, "from-env", cfg.Prefix)
	assert.Equal(t, 5, cfg.Threads)
	require.NoError(t, cfg.Validate())
}
