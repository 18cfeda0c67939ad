// Package config defines the configuration surface for an evcollapse run.
// A single Config structure covers the whole pipeline; it is validated
// eagerly so that invalid runs abort before any stage is launched.
package config

import (
	"path/filepath"
	"strings"

	"github.com/ajitpratap0/evcollapse/pkg/errors"
)

// Statistic field names accepted in StatFields.
const (
	StatMean       = "mean"
	StatStd        = "std"
	StatMedian     = "median"
	StatMad        = "mad"
	StatNumSignals = "num_signals"
)

// knownStatFields lists the supported statistic fields in output order.
var knownStatFields = []string{StatMean, StatStd, StatMedian, StatMad, StatNumSignals}

// Config is the configuration for a collapse run.
type Config struct {
	// Inputs are the eventalign TSV files to process, in order.
	// "-" or "0" reads from stdin; files ending in .gz are decompressed.
	Inputs []string `yaml:"inputs" json:"inputs"`

	// OutputDir is the directory receiving the output files.
	OutputDir string `yaml:"output_dir" json:"output_dir"`

	// Prefix names the output files: <prefix>_eventalign_collapse.tsv[.idx]
	Prefix string `yaml:"prefix" json:"prefix"`

	// MaxReads caps the number of read groups processed (0 = unlimited).
	MaxReads int `yaml:"max_reads" json:"max_reads"`

	// WriteSamples emits the raw comma-joined sample list per kmer when the
	// input carries a samples column.
	WriteSamples bool `yaml:"write_samples" json:"write_samples"`

	// StatFields selects which signal statistics to compute when the input
	// carries a samples column. Subset of mean, std, median, mad, num_signals.
	StatFields []string `yaml:"stat_fields" json:"stat_fields"`

	// Threads is the total thread budget: one reader, one writer, and
	// Threads-2 collapse workers. Must be at least 3.
	Threads int `yaml:"threads" json:"threads"`

	// LogLevel sets logging verbosity (debug, info, warn, error).
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// New returns a Config with defaults applied.
func New() *Config {
	return &Config{
		OutputDir:  ".",
		Prefix:     "out",
		MaxReads:   0,
		StatFields: []string{StatMean, StatStd, StatMedian, StatMad, StatNumSignals},
		Threads:    4,
		LogLevel:   "info",
	}
}

// Validate checks the configuration for correctness. It returns a config
// error for the first problem found.
func (c *Config) Validate() error {
	if len(c.Inputs) == 0 {
		return errors.New(errors.ErrorTypeConfig, "at least one input file is required")
	}
	if c.Prefix == "" {
		return errors.New(errors.ErrorTypeConfig, "output prefix is required")
	}
	if c.Threads < 3 {
		return errors.New(errors.ErrorTypeConfig, "threads must be at least 3 (one reader, one writer, one worker)").
			WithDetail("threads", c.Threads)
	}
	if c.MaxReads < 0 {
		return errors.New(errors.ErrorTypeConfig, "max_reads cannot be negative")
	}
	for _, field := range c.StatFields {
		if !isKnownStatField(field) {
			return errors.New(errors.ErrorTypeConfig, "unsupported statistic field").
				WithDetail("field", field).
				WithDetail("supported", strings.Join(knownStatFields, ","))
		}
	}
	return nil
}

// Workers returns the size of the collapse worker pool.
func (c *Config) Workers() int {
	return c.Threads - 2
}

// DataPath returns the path of the collapsed data file.
func (c *Config) DataPath() string {
	return filepath.Join(c.OutputDir, c.Prefix+"_eventalign_collapse.tsv")
}

// IndexPath returns the path of the companion index file.
func (c *Config) IndexPath() string {
	return c.DataPath() + ".idx"
}

// SummaryPath returns the path of the run summary artifact.
func (c *Config) SummaryPath() string {
	return filepath.Join(c.OutputDir, c.Prefix+"_eventalign_collapse.json")
}

// OrderedStatFields returns the configured statistic fields in canonical
// output order, deduplicated.
func (c *Config) OrderedStatFields() []string {
	ordered := make([]string, 0, len(c.StatFields))
	for _, known := range knownStatFields {
		for _, field := range c.StatFields {
			if field == known {
				ordered = append(ordered, known)
				break
			}
		}
	}
	return ordered
}

func isKnownStatField(field string) bool {
	for _, known := range knownStatFields {
		if field == known {
			return true
		}
	}
	return false
}
