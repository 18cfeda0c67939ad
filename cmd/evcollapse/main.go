package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/evcollapse/internal/pipeline"
	"github.com/ajitpratap0/evcollapse/pkg/config"
	"github.com/ajitpratap0/evcollapse/pkg/logger"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	root := &cobra.Command{
		Use:   "evcollapse",
		Short: "Collapse nanopolish eventalign output from events to kmers",
		Long: `evcollapse re-expresses a sorted nanopolish eventalign TSV stream at kmer
granularity: consecutive events at the same reference position are collapsed
into one record carrying dwell time, mismatch/ambiguous content and optional
raw-signal statistics. It writes a flat data file plus a byte-offset index
for random access.`,
	}

	// Version command
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("evcollapse v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	var configFile string
	cfg := config.New()

	collapseCmd := &cobra.Command{
		Use:   "collapse",
		Short: "Run the collapse pipeline",
		Long: `Run the collapse pipeline over one or more eventalign TSV files.
Inputs must be sorted by read; "-" reads from standard input and files ending
in .gz are decompressed on the fly.

Example:
  evcollapse collapse -i eventalign.tsv -o results -p sample1 --threads 6`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollapse(cmd, configFile, cfg)
		},
	}

	collapseCmd.Flags().StringSliceVarP(&cfg.Inputs, "input", "i", nil, "Input eventalign TSV file(s), in order; '-' for stdin (required unless set in config file)")
	collapseCmd.Flags().StringVarP(&cfg.OutputDir, "outdir", "o", ".", "Output directory, created if absent")
	collapseCmd.Flags().StringVarP(&cfg.Prefix, "prefix", "p", "out", "Output file prefix")
	collapseCmd.Flags().IntVar(&cfg.MaxReads, "max-reads", 0, "Maximum number of reads to process (0 = unlimited)")
	collapseCmd.Flags().BoolVar(&cfg.WriteSamples, "write-samples", false, "Also emit the raw comma-joined sample list per kmer")
	collapseCmd.Flags().StringSliceVar(&cfg.StatFields, "stat-fields", cfg.StatFields, "Signal statistics to compute (subset of mean,std,median,mad,num_signals)")
	collapseCmd.Flags().IntVarP(&cfg.Threads, "threads", "t", 4, "Total thread budget: one reader, one writer, threads-2 workers")
	collapseCmd.Flags().StringVar(&cfg.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	collapseCmd.Flags().StringVar(&configFile, "config", "", "Path to a YAML configuration file (flags override it)")

	root.AddCommand(collapseCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runCollapse resolves configuration and executes the pipeline.
func runCollapse(cmd *cobra.Command, configFile string, flagCfg *config.Config) error {
	cfg := flagCfg
	if configFile != "" {
		fileCfg := config.New()
		if err := config.Load(configFile, fileCfg); err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		mergeFlags(cmd, fileCfg, flagCfg)
		cfg = fileCfg
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:    cfg.LogLevel,
		Encoding: "console",
	}); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil { //nolint:gosec
		return fmt.Errorf("failed to create output directory %s: %w", cfg.OutputDir, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := fmt.Sprintf("%s-%d", cfg.Prefix, time.Now().Unix())
	ctx = context.WithValue(ctx, logger.RunIDKey, runID)
	log := logger.WithContext(ctx).With(
		zap.String("component", "evcollapse-cli"),
		zap.String("prefix", cfg.Prefix),
	)

	p := pipeline.New(cfg, log)
	if err := p.Run(ctx); err != nil {
		return fmt.Errorf("collapse run failed: %w", err)
	}

	return nil
}

// mergeFlags overlays explicitly-set command line flags onto a file-loaded
// configuration.
func mergeFlags(cmd *cobra.Command, fileCfg, flagCfg *config.Config) {
	if cmd.Flags().Changed("input") {
		fileCfg.Inputs = flagCfg.Inputs
	}
	if cmd.Flags().Changed("outdir") {
		fileCfg.OutputDir = flagCfg.OutputDir
	}
	if cmd.Flags().Changed("prefix") {
		fileCfg.Prefix = flagCfg.Prefix
	}
	if cmd.Flags().Changed("max-reads") {
		fileCfg.MaxReads = flagCfg.MaxReads
	}
	if cmd.Flags().Changed("write-samples") {
		fileCfg.WriteSamples = flagCfg.WriteSamples
	}
	if cmd.Flags().Changed("stat-fields") {
		fileCfg.StatFields = flagCfg.StatFields
	}
	if cmd.Flags().Changed("threads") {
		fileCfg.Threads = flagCfg.Threads
	}
	if cmd.Flags().Changed("log-level") {
		fileCfg.LogLevel = flagCfg.LogLevel
	}
}
