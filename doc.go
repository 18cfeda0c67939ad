// Package evcollapse collapses nanopolish eventalign output from event to
// kmer granularity.
//
// A nanopore signal-alignment run emits one row per aligned event, sorted by
// read; evcollapse folds consecutive events at the same reference position
// into a single kmer record carrying dwell time, ambiguous (NNNNN) and
// mismatching content, and optional raw-signal statistics. The result is a
// flat TSV data file plus a companion byte-offset index for random access by
// (read id, reference id).
//
// # Architecture
//
// The core is a bounded streaming pipeline with three stage kinds:
//
//  1. Reader: streams the input files in order, groups consecutive rows
//     sharing one (read id, reference id) key, and pushes complete read
//     groups onto a bounded work channel.
//
//  2. Workers: race to pull read groups off the shared channel and run the
//     position-based collapse, producing a (summary, text block) pair each.
//
//  3. Writer: drains the result channel in arrival order, appending blocks
//     to the data file while recording byte offsets into the index file.
//
// Termination is marker-counted: the reader enqueues one marker per worker
// and the writer finishes after observing one marker per worker, so output
// order is the arrival order of finished work rather than input order.
// Consumers must locate reads through the index, never by position in the
// data file.
//
// # Quick Start
//
//	evcollapse collapse -i eventalign.tsv -o results -p sample1 --threads 6
//
// Or programmatically:
//
//	cfg := config.New()
//	cfg.Inputs = []string{"eventalign.tsv"}
//	cfg.OutputDir = "results"
//	cfg.Prefix = "sample1"
//
//	p := pipeline.New(cfg, logger.Get())
//	err := p.Run(ctx)
//
// # Packages
//
//   - cmd/evcollapse: command line interface
//   - internal/eventalign: data model and the collapse algorithm
//   - internal/pipeline: reader, worker pool, writer, coordination
//   - pkg/config: run configuration and validation
//   - pkg/errors: structured error handling
//   - pkg/logger: structured logging
//   - pkg/metrics: Prometheus performance tracking
package evcollapse
