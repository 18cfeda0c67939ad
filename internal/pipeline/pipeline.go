// Package pipeline implements the streaming collapse pipeline: a single
// reader groups eventalign rows by (read id, ref id), a pool of workers
// collapses each group to kmer granularity, and a single writer serializes
// the results into the data file and its byte-offset index.
//
// # Architecture
//
// Data flows reader -> workers -> writer over two bounded channels, so a
// full channel blocks the producer and memory stays bounded. Termination is
// marker-based: the reader enqueues one nil marker per worker, each worker
// forwards one marker to the writer, and the writer finishes after it has
// observed one marker per worker. Output order is therefore the arrival
// order of finished work, not input order; consumers locate a read through
// the index file.
//
// Faults use two explicit signals behind one coordinator select: the first
// stage error lands on a buffered error channel, and the writer closes a
// done channel when it exits. The first error wins, cancels the shared
// context, and tears every stage down; a faulted run never writes the
// end-of-data sentinel.
package pipeline

import (
	"bufio"
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ajitpratap0/evcollapse/internal/eventalign"
	"github.com/ajitpratap0/evcollapse/pkg/config"
	"github.com/ajitpratap0/evcollapse/pkg/errors"
)

// DefaultQueueDepth is the capacity of the work and result channels.
const DefaultQueueDepth = 1000

// result pairs a collapsed read summary with its formatted text block.
// A nil result on the result channel is a worker termination marker.
type result struct {
	summary *eventalign.ReadSummary
	block   string
}

// Pipeline owns one collapse run: configuration, resolved column layout,
// and the shared fault/completion signalling.
type Pipeline struct {
	cfg        *config.Config
	log        *zap.Logger
	workers    int
	queueDepth int

	layout    *eventalign.Layout
	collapser *eventalign.Collapser

	failed atomic.Bool
	errCh  chan error
}

// New creates a pipeline for the given configuration. The configuration is
// validated in Run, before any stage is launched.
func New(cfg *config.Config, log *zap.Logger) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		log:        log,
		workers:    cfg.Workers(),
		queueDepth: DefaultQueueDepth,
	}
}

// Run executes the collapse run and blocks until it completes or the first
// stage fault aborts it. Configuration and input schema problems are
// reported before any stage starts.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Resolve the column layout from the first input's header before
	// launching anything: a schema fault aborts with no stages running.
	// The opened source is handed to the reader, already positioned on the
	// first data line, so stdin input works too.
	first, err := p.probe(p.cfg.Inputs[0])
	if err != nil {
		return err
	}

	p.collapser = eventalign.NewCollapser(p.layout, p.cfg.OrderedStatFields(), p.cfg.WriteSamples)
	p.errCh = make(chan error, 1)

	work := make(chan *eventalign.ReadGroup, p.queueDepth)
	results := make(chan *result, p.queueDepth)
	done := make(chan struct{})

	p.log.Info("starting collapse pipeline",
		zap.Strings("inputs", p.cfg.Inputs),
		zap.Int("workers", p.workers),
		zap.Int("queue_depth", p.queueDepth),
		zap.Bool("indices", p.layout.HasIndices),
		zap.Bool("samples", p.layout.HasSamples))

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		p.readGroups(ctx, first, work)
	}()

	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.collapseWorker(ctx, id, work, results)
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		p.writeOutput(ctx, results, done)
	}()

	select {
	case err := <-p.errCh:
		cancel()
		wg.Wait()
		p.log.Error("pipeline aborted", zap.Error(err))
		return err

	case <-done:
		if p.failed.Load() {
			err := <-p.errCh
			cancel()
			wg.Wait()
			p.log.Error("pipeline aborted", zap.Error(err))
			return err
		}
		wg.Wait()
		return nil
	}
}

// probe opens the first input, reads its header line and resolves the column
// layout for the whole run.
func (p *Pipeline) probe(path string) (*source, error) {
	src, err := openSource(path)
	if err != nil {
		return nil, err
	}

	if !src.scanner.Scan() {
		src.Close()
		if err := src.scanner.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read input header").
				WithDetail("path", path)
		}
		return nil, errors.New(errors.ErrorTypeSchema, "input is empty, no header line").
			WithDetail("path", path)
	}

	layout, err := eventalign.ResolveLayout(strings.Split(src.scanner.Text(), "\t"))
	if err != nil {
		src.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeSchema, "failed to resolve input columns").
			WithDetail("path", path)
	}

	p.layout = layout
	return src, nil
}

// fail records the first stage fault. Later faults are logged and dropped;
// the coordinator only ever observes the first one.
func (p *Pipeline) fail(err error) {
	if p.failed.CompareAndSwap(false, true) {
		p.errCh <- err
		return
	}
	p.log.Debug("suppressed subsequent fault", zap.Error(err))
}

// scanBufferSize is the initial scanner buffer; maxLineSize bounds a single
// input line. Rows carrying raw sample lists can run long.
const (
	scanBufferSize = 256 * 1024
	maxLineSize    = 64 * 1024 * 1024
)

func newLineScanner(r *bufio.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, scanBufferSize), maxLineSize)
	return sc
}
