package pipeline

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/ajitpratap0/evcollapse/internal/eventalign"
	"github.com/ajitpratap0/evcollapse/pkg/errors"
	"github.com/ajitpratap0/evcollapse/pkg/metrics"
)

// source is one open input stream with its line scanner. Gzip inputs are
// decompressed transparently; "-" and "0" read from stdin.
type source struct {
	path    string
	file    *os.File
	gz      *gzip.Reader
	scanner *bufio.Scanner
}

func openSource(path string) (*source, error) {
	src := &source{path: path}

	var r io.Reader
	if path == "-" || path == "0" {
		r = os.Stdin
	} else {
		f, err := os.Open(path) //nolint:gosec // G304: input paths come from the CLI
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open input file").
				WithDetail("path", path)
		}
		src.file = f
		r = f
	}

	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(r)
		if err != nil {
			src.Close()
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open gzip input").
				WithDetail("path", path)
		}
		src.gz = gz
		r = gz
	}

	src.scanner = newLineScanner(bufio.NewReaderSize(r, scanBufferSize))
	return src, nil
}

func (s *source) Close() error {
	if s.gz != nil {
		_ = s.gz.Close()
	}
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

// readGroups streams every input file in order, groups consecutive rows
// sharing one (read id, ref id) key, and pushes complete groups onto the
// work channel. It always enqueues one termination marker per worker before
// returning, so workers never block on a dead producer; on a fault it skips
// the remaining files first.
func (p *Pipeline) readGroups(ctx context.Context, first *source, work chan<- *eventalign.ReadGroup) {
	log := p.log.With(zap.String("stage", "reader"))

	emitted := 0
	var group *eventalign.ReadGroup

	defer func() {
		// One marker per worker so each detects end-of-input independently.
		for i := 0; i < p.workers; i++ {
			select {
			case work <- nil:
			case <-ctx.Done():
				return
			}
		}
	}()

	flush := func() bool {
		if group == nil {
			return true
		}
		select {
		case work <- group:
		case <-ctx.Done():
			return false
		}
		group = nil
		emitted++
		metrics.ReadGroups.Inc()
		metrics.QueueDepth.WithLabelValues("work").Set(float64(len(work)))
		return true
	}

	ceiling := func() bool {
		return p.cfg.MaxReads > 0 && emitted >= p.cfg.MaxReads
	}

	for i, path := range p.cfg.Inputs {
		if ceiling() {
			break
		}

		src := first
		if i > 0 {
			var err error
			src, err = openSource(path)
			if err != nil {
				p.fail(err)
				return
			}
			// Layout is fixed run-wide; later headers are only skipped.
			if !src.scanner.Scan() {
				if err := src.scanner.Err(); err != nil {
					p.fail(errors.Wrap(err, errors.ErrorTypeFile, "failed to read input header").
						WithDetail("path", path))
					src.Close()
					return
				}
				src.Close()
				continue
			}
		}

		log.Debug("reading input", zap.String("path", path))

		for src.scanner.Scan() {
			line := src.scanner.Text()
			if line == "" {
				continue
			}

			fields := strings.Split(line, "\t")
			ev, err := eventalign.ParseEvent(fields, p.layout)
			if err != nil {
				p.fail(errors.Wrap(err, errors.ErrorTypeParse, "failed to parse event row").
					WithDetail("path", path))
				src.Close()
				return
			}

			readID := fields[p.layout.ReadID]
			refID := fields[p.layout.RefID]

			// Key change: flush the finished group, start a new one.
			if group != nil && (group.ReadID != readID || group.RefID != refID) {
				if !flush() {
					src.Close()
					return
				}
				if ceiling() {
					break
				}
			}
			if group == nil {
				group = &eventalign.ReadGroup{ReadID: readID, RefID: refID}
			}
			group.Events = append(group.Events, ev)
		}

		if err := src.scanner.Err(); err != nil {
			p.fail(errors.Wrap(err, errors.ErrorTypeFile, "failed to read input file").
				WithDetail("path", path))
			src.Close()
			return
		}
		src.Close()

		// Groups never merge across file boundaries, even on equal keys.
		if !ceiling() && !flush() {
			return
		}
	}

	log.Debug("reader finished", zap.Int("groups", emitted))
}
