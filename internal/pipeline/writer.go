package pipeline

import (
	"bufio"
	"context"
	"os"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/ajitpratap0/evcollapse/internal/eventalign"
	"github.com/ajitpratap0/evcollapse/pkg/errors"
	"github.com/ajitpratap0/evcollapse/pkg/metrics"
)

// indexHeader is the fixed header of the companion index file.
const indexHeader = "ref_id\tref_start\tref_end\tread_id\tkmers\tdwell_time\tNNNNN_kmers\tmismatch_kmers\tmissing_kmers\tbyte_offset\tbyte_len\n"

// IndexRecord is one line of the index file: the read summary plus the byte
// offset and length of its block inside the data file. ByteLen excludes the
// block's trailing newline.
type IndexRecord struct {
	Summary    *eventalign.ReadSummary
	ByteOffset int64
	ByteLen    int64
}

func (r *IndexRecord) line() string {
	s := r.Summary
	cols := []string{
		s.RefID,
		strconv.FormatInt(s.RefStart, 10),
		strconv.FormatInt(s.RefEnd, 10),
		s.ReadID,
		strconv.FormatInt(s.Kmers, 10),
		strconv.FormatFloat(s.DwellTime, 'f', -1, 64),
		strconv.FormatInt(s.NNNNNKmers, 10),
		strconv.FormatInt(s.MismatchKmers, 10),
		strconv.FormatInt(s.MissingKmers, 10),
		strconv.FormatInt(r.ByteOffset, 10),
		strconv.FormatInt(r.ByteLen, 10),
	}
	return strings.Join(cols, "\t") + "\n"
}

// RunSummary is the final run artifact written next to the output files.
type RunSummary struct {
	Reads           int64   `json:"reads"`
	Kmers           int64   `json:"kmers"`
	DurationSeconds float64 `json:"duration_seconds"`
	ReadsPerSecond  float64 `json:"reads_per_second"`
	DataFile        string  `json:"data_file"`
	IndexFile       string  `json:"index_file"`
}

// writeOutput drains the result channel in pure arrival order, appending
// each block to the data file and one line per read to the index file while
// tracking the running byte offset. It terminates once it has observed one
// termination marker per worker; marker order across workers is irrelevant,
// only the count matters. Whatever happens, done is closed on exit - that is
// the run's only clean-shutdown signal.
func (p *Pipeline) writeOutput(ctx context.Context, results <-chan *result, done chan<- struct{}) {
	defer close(done)

	log := p.log.With(zap.String("stage", "writer"))

	dataFile, err := os.Create(p.cfg.DataPath())
	if err != nil {
		p.fail(errors.Wrap(err, errors.ErrorTypeFile, "failed to create data file").
			WithDetail("path", p.cfg.DataPath()))
		return
	}
	defer dataFile.Close()

	idxFile, err := os.Create(p.cfg.IndexPath())
	if err != nil {
		p.fail(errors.Wrap(err, errors.ErrorTypeFile, "failed to create index file").
			WithDetail("path", p.cfg.IndexPath()))
		return
	}
	defer idxFile.Close()

	data := bufio.NewWriterSize(dataFile, scanBufferSize)
	idx := bufio.NewWriter(idxFile)

	if _, err := idx.WriteString(indexHeader); err != nil {
		p.fail(errors.Wrap(err, errors.ErrorTypeFile, "failed to write index header"))
		return
	}

	tracker := metrics.NewThroughputTracker()
	timer := metrics.NewTimer("collapse_run")

	var (
		offset  int64
		reads   int64
		kmers   int64
		markers int
	)

	for markers < p.workers {
		select {
		case res := <-results:
			if res == nil {
				markers++
				continue
			}

			if _, err := data.WriteString(res.block); err != nil {
				p.fail(errors.Wrap(err, errors.ErrorTypeFile, "failed to write data block").
					WithDetail("read_id", res.summary.ReadID))
				return
			}

			rec := &IndexRecord{
				Summary:    res.summary,
				ByteOffset: offset,
				ByteLen:    int64(len(res.block) - 1),
			}
			if _, err := idx.WriteString(rec.line()); err != nil {
				p.fail(errors.Wrap(err, errors.ErrorTypeFile, "failed to write index record").
					WithDetail("read_id", res.summary.ReadID))
				return
			}

			offset += int64(len(res.block))
			reads++
			kmers += res.summary.Kmers
			tracker.Increment(1)
			metrics.ReadsWritten.Inc()
			metrics.BytesWritten.Add(float64(len(res.block)))

		case <-ctx.Done():
			log.Debug("writer cancelled")
			return
		}
	}

	// A faulted run produces no usable output: leave the end-of-data
	// sentinel off so downstream consumers reject the file.
	if p.failed.Load() {
		log.Debug("writer exiting without sentinel after fault")
		return
	}

	if _, err := data.WriteString("#\n"); err != nil {
		p.fail(errors.Wrap(err, errors.ErrorTypeFile, "failed to write end-of-data sentinel"))
		return
	}
	if err := data.Flush(); err != nil {
		p.fail(errors.Wrap(err, errors.ErrorTypeFile, "failed to flush data file"))
		return
	}
	if err := idx.Flush(); err != nil {
		p.fail(errors.Wrap(err, errors.ErrorTypeFile, "failed to flush index file"))
		return
	}

	duration := timer.Stop()
	summary := &RunSummary{
		Reads:           reads,
		Kmers:           kmers,
		DurationSeconds: duration.Seconds(),
		ReadsPerSecond:  float64(reads) / duration.Seconds(),
		DataFile:        p.cfg.DataPath(),
		IndexFile:       p.cfg.IndexPath(),
	}
	if err := p.writeSummary(summary); err != nil {
		p.fail(err)
		return
	}
	tracker.GetAndReset()

	log.Info("collapse run complete",
		zap.Int64("reads", reads),
		zap.Int64("kmers", kmers),
		zap.Duration("duration", duration),
		zap.Float64("reads_per_second", summary.ReadsPerSecond))
}

func (p *Pipeline) writeSummary(summary *RunSummary) error {
	payload, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode run summary")
	}
	if err := os.WriteFile(p.cfg.SummaryPath(), append(payload, '\n'), 0644); err != nil { //nolint:gosec
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write run summary").
			WithDetail("path", p.cfg.SummaryPath())
	}
	return nil
}
