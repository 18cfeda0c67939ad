package eventalign

import (
	"strconv"
	"strings"

	"github.com/ajitpratap0/evcollapse/pkg/errors"
)

// KmerAggregate is the fold of all events sharing one reference position
// within one read. It is mutated in place as events are folded in and
// finalized to a single output line when the position changes or the group
// ends.
type KmerAggregate struct {
	Position      int64
	RefKmer       string
	NumEvents     int64
	DwellTime     float64
	NNNNNDwell    float64
	MismatchDwell float64

	StartIdx int64
	EndIdx   int64
	Samples  []string
}

// ReadSummary carries the per read-group totals paired with the formatted
// text block. RefEnd is always the last kmer position plus one.
type ReadSummary struct {
	ReadID        string
	RefID         string
	RefStart      int64
	RefEnd        int64
	Kmers         int64
	NNNNNKmers    int64
	MismatchKmers int64
	MissingKmers  int64
	DwellTime     float64
}

// Collapser folds the events of a read group into kmer aggregates and
// renders the collapsed text block. Statistics selection is fixed run-wide
// configuration, so one Collapser is shared by all workers.
type Collapser struct {
	layout       *Layout
	statFields   []string
	writeSamples bool
	header       string
}

// NewCollapser creates a Collapser for the resolved layout. statFields is
// the ordered subset of signal statistics to compute when the input carries
// a samples column; writeSamples additionally emits the raw comma-joined
// sample list.
func NewCollapser(layout *Layout, statFields []string, writeSamples bool) *Collapser {
	c := &Collapser{
		layout:       layout,
		statFields:   statFields,
		writeSamples: writeSamples,
	}
	c.header = c.buildHeader()
	return c
}

// OutputHeader returns the per-block header line. Its columns depend on
// which optional input columns are active.
func (c *Collapser) OutputHeader() string {
	return c.header
}

func (c *Collapser) buildHeader() string {
	cols := []string{"ref_pos", "ref_kmer", "num_events", "dwell_time", "NNNNN_dwell_time", "mismatch_dwell_time"}
	if c.layout.HasIndices {
		cols = append(cols, "start_idx", "end_idx")
	}
	if c.layout.HasSamples {
		cols = append(cols, c.statFields...)
		if c.writeSamples {
			cols = append(cols, "samples")
		}
	}
	return strings.Join(cols, "\t")
}

// Collapse consumes one read group and returns its summary and formatted
// text block. It is a pure function of its input: each aggregate is owned by
// the calling worker and never shared.
func (c *Collapser) Collapse(group *ReadGroup) (*ReadSummary, string, error) {
	if len(group.Events) == 0 {
		return nil, "", errors.New(errors.ErrorTypeData, "read group has no events").
			WithDetail("read_id", group.ReadID).
			WithDetail("ref_id", group.RefID)
	}

	var block strings.Builder
	block.WriteByte('#')
	block.WriteString(group.ReadID)
	block.WriteByte('\t')
	block.WriteString(group.RefID)
	block.WriteByte('\n')
	block.WriteString(c.header)
	block.WriteByte('\n')

	summary := &ReadSummary{
		ReadID:   group.ReadID,
		RefID:    group.RefID,
		RefStart: group.Events[0].Position,
	}

	agg := c.seed(group.Events[0])

	for _, ev := range group.Events[1:] {
		offset := ev.Position - agg.Position
		if offset == 0 {
			c.fold(agg, ev)
			continue
		}

		// Position changed: finalize the current aggregate, account for
		// any skipped reference positions, and start a new one.
		if err := c.finalize(agg, summary, &block); err != nil {
			return nil, "", err
		}
		if offset >= 2 {
			summary.MissingKmers += offset - 1
		}
		agg = c.seed(ev)
	}

	if err := c.finalize(agg, summary, &block); err != nil {
		return nil, "", err
	}
	summary.RefEnd = agg.Position + 1

	return summary, block.String(), nil
}

// seed starts a new aggregate from the first event of a position run.
func (c *Collapser) seed(ev Event) *KmerAggregate {
	agg := &KmerAggregate{
		Position:  ev.Position,
		RefKmer:   ev.RefKmer,
		NumEvents: 1,
		DwellTime: ev.Duration,
	}
	c.bucket(agg, ev)
	if c.layout.HasIndices {
		agg.StartIdx = ev.StartIdx
		agg.EndIdx = ev.EndIdx
	}
	if c.layout.HasSamples {
		agg.Samples = append(agg.Samples, ev.Samples...)
	}
	return agg
}

// fold merges an event at the same position into the aggregate.
func (c *Collapser) fold(agg *KmerAggregate, ev Event) {
	agg.NumEvents++
	agg.DwellTime += ev.Duration
	c.bucket(agg, ev)
	if c.layout.HasIndices {
		agg.StartIdx = ev.StartIdx
		agg.EndIdx = ev.EndIdx
	}
	if c.layout.HasSamples {
		agg.Samples = append(agg.Samples, ev.Samples...)
	}
}

// bucket attributes the event duration to the NNNNN or mismatch bucket.
// The two buckets are mutually exclusive per event.
func (c *Collapser) bucket(agg *KmerAggregate, ev Event) {
	switch {
	case ev.ModelKmer == AmbiguousKmer:
		agg.NNNNNDwell += ev.Duration
	case ev.ModelKmer != ev.RefKmer:
		agg.MismatchDwell += ev.Duration
	}
}

// finalize renders the aggregate as one output line and folds its totals
// into the read summary.
func (c *Collapser) finalize(agg *KmerAggregate, summary *ReadSummary, block *strings.Builder) error {
	summary.Kmers++
	summary.DwellTime += agg.DwellTime
	if agg.NNNNNDwell > 0 {
		summary.NNNNNKmers++
	}
	if agg.MismatchDwell > 0 {
		summary.MismatchKmers++
	}

	block.WriteString(strconv.FormatInt(agg.Position, 10))
	block.WriteByte('\t')
	block.WriteString(agg.RefKmer)
	block.WriteByte('\t')
	block.WriteString(strconv.FormatInt(agg.NumEvents, 10))
	block.WriteByte('\t')
	block.WriteString(formatFloat(agg.DwellTime))
	block.WriteByte('\t')
	block.WriteString(formatFloat(agg.NNNNNDwell))
	block.WriteByte('\t')
	block.WriteString(formatFloat(agg.MismatchDwell))

	if c.layout.HasIndices {
		block.WriteByte('\t')
		block.WriteString(strconv.FormatInt(agg.StartIdx, 10))
		block.WriteByte('\t')
		block.WriteString(strconv.FormatInt(agg.EndIdx, 10))
	}

	if c.layout.HasSamples {
		values, err := ComputeStats(agg.Samples, c.statFields)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeParse, "malformed sample list").
				WithDetail("ref_pos", agg.Position)
		}
		for _, v := range values {
			block.WriteByte('\t')
			block.WriteString(v)
		}
		if c.writeSamples {
			block.WriteByte('\t')
			block.WriteString(strings.Join(agg.Samples, ","))
		}
	}

	block.WriteByte('\n')
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
