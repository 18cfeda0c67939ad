package eventalign

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/evcollapse/pkg/errors"
)

var baseHeader = []string{"contig", "read_name", "position", "reference_kmer", "model_kmer", "event_length"}

func baseLayout(t *testing.T, extra ...string) *Layout {
	t.Helper()
	layout, err := ResolveLayout(append(append([]string{}, baseHeader...), extra...))
	require.NoError(t, err)
	return layout
}

func TestCollapseSinglePosition(t *testing.T) {
	layout := baseLayout(t)
	c := NewCollapser(layout, nil, false)

	group := &ReadGroup{
		ReadID: "r1",
		RefID:  "chr1",
		Events: []Event{
			{Position: 42, RefKmer: "AATGC", ModelKmer: "AATGC", Duration: 0.25},
			{Position: 42, RefKmer: "AATGC", ModelKmer: "NNNNN", Duration: 0.5},
			{Position: 42, RefKmer: "AATGC", ModelKmer: "CCTAG", Duration: 0.125},
		},
	}

	summary, block, err := c.Collapse(group)
	require.NoError(t, err)

	assert.Equal(t, int64(1), summary.Kmers)
	assert.Equal(t, int64(42), summary.RefStart)
	assert.Equal(t, int64(43), summary.RefEnd)
	assert.Equal(t, int64(1), summary.NNNNNKmers)
	assert.Equal(t, int64(1), summary.MismatchKmers)
	assert.Equal(t, int64(0), summary.MissingKmers)
	assert.InDelta(t, 0.875, summary.DwellTime, 1e-12)

	lines := strings.Split(strings.TrimSuffix(block, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "#r1\tchr1", lines[0])
	assert.Equal(t, "ref_pos\tref_kmer\tnum_events\tdwell_time\tNNNNN_dwell_time\tmismatch_dwell_time", lines[1])
	assert.Equal(t, "42\tAATGC\t3\t0.875\t0.5\t0.125", lines[2])
}

func TestCollapseBucketsAreDisjoint(t *testing.T) {
	layout := baseLayout(t)
	c := NewCollapser(layout, nil, false)

	// An NNNNN call never lands in the mismatch bucket even though it also
	// differs from the reference kmer.
	group := &ReadGroup{
		ReadID: "r1",
		RefID:  "chr1",
		Events: []Event{
			{Position: 7, RefKmer: "AATGC", ModelKmer: "NNNNN", Duration: 0.5},
		},
	}

	summary, block, err := c.Collapse(group)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.NNNNNKmers)
	assert.Equal(t, int64(0), summary.MismatchKmers)
	assert.Contains(t, block, "7\tAATGC\t1\t0.5\t0.5\t0\n")
}

func TestCollapseMissingKmerAccounting(t *testing.T) {
	layout := baseLayout(t)
	c := NewCollapser(layout, nil, false)

	group := &ReadGroup{
		ReadID: "r1",
		RefID:  "chr1",
		Events: []Event{
			{Position: 10, RefKmer: "AATGC", ModelKmer: "AATGC", Duration: 0.25},
			{Position: 10, RefKmer: "AATGC", ModelKmer: "AATGC", Duration: 0.25},
			{Position: 13, RefKmer: "GCTTA", ModelKmer: "GCTTA", Duration: 0.25},
			{Position: 14, RefKmer: "CTTAG", ModelKmer: "CTTAG", Duration: 0.25},
		},
	}

	summary, _, err := c.Collapse(group)
	require.NoError(t, err)

	assert.Equal(t, int64(3), summary.Kmers)
	assert.Equal(t, int64(2), summary.MissingKmers, "positions 11 and 12 are skipped")
	assert.Equal(t, int64(10), summary.RefStart)
	assert.Equal(t, int64(15), summary.RefEnd)
}

func TestCollapseMissingKmerBeforeLastPosition(t *testing.T) {
	layout := baseLayout(t)
	c := NewCollapser(layout, nil, false)

	// A gap directly before the final kmer: the skipped positions are counted
	// exactly once and the end coordinate follows the last kmer, not the gap.
	group := &ReadGroup{
		ReadID: "r1",
		RefID:  "chr1",
		Events: []Event{
			{Position: 10, RefKmer: "AATGC", ModelKmer: "AATGC", Duration: 0.25},
			{Position: 13, RefKmer: "GCTTA", ModelKmer: "GCTTA", Duration: 0.25},
		},
	}

	summary, _, err := c.Collapse(group)
	require.NoError(t, err)

	assert.Equal(t, int64(2), summary.Kmers)
	assert.Equal(t, int64(2), summary.MissingKmers)
	assert.Equal(t, int64(10), summary.RefStart)
	assert.Equal(t, int64(14), summary.RefEnd)
}

func TestCollapseOptionalIndices(t *testing.T) {
	layout := baseLayout(t, "start_idx", "end_idx")
	c := NewCollapser(layout, nil, false)

	group := &ReadGroup{
		ReadID: "r1",
		RefID:  "chr1",
		Events: []Event{
			{Position: 5, RefKmer: "AATGC", ModelKmer: "AATGC", Duration: 0.25, StartIdx: 100, EndIdx: 110},
			{Position: 5, RefKmer: "AATGC", ModelKmer: "AATGC", Duration: 0.25, StartIdx: 110, EndIdx: 120},
		},
	}

	_, block, err := c.Collapse(group)
	require.NoError(t, err)

	// The aggregate keeps the last-seen index pair.
	assert.Contains(t, block, "start_idx\tend_idx")
	assert.Contains(t, block, "5\tAATGC\t2\t0.5\t0\t0\t110\t120\n")
}

func TestOutputHeaderOptionalColumns(t *testing.T) {
	tests := []struct {
		name         string
		extra        []string
		statFields   []string
		writeSamples bool
		want         string
	}{
		{
			name:  "required only",
			want:  "ref_pos\tref_kmer\tnum_events\tdwell_time\tNNNNN_dwell_time\tmismatch_dwell_time",
		},
		{
			name:       "no samples column means no stat columns",
			statFields: []string{"mean", "num_signals"},
			want:       "ref_pos\tref_kmer\tnum_events\tdwell_time\tNNNNN_dwell_time\tmismatch_dwell_time",
		},
		{
			name:       "samples with two stat fields",
			extra:      []string{"samples"},
			statFields: []string{"mean", "num_signals"},
			want:       "ref_pos\tref_kmer\tnum_events\tdwell_time\tNNNNN_dwell_time\tmismatch_dwell_time\tmean\tnum_signals",
		},
		{
			name:         "samples with raw output",
			extra:        []string{"start_idx", "end_idx", "samples"},
			statFields:   []string{"mean"},
			writeSamples: true,
			want:         "ref_pos\tref_kmer\tnum_events\tdwell_time\tNNNNN_dwell_time\tmismatch_dwell_time\tstart_idx\tend_idx\tmean\tsamples",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout := baseLayout(t, tt.extra...)
			c := NewCollapser(layout, tt.statFields, tt.writeSamples)
			assert.Equal(t, tt.want, c.OutputHeader())
		})
	}
}

func TestCollapseSamples(t *testing.T) {
	layout := baseLayout(t, "samples")
	c := NewCollapser(layout, []string{"mean", "num_signals"}, true)

	group := &ReadGroup{
		ReadID: "r1",
		RefID:  "chr1",
		Events: []Event{
			{Position: 9, RefKmer: "AATGC", ModelKmer: "AATGC", Duration: 0.25, Samples: []string{"1.0", "2.0"}},
			{Position: 9, RefKmer: "AATGC", ModelKmer: "AATGC", Duration: 0.25, Samples: []string{"3.0", "4.0"}},
		},
	}

	_, block, err := c.Collapse(group)
	require.NoError(t, err)

	// Sample lists concatenate across folded events.
	assert.Contains(t, block, "9\tAATGC\t2\t0.5\t0\t0\t2.5\t4\t1.0,2.0,3.0,4.0\n")
}

func TestCollapseMalformedSamples(t *testing.T) {
	layout := baseLayout(t, "samples")
	c := NewCollapser(layout, []string{"mean"}, false)

	group := &ReadGroup{
		ReadID: "r1",
		RefID:  "chr1",
		Events: []Event{
			{Position: 9, RefKmer: "AATGC", ModelKmer: "AATGC", Duration: 0.25, Samples: []string{"1.0", "oops"}},
		},
	}

	_, _, err := c.Collapse(group)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeParse))
}

func TestCollapseEmptyGroup(t *testing.T) {
	c := NewCollapser(baseLayout(t), nil, false)

	_, _, err := c.Collapse(&ReadGroup{ReadID: "r1", RefID: "chr1"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
}

func TestParseEvent(t *testing.T) {
	layout := baseLayout(t, "start_idx", "end_idx", "samples")

	t.Run("valid row", func(t *testing.T) {
		fields := []string{"chr1", "r1", "42", "AATGC", "AATGC", "0.00175", "100", "110", "98.5,97.1"}
		ev, err := ParseEvent(fields, layout)
		require.NoError(t, err)
		assert.Equal(t, int64(42), ev.Position)
		assert.Equal(t, "AATGC", ev.RefKmer)
		assert.Equal(t, "AATGC", ev.ModelKmer)
		assert.InDelta(t, 0.00175, ev.Duration, 1e-12)
		assert.Equal(t, int64(100), ev.StartIdx)
		assert.Equal(t, int64(110), ev.EndIdx)
		assert.Equal(t, []string{"98.5", "97.1"}, ev.Samples)
	})

	t.Run("malformed position", func(t *testing.T) {
		fields := []string{"chr1", "r1", "xx", "AATGC", "AATGC", "0.00175", "100", "110", "98.5"}
		_, err := ParseEvent(fields, layout)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeParse))
	})

	t.Run("malformed duration", func(t *testing.T) {
		fields := []string{"chr1", "r1", "42", "AATGC", "AATGC", "oops", "100", "110", "98.5"}
		_, err := ParseEvent(fields, layout)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeParse))
	})

	t.Run("short row", func(t *testing.T) {
		_, err := ParseEvent([]string{"chr1", "r1", "42"}, layout)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeParse))
	})
}
