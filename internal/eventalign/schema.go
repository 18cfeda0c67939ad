// Package eventalign models nanopolish eventalign data and implements the
// position-based collapse of per-event rows into per-kmer aggregates.
package eventalign

import (
	"github.com/ajitpratap0/evcollapse/pkg/errors"
)

// Input column names recognized in the eventalign header.
const (
	ColContig    = "contig"
	ColReadName  = "read_name"
	ColReadIndex = "read_index"
	ColPosition  = "position"
	ColRefKmer   = "reference_kmer"
	ColModelKmer = "model_kmer"
	ColEventLen  = "event_length"
	ColStartIdx  = "start_idx"
	ColEndIdx    = "end_idx"
	ColSamples   = "samples"
)

// AmbiguousKmer is the model kmer nanopolish reports for an unmodeled call.
const AmbiguousKmer = "NNNNN"

// Layout holds the column indices resolved from an eventalign header line.
// It is resolved once, from the header of the first input file, and fixes the
// record shape for the rest of the run: the optional start/end index pair and
// the samples column toggle optional fields everywhere downstream.
type Layout struct {
	RefID     int
	ReadID    int
	Position  int
	RefKmer   int
	ModelKmer int
	EventLen  int

	StartIdx int
	EndIdx   int
	Samples  int

	HasIndices bool
	HasSamples bool
}

// ResolveLayout resolves column indices from a header line. The read id is
// accepted under either of two header names, read_name or read_index. A
// missing required column yields a schema error.
func ResolveLayout(header []string) (*Layout, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}

	layout := &Layout{}

	var err error
	if layout.RefID, err = requireColumn(index, ColContig); err != nil {
		return nil, err
	}
	if pos, ok := index[ColReadName]; ok {
		layout.ReadID = pos
	} else if pos, ok := index[ColReadIndex]; ok {
		layout.ReadID = pos
	} else {
		return nil, errors.New(errors.ErrorTypeSchema, "required read id column is missing").
			WithDetail("accepted", []string{ColReadName, ColReadIndex})
	}
	if layout.Position, err = requireColumn(index, ColPosition); err != nil {
		return nil, err
	}
	if layout.RefKmer, err = requireColumn(index, ColRefKmer); err != nil {
		return nil, err
	}
	if layout.ModelKmer, err = requireColumn(index, ColModelKmer); err != nil {
		return nil, err
	}
	if layout.EventLen, err = requireColumn(index, ColEventLen); err != nil {
		return nil, err
	}

	// Optional paired columns: both must be present to activate indices.
	start, hasStart := index[ColStartIdx]
	end, hasEnd := index[ColEndIdx]
	if hasStart && hasEnd {
		layout.StartIdx = start
		layout.EndIdx = end
		layout.HasIndices = true
	}

	if pos, ok := index[ColSamples]; ok {
		layout.Samples = pos
		layout.HasSamples = true
	}

	return layout, nil
}

func requireColumn(index map[string]int, name string) (int, error) {
	pos, ok := index[name]
	if !ok {
		return 0, errors.New(errors.ErrorTypeSchema, "required column is missing").
			WithDetail("column", name)
	}
	return pos, nil
}
