package eventalign

import (
	"strconv"
	"strings"

	"github.com/ajitpratap0/evcollapse/pkg/errors"
)

// Event is one aligned-signal observation row, parsed and index-mapped
// through a Layout. Samples stay as strings until statistics are computed.
type Event struct {
	Position  int64
	RefKmer   string
	ModelKmer string
	Duration  float64

	StartIdx int64
	EndIdx   int64
	Samples  []string
}

// ParseEvent maps one tab-split input row to an Event using the resolved
// layout. Malformed numeric fields yield a parse error.
func ParseEvent(fields []string, layout *Layout) (Event, error) {
	var ev Event

	width := layout.width()
	if len(fields) < width {
		return ev, errors.New(errors.ErrorTypeParse, "row has fewer columns than the header").
			WithDetail("columns", len(fields)).
			WithDetail("expected", width)
	}

	pos, err := strconv.ParseInt(fields[layout.Position], 10, 64)
	if err != nil {
		return ev, errors.Wrap(err, errors.ErrorTypeParse, "malformed position field").
			WithDetail("value", fields[layout.Position])
	}
	duration, err := strconv.ParseFloat(fields[layout.EventLen], 64)
	if err != nil {
		return ev, errors.Wrap(err, errors.ErrorTypeParse, "malformed event_length field").
			WithDetail("value", fields[layout.EventLen])
	}

	ev.Position = pos
	ev.RefKmer = fields[layout.RefKmer]
	ev.ModelKmer = fields[layout.ModelKmer]
	ev.Duration = duration

	if layout.HasIndices {
		ev.StartIdx, err = strconv.ParseInt(fields[layout.StartIdx], 10, 64)
		if err != nil {
			return ev, errors.Wrap(err, errors.ErrorTypeParse, "malformed start_idx field").
				WithDetail("value", fields[layout.StartIdx])
		}
		ev.EndIdx, err = strconv.ParseInt(fields[layout.EndIdx], 10, 64)
		if err != nil {
			return ev, errors.Wrap(err, errors.ErrorTypeParse, "malformed end_idx field").
				WithDetail("value", fields[layout.EndIdx])
		}
	}

	if layout.HasSamples {
		ev.Samples = strings.Split(fields[layout.Samples], ",")
	}

	return ev, nil
}

// width returns the minimum number of columns a row must have to cover every
// resolved index.
func (l *Layout) width() int {
	max := l.RefID
	for _, idx := range []int{l.ReadID, l.Position, l.RefKmer, l.ModelKmer, l.EventLen} {
		if idx > max {
			max = idx
		}
	}
	if l.HasIndices {
		if l.StartIdx > max {
			max = l.StartIdx
		}
		if l.EndIdx > max {
			max = l.EndIdx
		}
	}
	if l.HasSamples && l.Samples > max {
		max = l.Samples
	}
	return max + 1
}

// ReadGroup is the ordered run of events sharing one (read id, ref id) pair.
// Events are contiguous in the input and their positions are non-decreasing;
// the collapse does not re-sort.
type ReadGroup struct {
	ReadID string
	RefID  string
	Events []Event
}
