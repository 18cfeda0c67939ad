package eventalign

import (
	"strconv"

	"github.com/montanaflynn/stats"

	"github.com/ajitpratap0/evcollapse/pkg/errors"
)

// ComputeStats parses the raw sample strings and computes the requested
// statistic fields over them, rendered in output order. Samples are parsed
// here, not at ingestion, so groups without active statistics never pay for
// the conversion.
func ComputeStats(samples []string, fields []string) ([]string, error) {
	if len(fields) == 0 {
		return nil, nil
	}

	data := make(stats.Float64Data, len(samples))
	for i, s := range samples {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeParse, "malformed sample value").
				WithDetail("value", s)
		}
		data[i] = v
	}

	out := make([]string, 0, len(fields))
	for _, field := range fields {
		var (
			v   float64
			err error
		)
		switch field {
		case "mean":
			v, err = stats.Mean(data)
		case "std":
			v, err = stats.StandardDeviation(data)
		case "median":
			v, err = stats.Median(data)
		case "mad":
			v, err = stats.MedianAbsoluteDeviation(data)
		case "num_signals":
			out = append(out, strconv.Itoa(len(data)))
			continue
		default:
			return nil, errors.New(errors.ErrorTypeConfig, "unsupported statistic field").
				WithDetail("field", field)
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "statistic computation failed").
				WithDetail("field", field)
		}
		out = append(out, formatFloat(v))
	}

	return out, nil
}
