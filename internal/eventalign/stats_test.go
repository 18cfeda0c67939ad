package eventalign

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/evcollapse/pkg/errors"
)

func TestComputeStatsAllFields(t *testing.T) {
	samples := []string{"1", "2", "3", "4"}

	out, err := ComputeStats(samples, []string{"mean", "std", "median", "mad", "num_signals"})
	require.NoError(t, err)
	require.Len(t, out, 5)

	assert.Equal(t, "2.5", out[0])
	// Population standard deviation of 1..4
	assert.Equal(t, strconv.FormatFloat(math.Sqrt(1.25), 'f', -1, 64), out[1])
	assert.Equal(t, "2.5", out[2])
	assert.Equal(t, "1", out[3])
	assert.Equal(t, "4", out[4])
}

func TestComputeStatsSubsetOrder(t *testing.T) {
	out, err := ComputeStats([]string{"10", "20"}, []string{"mean", "num_signals"})
	require.NoError(t, err)
	assert.Equal(t, []string{"15", "2"}, out)
}

func TestComputeStatsNoFields(t *testing.T) {
	out, err := ComputeStats([]string{"1", "2"}, nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestComputeStatsMalformedValue(t *testing.T) {
	_, err := ComputeStats([]string{"1", "not-a-float"}, []string{"mean"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeParse))
}

func TestComputeStatsUnknownField(t *testing.T) {
	_, err := ComputeStats([]string{"1"}, []string{"variance"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestComputeStatsEmptySamples(t *testing.T) {
	_, err := ComputeStats(nil, []string{"mean"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
}
