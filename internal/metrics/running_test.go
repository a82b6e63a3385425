package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunningStatsEmpty(t *testing.T) {
	var s RunningStats
	assert.Equal(t, 0, s.Count())
	assert.Equal(t, 0.0, s.Mean())
	assert.Equal(t, 0.0, s.StdDev())
}

func TestRunningStatsSingle(t *testing.T) {
	var s RunningStats
	s.Add(7)
	assert.Equal(t, 1, s.Count())
	assert.Equal(t, 7.0, s.Mean())
	assert.Equal(t, 0.0, s.StdDev())
	assert.Equal(t, 7, s.Min())
	assert.Equal(t, 7, s.Max())
}

func TestRunningStatsMatchesDirectComputation(t *testing.T) {
	var s RunningStats
	for _, d := range []int{2, 4, 4, 4, 5, 5, 7, 9} {
		s.Add(d)
	}

	assert.Equal(t, 8, s.Count())
	assert.Equal(t, 40, s.Sum())
	assert.InDelta(t, 5.0, s.Mean(), 1e-9)
	assert.InDelta(t, 2.0, s.StdDev(), 1e-9)
	assert.Equal(t, 2, s.Min())
	assert.Equal(t, 9, s.Max())
}
