package metrics

import "math"

// RunningStats accumulates count, mean and variance of section distances
// in one pass using Welford's online algorithm, plus the extremes.
type RunningStats struct {
	count int
	mean  float64
	m2    float64
	min   int
	max   int
	sum   int
}

// Add records one distance.
func (s *RunningStats) Add(distance int) {
	if s.count == 0 || distance < s.min {
		s.min = distance
	}
	if s.count == 0 || distance > s.max {
		s.max = distance
	}
	s.count++
	s.sum += distance

	value := float64(distance)
	delta := value - s.mean
	s.mean += delta / float64(s.count)
	s.m2 += delta * (value - s.mean)
}

func (s *RunningStats) Count() int { return s.count }
func (s *RunningStats) Sum() int { return s.sum }
func (s *RunningStats) Mean() float64 { return s.mean }
func (s *RunningStats) Min() int { return s.min }
func (s *RunningStats) Max() int { return s.max }

// StdDev returns the population standard deviation, 0 below two samples.
func (s *RunningStats) StdDev() float64 {
	if s.count < 2 {
		return 0
	}
	return math.Sqrt(s.m2 / float64(s.count))
}
