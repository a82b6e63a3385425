package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mini-rodalies-3d/subway/internal/section"
)

var (
	// sectionMutations counts section adds/removals by outcome
	sectionMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subway_section_mutations_total",
		Help: "Section add/remove requests by operation and outcome",
	}, []string{"op", "outcome"})

	// lineSections tracks line length after each successful mutation
	lineSections = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "subway_line_sections",
		Help:    "Number of sections on a line after a successful mutation",
		Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
	})

	// lineCacheLookups counts line view cache hits and misses
	lineCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subway_line_cache_lookups_total",
		Help: "Line view cache lookups by result",
	}, []string{"result"}) // "hit" or "miss"
)

// ObserveMutation records the outcome of one add/remove. sections is the
// line's size after the call and is ignored on failure.
func ObserveMutation(op string, sections int, err error) {
	sectionMutations.WithLabelValues(op, Outcome(err)).Inc()
	if err == nil {
		lineSections.Observe(float64(sections))
	}
}

// ObserveCacheLookup records a line view cache hit or miss.
func ObserveCacheLookup(hit bool) {
	if hit {
		lineCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	lineCacheLookups.WithLabelValues("miss").Inc()
}

// Outcome maps a mutation error to a low-cardinality label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, section.ErrDuplicateConnection):
		return "duplicate_connection"
	case errors.Is(err, section.ErrDisconnectedSegment):
		return "disconnected"
	case errors.Is(err, section.ErrInvalidDistance):
		return "invalid_distance"
	case errors.Is(err, section.ErrMinimumChainSize):
		return "minimum_size"
	case errors.Is(err, section.ErrStationNotFound):
		return "station_not_found"
	case errors.Is(err, section.ErrSameStation):
		return "same_station"
	case errors.Is(err, section.ErrBrokenChain), errors.Is(err, section.ErrNoStartFound):
		return "broken_chain"
	default:
		return "error"
	}
}
