package section

import "fmt"

// StationID identifies a station. The chain never looks inside it.
type StationID int64

// Segment is a directed, distance-weighted edge between two stations.
type Segment struct {
	Up       StationID
	Down     StationID
	Distance int
}

// Validate checks the segment on its own, independent of any chain.
func (s Segment) Validate() error {
	if s.Up == s.Down {
		return fmt.Errorf("%w: %d -> %d", ErrSameStation, s.Up, s.Down)
	}
	if s.Distance <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidDistance, s.Distance)
	}
	return nil
}

func (s Segment) String() string {
	return fmt.Sprintf("%d->%d(%d)", s.Up, s.Down, s.Distance)
}

// Change is the set of segments a successful mutation removed and added.
// Persistence layers write exactly this diff.
type Change struct {
	Removed []Segment
	Added   []Segment
}

// Empty reports whether the change touches nothing.
func (c Change) Empty() bool {
	return len(c.Removed) == 0 && len(c.Added) == 0
}
