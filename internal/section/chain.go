// Package section keeps the sections of a single line as one simple path of
// stations and applies the split/merge rules for adding and removing them.
package section

import (
	"fmt"
	"math"
)

// Chain is the unordered set of sections of one line. Sections are indexed
// by both of their stations, so every station has at most one outgoing and
// one incoming section.
//
// A Chain is not safe for concurrent use; callers serialize access per line.
type Chain struct {
	byUp   map[StationID]Segment
	byDown map[StationID]Segment
}

// New returns an empty chain.
func New() *Chain {
	return &Chain{
		byUp:   make(map[StationID]Segment),
		byDown: make(map[StationID]Segment),
	}
}

// Restore rebuilds a chain from previously stored sections and verifies
// that they still form a single simple path.
func Restore(segments ...Segment) (*Chain, error) {
	c := New()
	for _, s := range segments {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, ok := c.byUp[s.Up]; ok {
			return nil, fmt.Errorf("%w: station %d has two outgoing sections", ErrBrokenChain, s.Up)
		}
		if _, ok := c.byDown[s.Down]; ok {
			return nil, fmt.Errorf("%w: station %d has two incoming sections", ErrBrokenChain, s.Down)
		}
		c.byUp[s.Up] = s
		c.byDown[s.Down] = s
	}

	if c.Len() == 0 {
		return c, nil
	}

	stations, err := c.OrderedStations()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBrokenChain, err)
	}
	if len(stations) != c.Len()+1 {
		return nil, fmt.Errorf("%w: path from %d reaches %d of %d sections",
			ErrBrokenChain, stations[0], len(stations)-1, c.Len())
	}
	return c, nil
}

// Len returns the number of sections.
func (c *Chain) Len() int {
	return len(c.byUp)
}

// Contains reports whether the station is on the line.
func (c *Chain) Contains(id StationID) bool {
	if _, ok := c.byUp[id]; ok {
		return true
	}
	_, ok := c.byDown[id]
	return ok
}

// Insert adds a section. When the candidate shares its up or down station
// with an existing section, that section is split around it.
func (c *Chain) Insert(candidate Segment) (Change, error) {
	if err := candidate.Validate(); err != nil {
		return Change{}, err
	}

	change, err := c.planInsert(candidate)
	if err != nil {
		return Change{}, err
	}

	c.apply(change)
	return change, nil
}

func (c *Chain) planInsert(candidate Segment) (Change, error) {
	if c.Len() == 0 {
		return Change{Added: []Segment{candidate}}, nil
	}

	upKnown := c.Contains(candidate.Up)
	downKnown := c.Contains(candidate.Down)
	if upKnown && downKnown {
		return Change{}, fmt.Errorf("%w: %d and %d", ErrDuplicateConnection, candidate.Up, candidate.Down)
	}
	if !upKnown && !downKnown {
		return Change{}, fmt.Errorf("%w: neither %d nor %d", ErrDisconnectedSegment, candidate.Up, candidate.Down)
	}

	if target, ok := c.byUp[candidate.Up]; ok {
		return split(target, candidate, Segment{
			Up:       candidate.Down,
			Down:     target.Down,
			Distance: target.Distance - candidate.Distance,
		})
	}

	if target, ok := c.byDown[candidate.Down]; ok {
		return split(target, candidate, Segment{
			Up:       target.Up,
			Down:     candidate.Up,
			Distance: target.Distance - candidate.Distance,
		})
	}

	// Candidate hangs off the start or the end of the line.
	return Change{Added: []Segment{candidate}}, nil
}

func split(target, candidate, remainder Segment) (Change, error) {
	if remainder.Distance <= 0 {
		return Change{}, fmt.Errorf("%w: %d does not fit inside %s",
			ErrInvalidDistance, candidate.Distance, target)
	}
	return Change{
		Removed: []Segment{target},
		Added:   []Segment{remainder, candidate},
	}, nil
}

// RemoveStation takes a station off the line. An interior station's two
// sections are merged into one spanning both distances.
func (c *Chain) RemoveStation(id StationID) (Change, error) {
	if c.Len() == 1 {
		return Change{}, fmt.Errorf("%w: cannot remove %d", ErrMinimumChainSize, id)
	}

	out, hasOut := c.byUp[id]
	in, hasIn := c.byDown[id]

	var change Change
	switch {
	case !hasOut && !hasIn:
		return Change{}, fmt.Errorf("%w: %d", ErrStationNotFound, id)
	case hasOut && hasIn:
		if in.Distance > math.MaxInt-out.Distance {
			return Change{}, fmt.Errorf("%w: merging %s and %s overflows",
				ErrInvalidDistance, in, out)
		}
		change = Change{
			Removed: []Segment{in, out},
			Added: []Segment{{
				Up:       in.Up,
				Down:     out.Down,
				Distance: in.Distance + out.Distance,
			}},
		}
	case hasOut:
		change = Change{Removed: []Segment{out}}
	default:
		change = Change{Removed: []Segment{in}}
	}

	c.apply(change)
	return change, nil
}

// apply commits a change that has already been validated. It cannot fail,
// so a mutation is either fully visible or not at all.
func (c *Chain) apply(change Change) {
	for _, s := range change.Removed {
		delete(c.byUp, s.Up)
		delete(c.byDown, s.Down)
	}
	for _, s := range change.Added {
		c.byUp[s.Up] = s
		c.byDown[s.Down] = s
	}
}

// OrderedStations walks the line from its start station to its end.
// An empty chain has no stations.
func (c *Chain) OrderedStations() ([]StationID, error) {
	if c.Len() == 0 {
		return nil, nil
	}

	start, err := c.start()
	if err != nil {
		return nil, err
	}

	stations := make([]StationID, 0, c.Len()+1)
	stations = append(stations, start)

	// A simple path visits each section once; anything longer is a cycle.
	limit := c.Len() + 1
	for current := start; ; {
		next, ok := c.byUp[current]
		if !ok {
			break
		}
		if len(stations) == limit {
			return nil, fmt.Errorf("%w: walk from %d does not terminate", ErrBrokenChain, start)
		}
		stations = append(stations, next.Down)
		current = next.Down
	}

	return stations, nil
}

// Segments returns the sections in line order.
func (c *Chain) Segments() ([]Segment, error) {
	stations, err := c.OrderedStations()
	if err != nil {
		return nil, err
	}

	segments := make([]Segment, 0, c.Len())
	for _, id := range stations {
		if s, ok := c.byUp[id]; ok {
			segments = append(segments, s)
		}
	}
	return segments, nil
}

// TotalDistance sums every section of the line.
func (c *Chain) TotalDistance() int {
	total := 0
	for _, s := range c.byUp {
		total += s.Distance
	}
	return total
}

func (c *Chain) start() (StationID, error) {
	var (
		start StationID
		found int
	)
	for up := range c.byUp {
		if _, hasIncoming := c.byDown[up]; hasIncoming {
			continue
		}
		start = up
		found++
	}

	switch {
	case found == 0:
		return 0, ErrNoStartFound
	case found > 1:
		return 0, fmt.Errorf("%w: %d start stations", ErrBrokenChain, found)
	}
	return start, nil
}
