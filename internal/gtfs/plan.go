package gtfs

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
)

var (
	// ErrRouteNotFound is returned when no route has the requested short name
	ErrRouteNotFound = errors.New("route not found")

	// ErrNoTrips is returned when a route has no usable trip
	ErrNoTrips = errors.New("route has no trips with at least two stops")
)

// BuildLinePlan lays out a route as consecutive stop pairs. The route's
// direction 0 trip with the most stops is taken as representative; when
// the route has no direction 0 trips any direction is used.
func BuildLinePlan(data *Data, routeShortName string) (*LinePlan, error) {
	var route *Route
	for i := range data.Routes {
		if data.Routes[i].RouteShortName == routeShortName {
			route = &data.Routes[i]
			break
		}
	}
	if route == nil {
		return nil, fmt.Errorf("%w: %s", ErrRouteNotFound, routeShortName)
	}

	stopTimesByTrip := make(map[string][]StopTime)
	for _, st := range data.StopTimes {
		stopTimesByTrip[st.TripID] = append(stopTimesByTrip[st.TripID], st)
	}

	tripID := longestTrip(data.Trips, route.RouteID, stopTimesByTrip, 0)
	if tripID == "" {
		tripID = longestTrip(data.Trips, route.RouteID, stopTimesByTrip, -1)
	}
	if tripID == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoTrips, routeShortName)
	}

	stopTimes := stopTimesByTrip[tripID]
	sort.Slice(stopTimes, func(i, j int) bool {
		return stopTimes[i].StopSequence < stopTimes[j].StopSequence
	})

	stops := make(map[string]Stop, len(data.Stops))
	for _, s := range data.Stops {
		stops[s.StopID] = s
	}

	plan := &LinePlan{
		Name:     route.RouteShortName,
		Color:    routeColor(route.RouteColor),
		Sections: make([]PlannedSection, 0, len(stopTimes)-1),
	}
	for i := 1; i < len(stopTimes); i++ {
		up, ok := stops[stopTimes[i-1].StopID]
		if !ok {
			return nil, fmt.Errorf("trip %s references unknown stop %s", tripID, stopTimes[i-1].StopID)
		}
		down, ok := stops[stopTimes[i].StopID]
		if !ok {
			return nil, fmt.Errorf("trip %s references unknown stop %s", tripID, stopTimes[i].StopID)
		}
		if up.StopID == down.StopID {
			continue
		}
		plan.Sections = append(plan.Sections, PlannedSection{
			Up:       up,
			Down:     down,
			Distance: sectionDistance(up, down),
		})
	}

	if len(plan.Sections) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoTrips, routeShortName)
	}
	return plan, nil
}

// longestTrip returns the trip of the route with the most stop times in
// the given direction, or in any direction when direction is negative.
// Ties go to the lexically smallest trip ID.
func longestTrip(trips []Trip, routeID string, stopTimes map[string][]StopTime, direction int) string {
	best, bestLen := "", 1
	for _, t := range trips {
		if t.RouteID != routeID || (direction >= 0 && t.DirectionID != direction) {
			continue
		}
		n := len(stopTimes[t.TripID])
		if n > bestLen || (n == bestLen && n > 1 && t.TripID < best) {
			best, bestLen = t.TripID, n
		}
	}
	return best
}

// routeColor turns a GTFS hex color into the #RRGGBB form lines use
func routeColor(c string) string {
	if _, err := strconv.ParseUint(c, 16, 32); err == nil && len(c) == 6 {
		return "#" + c
	}
	return "#808080"
}
