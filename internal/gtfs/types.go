package gtfs

// Data holds the parts of a GTFS feed needed to lay out a line
type Data struct {
	Routes    []Route
	Stops     []Stop
	Trips     []Trip
	StopTimes []StopTime
}

// Route is a row of routes.txt
type Route struct {
	RouteID        string
	RouteShortName string
	RouteLongName  string
	RouteType      int
	RouteColor     string
}

// Stop is a row of stops.txt
type Stop struct {
	StopID        string
	StopName      string
	StopLat       float64
	StopLon       float64
	LocationType  int
	ParentStation string
}

// Trip is a row of trips.txt
type Trip struct {
	RouteID     string
	TripID      string
	DirectionID int
}

// StopTime is a row of stop_times.txt
type StopTime struct {
	TripID       string
	StopID       string
	StopSequence int
}

// PlannedSection is one consecutive pair of stops on a planned line
type PlannedSection struct {
	Up       Stop
	Down     Stop
	Distance int // metres
}

// LinePlan is a route flattened into an ordered list of sections
type LinePlan struct {
	Name     string
	Color    string
	Sections []PlannedSection
}
