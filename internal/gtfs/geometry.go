package gtfs

import "math"

const earthRadiusMeters = 6371000

// Haversine returns the great-circle distance between two points in metres
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)

	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// sectionDistance rounds the stop-to-stop distance to whole metres.
// Sections need a positive distance, so co-located stops count as 1m.
func sectionDistance(up, down Stop) int {
	d := int(math.Round(Haversine(up.StopLat, up.StopLon, down.StopLat, down.StopLon)))
	if d < 1 {
		return 1
	}
	return d
}
