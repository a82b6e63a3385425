package gtfs

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var feedFiles = map[string]string{
	"routes.txt": "route_id,route_short_name,route_long_name,route_type,route_color\n" +
		"R1,L1,Hospital de Bellvitge - Fondo,1,CE1126\n" +
		"R2,L2,Paral·lel - Badalona,1,zzzzzz\n",
	"stops.txt": "\ufeffstop_id,stop_name,stop_lat,stop_lon\n" +
		"S1,Espanya,41.3751,2.1490\n" +
		"S2,Rocafort,41.3794,2.1550\n" +
		"S3,Urgell,41.3834,2.1595\n" +
		"S4,Universitat,41.3859,2.1639\n",
	"trips.txt": "route_id,trip_id,direction_id\n" +
		"R1,T-short,0\n" +
		"R1,T-long,0\n" +
		"R1,T-back,1\n" +
		"R2,T-l2,1\n",
	"stop_times.txt": "trip_id,stop_id,stop_sequence\n" +
		"T-short,S1,1\n" +
		"T-short,S2,2\n" +
		"T-long,S3,3\n" +
		"T-long,S1,1\n" +
		"T-long,S4,4\n" +
		"T-long,S2,2\n" +
		"T-back,S4,1\n" +
		"T-back,S3,2\n" +
		"T-back,S2,3\n" +
		"T-back,S1,4\n" +
		"T-back,S1,5\n" +
		"T-l2,S4,1\n" +
		"T-l2,S3,2\n",
}

func writeFeed(t *testing.T, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feed.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}

func TestParse(t *testing.T) {
	data, err := Parse(writeFeed(t, feedFiles))
	require.NoError(t, err)

	assert.Len(t, data.Routes, 2)
	assert.Len(t, data.Stops, 4)
	assert.Len(t, data.Trips, 4)
	assert.Len(t, data.StopTimes, 13)

	assert.Equal(t, "S1", data.Stops[0].StopID, "BOM must not hide the first header")
	assert.InDelta(t, 41.3751, data.Stops[0].StopLat, 1e-9)
	assert.Equal(t, "L1", data.Routes[0].RouteShortName)
}

func TestParseMissingFile(t *testing.T) {
	files := map[string]string{}
	for k, v := range feedFiles {
		if k != "stop_times.txt" {
			files[k] = v
		}
	}

	_, err := Parse(writeFeed(t, files))
	assert.ErrorIs(t, err, ErrMissingFile)
}

func TestParseNotAZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.zip")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))

	_, err := Parse(path)
	assert.Error(t, err)
}

func TestBuildLinePlan(t *testing.T) {
	data, err := Parse(writeFeed(t, feedFiles))
	require.NoError(t, err)

	plan, err := BuildLinePlan(data, "L1")
	require.NoError(t, err)

	assert.Equal(t, "L1", plan.Name)
	assert.Equal(t, "#CE1126", plan.Color)
	require.Len(t, plan.Sections, 3)

	var order []string
	for _, s := range plan.Sections {
		order = append(order, s.Up.StopID+">"+s.Down.StopID)
		assert.Greater(t, s.Distance, 300)
		assert.Less(t, s.Distance, 1000)
	}
	assert.Equal(t, []string{"S1>S2", "S2>S3", "S3>S4"}, order)
}

func TestBuildLinePlanFallsBackToOtherDirection(t *testing.T) {
	data, err := Parse(writeFeed(t, feedFiles))
	require.NoError(t, err)

	plan, err := BuildLinePlan(data, "L2")
	require.NoError(t, err)
	assert.Equal(t, "#808080", plan.Color)
	require.Len(t, plan.Sections, 1)
	assert.Equal(t, "S4", plan.Sections[0].Up.StopID)
}

func TestBuildLinePlanErrors(t *testing.T) {
	data, err := Parse(writeFeed(t, feedFiles))
	require.NoError(t, err)

	_, err = BuildLinePlan(data, "L9")
	assert.ErrorIs(t, err, ErrRouteNotFound)

	data.StopTimes = nil
	_, err = BuildLinePlan(data, "L1")
	assert.ErrorIs(t, err, ErrNoTrips)
}

func TestHaversine(t *testing.T) {
	// One degree of latitude is about 111.2 km
	assert.InDelta(t, 111195, Haversine(41, 2, 42, 2), 50)
	assert.Zero(t, Haversine(41.38, 2.17, 41.38, 2.17))
}

func TestSectionDistanceIsPositive(t *testing.T) {
	s := Stop{StopLat: 41.38, StopLon: 2.17}
	assert.Equal(t, 1, sectionDistance(s, s))
}
