package gpx

import (
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

const sampleTrack = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test">
  <wpt lat="1.0" lon="1.0"><name>ignored when trkpts exist</name></wpt>
  <trk>
    <name>Omaha Beach loop</name>
    <trkseg>
      <trkpt lat="49.3394" lon="-0.8566"><ele>50</ele><time>2024-05-01T09:00:00Z</time></trkpt>
      <trkpt lat="49.3500" lon="-0.8600"><ele>75</ele><time>2024-05-01T09:12:00Z</time></trkpt>
    </trkseg>
    <trkseg>
      <trkpt lat="49.3714" lon="-0.8494"><ele>60</ele></trkpt>
    </trkseg>
  </trk>
</gpx>`

const sampleWaypoints = `<?xml version="1.0"?>
<gpx version="1.1">
  <wpt lat="49.3394" lon="-0.8566"><name>Start marker</name><ele>12</ele></wpt>
  <wpt lat="49.3714" lon="-0.8494"><name>End marker</name></wpt>
</gpx>`

const sampleRoute = `<?xml version="1.0"?>
<gpx version="1.1">
  <rte>
    <rtept lat="49.3394" lon="-0.8566"><name>A</name></rtept>
    <rtept lat="49.3500" lon="-0.8600"><name>B</name></rtept>
    <rtept lat="49.3714" lon="-0.8494"><name>C</name></rtept>
  </rte>
</gpx>`

func TestParse_TrackPoints(t *testing.T) {
	track, err := Parse([]byte(sampleTrack))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	// Both segments collected, the waypoint ignored.
	if len(track.Points) != 3 {
		t.Fatalf("len(Points) = %d, want 3", len(track.Points))
	}
	first := track.Points[0]
	if first.Lat != 49.3394 || first.Lon != -0.8566 {
		t.Errorf("first point = (%v, %v), want (49.3394, -0.8566)", first.Lat, first.Lon)
	}
	if first.Elevation == nil || *first.Elevation != 50 {
		t.Errorf("first elevation = %v, want 50", first.Elevation)
	}
	if first.Time == nil {
		t.Error("first point should carry a timestamp")
	}
	if track.Points[2].Time != nil {
		t.Error("third point has no <time> and should carry none")
	}
}

func TestParse_WaypointFallback(t *testing.T) {
	track, err := Parse([]byte(sampleWaypoints))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(track.Points) != 2 {
		t.Fatalf("len(Points) = %d, want 2", len(track.Points))
	}
	if track.Points[0].Name != "Start marker" {
		t.Errorf("name = %q, want %q", track.Points[0].Name, "Start marker")
	}
	if track.Points[1].Elevation != nil {
		t.Error("second waypoint has no <ele> and should carry none")
	}
}

func TestParse_RouteFallback(t *testing.T) {
	track, err := Parse([]byte(sampleRoute))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(track.Points) != 3 {
		t.Fatalf("len(Points) = %d, want 3", len(track.Points))
	}
	if track.Points[1].Name != "B" {
		t.Errorf("second route point name = %q, want %q", track.Points[1].Name, "B")
	}
}

func TestParse_InvalidFormat(t *testing.T) {
	cases := map[string]string{
		"not xml":    "this is not xml at all",
		"empty":      "",
		"wrong root": `<?xml version="1.0"?><kml><Placemark/></kml>`,
	}
	for name, input := range cases {
		_, err := Parse([]byte(input))
		if !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("%s: Parse() error = %v, want ErrInvalidFormat", name, err)
		}
	}
}

func TestParse_EmptyTrack(t *testing.T) {
	_, err := Parse([]byte(`<?xml version="1.0"?><gpx version="1.1"></gpx>`))
	if !errors.Is(err, ErrEmptyTrack) {
		t.Errorf("Parse() error = %v, want ErrEmptyTrack", err)
	}
}

func TestSummary(t *testing.T) {
	track, err := Parse([]byte(sampleTrack))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	s := track.Summary()
	if s.Start.Lat != 49.3394 || s.Start.Lon != -0.8566 {
		t.Errorf("Start = %+v, want (49.3394, -0.8566)", s.Start)
	}
	if s.End.Lat != 49.3714 || s.End.Lon != -0.8494 {
		t.Errorf("End = %+v, want (49.3714, -0.8494)", s.End)
	}
	if s.ElevationGainM != 25 {
		t.Errorf("ElevationGainM = %d, want 25 (only the rising segment)", s.ElevationGainM)
	}
	if s.TotalDistanceKm <= 0 {
		t.Errorf("TotalDistanceKm = %v, want > 0", s.TotalDistanceKm)
	}
	if s.PointCount != 3 {
		t.Errorf("PointCount = %d, want 3", s.PointCount)
	}
}

func TestSummary_Deterministic(t *testing.T) {
	first, err := Parse([]byte(sampleTrack))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	second, err := Parse([]byte(sampleTrack))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if first.Summary() != second.Summary() {
		t.Errorf("re-ingesting the same file produced different summaries:\n%+v\n%+v",
			first.Summary(), second.Summary())
	}
}

func TestLineStringJSON(t *testing.T) {
	track, err := Parse([]byte(sampleTrack))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	raw, err := track.LineStringJSON()
	if err != nil {
		t.Fatalf("LineStringJSON() error: %v", err)
	}

	var ls struct {
		Type        string       `json:"type"`
		Coordinates [][2]float64 `json:"coordinates"`
	}
	if err := json.Unmarshal([]byte(raw), &ls); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ls.Type != "LineString" {
		t.Errorf("type = %q, want %q", ls.Type, "LineString")
	}
	if len(ls.Coordinates) != 3 {
		t.Fatalf("len(coordinates) = %d, want 3", len(ls.Coordinates))
	}
	// GeoJSON order is [lon, lat].
	if ls.Coordinates[0][0] != -0.8566 || ls.Coordinates[0][1] != 49.3394 {
		t.Errorf("first coordinate = %v, want [-0.8566, 49.3394]", ls.Coordinates[0])
	}
	if !strings.Contains(raw, `"type":"LineString"`) {
		t.Errorf("serialized geometry missing type marker: %s", raw)
	}
}
