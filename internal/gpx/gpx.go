package gpx

import (
	"encoding/xml"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"trailhunt/internal/geo"
)

var (
	// ErrInvalidFormat means the upload is not a GPX document at all.
	ErrInvalidFormat = errors.New("invalid gpx format")
	// ErrEmptyTrack means the document parsed but carried no usable points.
	ErrEmptyTrack = errors.New("gpx file contains no points")
)

// Point is a single position extracted from a GPX file, in file order.
type Point struct {
	Lat       float64
	Lon       float64
	Elevation *float64
	Time      *time.Time
	Name      string
}

// Track is an ordered, immutable sequence of points from one upload.
type Track struct {
	Points []Point
}

// Summary is the derived view persisted alongside a trail.
type Summary struct {
	Start           geo.Point
	End             geo.Point
	TotalDistanceKm float64
	ElevationGainM  int
	PointCount      int
}

type gpxPoint struct {
	Lat  float64  `xml:"lat,attr"`
	Lon  float64  `xml:"lon,attr"`
	Ele  *float64 `xml:"ele"`
	Time string   `xml:"time"`
	Name string   `xml:"name"`
}

type gpxFile struct {
	XMLName xml.Name `xml:"gpx"`
	Tracks  []struct {
		Segments []struct {
			Points []gpxPoint `xml:"trkpt"`
		} `xml:"trkseg"`
	} `xml:"trk"`
	Waypoints []gpxPoint `xml:"wpt"`
	Routes    []struct {
		Points []gpxPoint `xml:"rtept"`
	} `xml:"rte"`
}

// Parse reads raw GPX bytes into an ordered track. Point sources are tried
// in priority order: track-segment points across all tracks, then named
// waypoints, then route points. The first non-empty source wins; sources are
// never merged.
func Parse(data []byte) (*Track, error) {
	var file gpxFile
	if err := xml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	var raw []gpxPoint
	for _, trk := range file.Tracks {
		for _, seg := range trk.Segments {
			raw = append(raw, seg.Points...)
		}
	}
	if len(raw) == 0 {
		raw = append(raw, file.Waypoints...)
	}
	if len(raw) == 0 {
		for _, rte := range file.Routes {
			raw = append(raw, rte.Points...)
		}
	}
	if len(raw) == 0 {
		return nil, ErrEmptyTrack
	}

	points := make([]Point, 0, len(raw))
	for _, rp := range raw {
		p := Point{
			Lat:       rp.Lat,
			Lon:       rp.Lon,
			Elevation: rp.Ele,
			Name:      rp.Name,
		}
		if rp.Time != "" {
			if ts, err := time.Parse(time.RFC3339, rp.Time); err == nil {
				p.Time = &ts
			}
		}
		points = append(points, p)
	}

	return &Track{Points: points}, nil
}

// Summary derives the track statistics. Recomputed on every ingestion, never
// patched in place.
func (t *Track) Summary() Summary {
	agg := geo.TrackAggregate(t.trackPoints())
	s := Summary{
		TotalDistanceKm: agg.DistanceKm,
		ElevationGainM:  agg.ElevationGainM,
		PointCount:      agg.PointCount,
	}
	if len(t.Points) > 0 {
		first := t.Points[0]
		last := t.Points[len(t.Points)-1]
		s.Start = geo.Point{Lat: first.Lat, Lon: first.Lon}
		s.End = geo.Point{Lat: last.Lat, Lon: last.Lon}
	}
	return s
}

func (t *Track) trackPoints() []geo.TrackPoint {
	pts := make([]geo.TrackPoint, 0, len(t.Points))
	for _, p := range t.Points {
		pts = append(pts, geo.TrackPoint{Lat: p.Lat, Lon: p.Lon, Elevation: p.Elevation})
	}
	return pts
}

type lineString struct {
	Type        string       `json:"type"`
	Coordinates [][2]float64 `json:"coordinates"`
}

// LineStringJSON serializes the track as a GeoJSON LineString, [lon,lat]
// pairs in point order, for storage and map display.
func (t *Track) LineStringJSON() (string, error) {
	coords := make([][2]float64, 0, len(t.Points))
	for _, p := range t.Points {
		coords = append(coords, [2]float64{p.Lon, p.Lat})
	}
	data, err := json.Marshal(lineString{Type: "LineString", Coordinates: coords})
	if err != nil {
		return "", fmt.Errorf("serializing line geometry: %w", err)
	}
	return string(data), nil
}
