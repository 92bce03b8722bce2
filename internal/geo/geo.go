package geo

import "math"

const earthRadiusM = 6371000.0

type Point struct {
	Lat float64
	Lon float64
}

// TrackPoint is a recorded position along a track. Elevation is nil when the
// source carried no elevation data for the point.
type TrackPoint struct {
	Lat       float64
	Lon       float64
	Elevation *float64
}

// Aggregate holds single-pass statistics over an ordered track.
type Aggregate struct {
	DistanceKm     float64 // rounded to 2dp
	ElevationGainM int     // sum of positive deltas only
	PointCount     int
}

// DistanceMeters returns the great-circle distance between two coordinates
// using the haversine formula. Inputs are assumed to be valid lat/lon.
func DistanceMeters(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180.0
	lon1 := a.Lon * math.Pi / 180.0
	lat2 := b.Lat * math.Pi / 180.0
	lon2 := b.Lon * math.Pi / 180.0

	dLat := lat2 - lat1
	dLon := lon2 - lon1

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusM * c
}

// WithinRadius reports whether reported is inside the circular geofence
// around target. The exact haversine distance is the sole authority here.
func WithinRadius(target, reported Point, radiusM float64) bool {
	return DistanceMeters(target, reported) <= radiusM
}

type Box struct {
	MinLat float64
	MinLon float64
	MaxLat float64
	MaxLon float64
}

// BoundingBox returns an approximate lat/lon rectangle around center.
// 1 degree of latitude is taken as 111 km and longitude is scaled by
// cos(latitude). Cheap pre-filter only: never use it to accept or reject a
// claim, always confirm with DistanceMeters.
func BoundingBox(center Point, radiusKm float64) Box {
	latDelta := radiusKm / 111.0
	lonDelta := latDelta
	if cosLat := math.Cos(center.Lat * math.Pi / 180.0); cosLat > 0 {
		lonDelta = latDelta / cosLat
	}
	return Box{
		MinLat: center.Lat - latDelta,
		MinLon: center.Lon - lonDelta,
		MaxLat: center.Lat + latDelta,
		MaxLon: center.Lon + lonDelta,
	}
}

// Contains reports whether p falls inside the box.
func (b Box) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

// TrackAggregate walks consecutive point pairs once, summing haversine
// distances and positive elevation deltas. An elevation delta only counts
// when both points carry elevation. Zero or one points yield zero aggregates.
func TrackAggregate(points []TrackPoint) Aggregate {
	agg := Aggregate{PointCount: len(points)}
	if len(points) < 2 {
		return agg
	}

	var distanceM, gainM float64
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1], points[i]
		distanceM += DistanceMeters(
			Point{Lat: prev.Lat, Lon: prev.Lon},
			Point{Lat: cur.Lat, Lon: cur.Lon},
		)
		if prev.Elevation != nil && cur.Elevation != nil {
			if delta := *cur.Elevation - *prev.Elevation; delta > 0 {
				gainM += delta
			}
		}
	}

	agg.DistanceKm = math.Round(distanceM/1000.0*100) / 100
	agg.ElevationGainM = int(math.Round(gainM))
	return agg
}
