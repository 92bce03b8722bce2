package db

import (
	"database/sql"
	"fmt"
	"time"
)

type TrailRecord struct {
	ID             string
	Name           string
	TrackFile      sql.NullString
	StartLat       sql.NullFloat64
	StartLon       sql.NullFloat64
	EndLat         sql.NullFloat64
	EndLon         sql.NullFloat64
	DistanceKm     sql.NullFloat64
	ElevationGainM sql.NullInt64
	PointCount     sql.NullInt64
	GeoJSON        sql.NullString
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TrackStats is the derived summary written at upload time.
type TrackStats struct {
	StartLat       float64
	StartLon       float64
	EndLat         float64
	EndLon         float64
	DistanceKm     float64
	ElevationGainM int
	PointCount     int
}

func (d *DB) CreateTrail(name string) (string, error) {
	var id string
	err := d.conn.QueryRow(`
		INSERT INTO trails (name) VALUES ($1) RETURNING id
	`, name).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("creating trail: %w", err)
	}
	return id, nil
}

func (d *DB) GetTrail(id string) (*TrailRecord, error) {
	var t TrailRecord
	err := d.conn.QueryRow(`
		SELECT id, name, track_file, start_lat, start_lon, end_lat, end_lon,
		       distance_km, elevation_gain_m, point_count, geojson, created_at, updated_at
		FROM trails WHERE id = $1
	`, id).Scan(&t.ID, &t.Name, &t.TrackFile, &t.StartLat, &t.StartLon, &t.EndLat, &t.EndLon,
		&t.DistanceKm, &t.ElevationGainM, &t.PointCount, &t.GeoJSON, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("getting trail: %w", err)
	}
	return &t, nil
}

// UpdateTrailTrack overwrites the trail's derived geometry. A re-upload
// replaces the previous summary wholesale; the old track file is orphaned,
// not patched.
func (d *DB) UpdateTrailTrack(id, trackFile string, stats TrackStats, geojson string) error {
	res, err := d.conn.Exec(`
		UPDATE trails
		SET track_file = $1, start_lat = $2, start_lon = $3, end_lat = $4, end_lon = $5,
		    distance_km = $6, elevation_gain_m = $7, point_count = $8, geojson = $9, updated_at = now()
		WHERE id = $10
	`, trackFile, stats.StartLat, stats.StartLon, stats.EndLat, stats.EndLon,
		stats.DistanceKm, stats.ElevationGainM, stats.PointCount, geojson, id)
	if err != nil {
		return fmt.Errorf("updating trail track: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("updating trail track: trail %s not found", id)
	}
	return nil
}
