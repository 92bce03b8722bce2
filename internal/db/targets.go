package db

import "fmt"

// Target kinds sharing the discovery ledger.
const (
	KindPOI      = "poi"
	KindHuntItem = "hunt_item"
	KindTreasure = "treasure"
)

// Target is the common projection over everything claimable: checkpoint
// POIs, hunt items and legacy treasures. Geofenced kinds carry coordinates
// and a radius; QR kinds carry a token.
type Target struct {
	ID      string
	Kind    string
	Name    string
	Points  int
	HuntID  string  // hunt items only
	Lat     float64 // treasures only
	Lon     float64
	RadiusM float64
}

func (d *DB) GetPOIByQR(token string) (*Target, error) {
	t := Target{Kind: KindPOI}
	err := d.conn.QueryRow(`
		SELECT id, name, points FROM pois WHERE qr_token = $1
	`, token).Scan(&t.ID, &t.Name, &t.Points)
	if err != nil {
		return nil, fmt.Errorf("getting poi by qr: %w", err)
	}
	return &t, nil
}

func (d *DB) GetHuntItemByQR(token string) (*Target, error) {
	t := Target{Kind: KindHuntItem}
	err := d.conn.QueryRow(`
		SELECT id, hunt_id, name, points FROM hunt_items WHERE qr_token = $1
	`, token).Scan(&t.ID, &t.HuntID, &t.Name, &t.Points)
	if err != nil {
		return nil, fmt.Errorf("getting hunt item by qr: %w", err)
	}
	return &t, nil
}

func (d *DB) GetTreasure(id string) (*Target, error) {
	t := Target{Kind: KindTreasure}
	err := d.conn.QueryRow(`
		SELECT id, name, points, lat, lon, radius_m FROM treasures WHERE id = $1
	`, id).Scan(&t.ID, &t.Name, &t.Points, &t.Lat, &t.Lon, &t.RadiusM)
	if err != nil {
		return nil, fmt.Errorf("getting treasure: %w", err)
	}
	return &t, nil
}
