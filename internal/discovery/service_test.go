package discovery

import (
	"errors"
	"os"
	"testing"

	"trailhunt/internal/db"
	"trailhunt/internal/geo"
)

func getTestService(t *testing.T) (*Service, *db.DB) {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database tests")
	}
	database, err := db.Connect(dsn)
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	if err := database.Migrate(); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}
	t.Cleanup(func() {
		database.Exec("DELETE FROM discovery_events")
		database.Exec("DELETE FROM hunt_items")
		database.Exec("DELETE FROM hunts")
		database.Exec("DELETE FROM treasures")
		database.Exec("DELETE FROM pois")
		database.Exec("DELETE FROM users")
		database.Close()
	})
	return &Service{DB: database, DefaultRadiusM: 50}, database
}

func seedUser(t *testing.T, d *db.DB) string {
	t.Helper()
	id, err := d.CreateUser("Walker")
	if err != nil {
		t.Fatalf("CreateUser() error: %v", err)
	}
	return id
}

func seedPOI(t *testing.T, d *db.DB, qrToken string, points int) string {
	t.Helper()
	var id string
	err := d.QueryRow(`
		INSERT INTO pois (name, qr_token, points) VALUES ('Checkpoint', $1, $2) RETURNING id
	`, qrToken, points).Scan(&id)
	if err != nil {
		t.Fatalf("seeding poi: %v", err)
	}
	return id
}

func seedTreasure(t *testing.T, d *db.DB, lat, lon, radiusM float64, points int) string {
	t.Helper()
	var id string
	err := d.QueryRow(`
		INSERT INTO treasures (name, lat, lon, radius_m, points)
		VALUES ('Cache', $1, $2, $3, $4) RETURNING id
	`, lat, lon, radiusM, points).Scan(&id)
	if err != nil {
		t.Fatalf("seeding treasure: %v", err)
	}
	return id
}

func TestClaimPOI_TwiceAwardsOnce(t *testing.T) {
	svc, database := getTestService(t)

	userID := seedUser(t, database)
	seedPOI(t, database, "qr-claim-twice", 15)

	first, err := svc.ClaimPOI(userID, "qr-claim-twice")
	if err != nil {
		t.Fatalf("ClaimPOI() error: %v", err)
	}
	if !first.IsNewEvent || first.PointsAwarded != 15 {
		t.Errorf("first claim = {new:%v, points:%d}, want {new:true, points:15}",
			first.IsNewEvent, first.PointsAwarded)
	}

	second, err := svc.ClaimPOI(userID, "qr-claim-twice")
	if err != nil {
		t.Fatalf("second ClaimPOI() error: %v", err)
	}
	if second.IsNewEvent || second.PointsAwarded != 0 {
		t.Errorf("second claim = {new:%v, points:%d}, want {new:false, points:0}",
			second.IsNewEvent, second.PointsAwarded)
	}

	u, err := database.GetUser(userID)
	if err != nil {
		t.Fatalf("GetUser() error: %v", err)
	}
	if u.Points != 15 {
		t.Errorf("balance = %d, want 15 (single award)", u.Points)
	}
}

func TestClaimPOI_UnknownToken(t *testing.T) {
	svc, database := getTestService(t)
	userID := seedUser(t, database)

	_, err := svc.ClaimPOI(userID, "no-such-token")
	if !errors.Is(err, ErrTargetNotFound) {
		t.Errorf("ClaimPOI() error = %v, want ErrTargetNotFound", err)
	}
}

func TestClaimTreasure_OutOfRange(t *testing.T) {
	svc, database := getTestService(t)

	userID := seedUser(t, database)
	treasureID := seedTreasure(t, database, 49.3394, -0.8566, 50, 30)

	// ~1.2km away from the cache.
	far := geo.Point{Lat: 49.35, Lon: -0.8566}
	_, err := svc.ClaimTreasure(userID, treasureID, far)
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("ClaimTreasure() error = %v, want ErrOutOfRange", err)
	}

	// A rejected claim leaves no trace: no event, no points.
	u, _ := database.GetUser(userID)
	if u.Points != 0 {
		t.Errorf("balance = %d, want 0 after rejected claim", u.Points)
	}
	events, _ := svc.History(userID)
	if len(events) != 0 {
		t.Errorf("len(events) = %d, want 0", len(events))
	}
}

func TestClaimTreasure_InRange(t *testing.T) {
	svc, database := getTestService(t)

	userID := seedUser(t, database)
	treasureID := seedTreasure(t, database, 49.3394, -0.8566, 50, 30)

	// ~22m from the cache.
	near := geo.Point{Lat: 49.3396, Lon: -0.8566}
	res, err := svc.ClaimTreasure(userID, treasureID, near)
	if err != nil {
		t.Fatalf("ClaimTreasure() error: %v", err)
	}
	if !res.IsNewEvent || res.PointsAwarded != 30 {
		t.Errorf("claim = {new:%v, points:%d}, want {new:true, points:30}",
			res.IsNewEvent, res.PointsAwarded)
	}

	// Repeat report from the same spot: repeatable, no double award.
	res, err = svc.ClaimTreasure(userID, treasureID, near)
	if err != nil {
		t.Fatalf("repeat ClaimTreasure() error: %v", err)
	}
	if res.IsNewEvent || res.PointsAwarded != 0 {
		t.Errorf("repeat claim = {new:%v, points:%d}, want {new:false, points:0}",
			res.IsNewEvent, res.PointsAwarded)
	}
}

func TestClaimTreasure_ZeroRadiusFallsBack(t *testing.T) {
	svc, database := getTestService(t)

	userID := seedUser(t, database)
	treasureID := seedTreasure(t, database, 49.3394, -0.8566, 0, 30)

	// ~22m away: inside the 50m service default, impossible with radius 0.
	near := geo.Point{Lat: 49.3396, Lon: -0.8566}
	res, err := svc.ClaimTreasure(userID, treasureID, near)
	if err != nil {
		t.Fatalf("ClaimTreasure() error: %v", err)
	}
	if !res.IsNewEvent {
		t.Error("claim rejected despite falling inside the default radius")
	}
}

func TestClaimHuntItem_ProgressAndCompletion(t *testing.T) {
	svc, database := getTestService(t)

	userID := seedUser(t, database)

	var huntID string
	if err := database.QueryRow(`INSERT INTO hunts (name) VALUES ('Bunker hunt') RETURNING id`).Scan(&huntID); err != nil {
		t.Fatalf("seeding hunt: %v", err)
	}
	tokens := []string{"hunt-qr-1", "hunt-qr-2"}
	for _, token := range tokens {
		if _, err := database.Exec(`
			INSERT INTO hunt_items (hunt_id, name, qr_token, points) VALUES ($1, 'Item', $2, 20)
		`, huntID, token); err != nil {
			t.Fatalf("seeding hunt item: %v", err)
		}
	}

	res, progress, err := svc.ClaimHuntItem(userID, tokens[0])
	if err != nil {
		t.Fatalf("ClaimHuntItem() error: %v", err)
	}
	if !res.IsNewEvent || res.PointsAwarded != 20 {
		t.Errorf("claim = {new:%v, points:%d}, want {new:true, points:20}",
			res.IsNewEvent, res.PointsAwarded)
	}
	if progress.Found != 1 || progress.Total != 2 || progress.Complete {
		t.Errorf("progress = %+v, want {1, 2, false}", progress)
	}

	_, progress, err = svc.ClaimHuntItem(userID, tokens[1])
	if err != nil {
		t.Fatalf("ClaimHuntItem() error: %v", err)
	}
	if progress.Found != 2 || progress.Total != 2 || !progress.Complete {
		t.Errorf("progress = %+v, want {2, 2, true}", progress)
	}

	// Re-scanning a found item does not change progress.
	res, progress, err = svc.ClaimHuntItem(userID, tokens[0])
	if err != nil {
		t.Fatalf("repeat ClaimHuntItem() error: %v", err)
	}
	if res.IsNewEvent {
		t.Error("repeat scan reported a new event")
	}
	if progress.Found != 2 || !progress.Complete {
		t.Errorf("progress after repeat = %+v, want {2, 2, true}", progress)
	}
}

func TestHuntProgress_EmptyHuntNeverComplete(t *testing.T) {
	svc, database := getTestService(t)

	userID := seedUser(t, database)
	var huntID string
	if err := database.QueryRow(`INSERT INTO hunts (name) VALUES ('Empty hunt') RETURNING id`).Scan(&huntID); err != nil {
		t.Fatalf("seeding hunt: %v", err)
	}

	progress, err := svc.HuntProgress(userID, huntID)
	if err != nil {
		t.Fatalf("HuntProgress() error: %v", err)
	}
	if progress.Found != 0 || progress.Total != 0 {
		t.Errorf("progress = %+v, want {0, 0, false}", progress)
	}
	if progress.Complete {
		t.Error("an empty hunt must never report complete")
	}
}
