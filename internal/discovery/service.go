package discovery

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"trailhunt/internal/db"
	"trailhunt/internal/geo"
	"trailhunt/internal/metrics"
)

var (
	// ErrTargetNotFound means the claim named a target that does not exist.
	ErrTargetNotFound = errors.New("target not found")
	// ErrOutOfRange is a rejected geofenced claim, not a server fault.
	ErrOutOfRange = errors.New("reported position outside target radius")
)

// Service is the discovery ledger front: it resolves claims, enforces the
// at-most-once policy per (user, target) and feeds the point ledger.
type Service struct {
	DB *db.DB
	// DefaultRadiusM gates legacy treasures whose stored radius is zero.
	DefaultRadiusM float64
}

// ClaimResult reports the outcome of one claim. Duplicate claims are a
// success with IsNewEvent false and zero points, never an error.
type ClaimResult struct {
	IsNewEvent    bool
	PointsAwarded int
	Target        db.Target
}

// Progress is the derived hunt-completion view; never stored.
type Progress struct {
	Found    int  `json:"total_items_found"`
	Total    int  `json:"total_items_in_hunt"`
	Complete bool `json:"hunt_complete"`
}

// ClaimPOI claims a checkpoint by its QR token. Identity-only: scanning the
// code is the proof of presence, no coordinate check.
func (s *Service) ClaimPOI(userID, qrToken string) (*ClaimResult, error) {
	target, err := s.DB.GetPOIByQR(qrToken)
	if err != nil {
		return nil, resolveErr(err)
	}
	return s.claim(userID, *target)
}

// ClaimHuntItem claims a treasure-hunt item by QR token and returns the
// hunt progress alongside the claim outcome.
func (s *Service) ClaimHuntItem(userID, qrToken string) (*ClaimResult, *Progress, error) {
	target, err := s.DB.GetHuntItemByQR(qrToken)
	if err != nil {
		return nil, nil, resolveErr(err)
	}
	res, err := s.claim(userID, *target)
	if err != nil {
		return nil, nil, err
	}
	progress, err := s.HuntProgress(userID, target.HuntID)
	if err != nil {
		return nil, nil, err
	}
	return res, progress, nil
}

// ClaimTreasure claims a legacy single-object treasure by id, gated on the
// reported position falling inside the stored geofence.
func (s *Service) ClaimTreasure(userID, treasureID string, reported geo.Point) (*ClaimResult, error) {
	target, err := s.DB.GetTreasure(treasureID)
	if err != nil {
		return nil, resolveErr(err)
	}

	radius := target.RadiusM
	if radius <= 0 {
		radius = s.DefaultRadiusM
	}
	if !geo.WithinRadius(geo.Point{Lat: target.Lat, Lon: target.Lon}, reported, radius) {
		metrics.ClaimsTotal.WithLabelValues(target.Kind, "out_of_range").Inc()
		return nil, ErrOutOfRange
	}

	return s.claim(userID, *target)
}

func (s *Service) claim(userID string, target db.Target) (*ClaimResult, error) {
	// Fast path: a repeat scan skips the write entirely. The uniqueness
	// constraint inside RecordDiscovery still decides under races.
	found, err := s.DB.HasDiscovery(userID, target.ID)
	if err != nil {
		return nil, fmt.Errorf("claiming %s %s: %w", target.Kind, target.ID, err)
	}
	if found {
		metrics.ClaimsTotal.WithLabelValues(target.Kind, "duplicate").Inc()
		return &ClaimResult{Target: target}, nil
	}

	inserted, err := s.DB.RecordDiscovery(db.DiscoveryEvent{
		UserID:        userID,
		TargetID:      target.ID,
		TargetKind:    target.Kind,
		PointsAwarded: target.Points,
	})
	if err != nil {
		return nil, fmt.Errorf("claiming %s %s: %w", target.Kind, target.ID, err)
	}
	if !inserted {
		// Lost the race to a concurrent identical claim.
		metrics.ClaimsTotal.WithLabelValues(target.Kind, "duplicate").Inc()
		return &ClaimResult{Target: target}, nil
	}

	log.Printf("[Discovery] User %s discovered %s %q (+%d points)\n", userID, target.Kind, target.Name, target.Points)
	metrics.ClaimsTotal.WithLabelValues(target.Kind, "new").Inc()
	metrics.PointsAwardedTotal.Add(float64(target.Points))

	return &ClaimResult{IsNewEvent: true, PointsAwarded: target.Points, Target: target}, nil
}

// HuntProgress counts the user's discovered items against the hunt's item
// set. An empty hunt is never complete.
func (s *Service) HuntProgress(userID, huntID string) (*Progress, error) {
	found, total, err := s.DB.HuntProgressCounts(userID, huntID)
	if err != nil {
		return nil, fmt.Errorf("hunt progress for %s: %w", huntID, err)
	}
	return &Progress{
		Found:    found,
		Total:    total,
		Complete: total > 0 && found == total,
	}, nil
}

// History returns the user's discovery events, newest first.
func (s *Service) History(userID string) ([]db.DiscoveryEvent, error) {
	return s.DB.ListDiscoveries(userID)
}

func resolveErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrTargetNotFound
	}
	return err
}
