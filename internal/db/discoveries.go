package db

import (
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

type DiscoveryEvent struct {
	ID            string
	UserID        string
	TargetID      string
	TargetKind    string
	PointsAwarded int
	OccurredAt    time.Time
}

const pqUniqueViolation = "23505"

// HasDiscovery reports whether the user already holds an event for the
// target. Fast path only; RecordDiscovery is the authority under races.
func (d *DB) HasDiscovery(userID, targetID string) (bool, error) {
	var exists bool
	err := d.conn.QueryRow(`
		SELECT EXISTS (SELECT 1 FROM discovery_events WHERE user_id = $1 AND target_id = $2)
	`, userID, targetID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking discovery: %w", err)
	}
	return exists, nil
}

// RecordDiscovery inserts the event and applies the point award in one
// transaction. Returns false when the (user, target) pair already holds an
// event: the insert hits the uniqueness constraint (or ON CONFLICT affects
// zero rows) and no points move. A crash between the two writes rolls both
// back, so the event ledger and the balance can never diverge.
func (d *DB) RecordDiscovery(ev DiscoveryEvent) (bool, error) {
	tx, err := d.conn.Begin()
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO discovery_events (user_id, target_id, target_kind, points_awarded)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, target_id) DO NOTHING
	`, ev.UserID, ev.TargetID, ev.TargetKind, ev.PointsAwarded)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return false, nil
		}
		return false, fmt.Errorf("recording discovery: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("recording discovery: %w", err)
	}
	if n == 0 {
		// Already claimed, possibly by a concurrent request.
		return false, nil
	}

	if _, err := tx.Exec(`
		UPDATE users SET points = points + $1 WHERE id = $2
	`, ev.PointsAwarded, ev.UserID); err != nil {
		return false, fmt.Errorf("awarding points: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing discovery: %w", err)
	}
	return true, nil
}

func (d *DB) ListDiscoveries(userID string) ([]DiscoveryEvent, error) {
	rows, err := d.conn.Query(`
		SELECT id, user_id, target_id, target_kind, points_awarded, occurred_at
		FROM discovery_events
		WHERE user_id = $1
		ORDER BY occurred_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing discoveries: %w", err)
	}
	defer rows.Close()

	var events []DiscoveryEvent
	for rows.Next() {
		var ev DiscoveryEvent
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.TargetID, &ev.TargetKind, &ev.PointsAwarded, &ev.OccurredAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// HuntProgressCounts returns how many items of the hunt the user has
// discovered and how many the hunt holds in total.
func (d *DB) HuntProgressCounts(userID, huntID string) (found, total int, err error) {
	err = d.conn.QueryRow(`
		SELECT
			COUNT(*) FILTER (WHERE de.id IS NOT NULL) AS found,
			COUNT(*) AS total
		FROM hunt_items hi
		LEFT JOIN discovery_events de ON de.target_id = hi.id AND de.user_id = $1
		WHERE hi.hunt_id = $2
	`, userID, huntID).Scan(&found, &total)
	if err != nil {
		return 0, 0, fmt.Errorf("counting hunt progress: %w", err)
	}
	return found, total, nil
}
