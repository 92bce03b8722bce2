package db

import (
	"fmt"
	"time"
)

type UserRecord struct {
	ID        string
	Name      string
	Points    int
	CreatedAt time.Time
}

func (d *DB) CreateUser(name string) (string, error) {
	var id string
	err := d.conn.QueryRow(`
		INSERT INTO users (name) VALUES ($1) RETURNING id
	`, name).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("creating user: %w", err)
	}
	return id, nil
}

func (d *DB) GetUser(id string) (*UserRecord, error) {
	var u UserRecord
	err := d.conn.QueryRow(`
		SELECT id, name, points, created_at FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Name, &u.Points, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return &u, nil
}

// IncrementPoints applies a relative increment at the storage layer.
// Never read-modify-write: concurrent awards to the same user must not
// lose updates.
func (d *DB) IncrementPoints(userID string, delta int) error {
	res, err := d.conn.Exec(`
		UPDATE users SET points = points + $1 WHERE id = $2
	`, delta, userID)
	if err != nil {
		return fmt.Errorf("incrementing points: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("incrementing points: user %s not found", userID)
	}
	return nil
}
