package store

import (
	"context"
	"fmt"
	"time"
)

// Session is one row of connection history. DisconnectedAt and
// DurationMinutes are nil while the session is open.
type Session struct {
	ID              int64      `json:"id"`
	CommonName      string     `json:"common_name"`
	ConnectedAt     time.Time  `json:"connected_at"`
	DisconnectedAt  *time.Time `json:"disconnected_at"`
	DurationMinutes *int64     `json:"duration_minutes"`
	BytesReceived   float64    `json:"bytes_received"`
	BytesSent       float64    `json:"bytes_sent"`
	LastUpdated     time.Time  `json:"last_updated"`
}

// CreateOpenSession inserts a new open row for an identity. The partial
// unique index on open rows rejects a second open session for the same
// identity.
func (s *Store) CreateOpenSession(ctx context.Context, commonName string, connectedAt, lastUpdated time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO connections (common_name, connected_at, last_updated) VALUES ($1, $2, $3)`,
		commonName, connectedAt, lastUpdated)
	if err != nil {
		return fmt.Errorf("create open session for %s: %w", commonName, err)
	}
	return nil
}

// UpdateOpenTraffic writes the latest traffic counters to the identity's
// open row. Closed rows are never touched.
func (s *Store) UpdateOpenTraffic(ctx context.Context, commonName string, bytesReceived, bytesSent float64, lastUpdated time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE connections
		 SET bytes_received = $1, bytes_sent = $2, last_updated = $3
		 WHERE common_name = $4 AND disconnected_at IS NULL`,
		bytesReceived, bytesSent, lastUpdated, commonName)
	if err != nil {
		return fmt.Errorf("update traffic for %s: %w", commonName, err)
	}
	return nil
}

// CloseSession terminates the identity's open row. A closed row is never
// reopened; a later reconnect starts a new row.
func (s *Store) CloseSession(ctx context.Context, commonName string, disconnectedAt time.Time, durationMinutes int64, bytesReceived, bytesSent float64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE connections
		 SET disconnected_at = $1, duration_minutes = $2, bytes_received = $3, bytes_sent = $4, last_updated = $1
		 WHERE common_name = $5 AND disconnected_at IS NULL`,
		disconnectedAt, durationMinutes, bytesReceived, bytesSent, commonName)
	if err != nil {
		return fmt.Errorf("close session for %s: %w", commonName, err)
	}
	return nil
}

// ListSessions returns the full connection history, newest first.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, common_name, connected_at, disconnected_at, duration_minutes,
		        bytes_received, bytes_sent, last_updated
		 FROM connections
		 ORDER BY connected_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	return scanSessions(rows)
}

// OpenSessions returns only the rows with no disconnect time.
func (s *Store) OpenSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, common_name, connected_at, disconnected_at, duration_minutes,
		        bytes_received, bytes_sent, last_updated
		 FROM connections
		 WHERE disconnected_at IS NULL`)
	if err != nil {
		return nil, fmt.Errorf("list open sessions: %w", err)
	}
	defer rows.Close()

	return scanSessions(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanSessions(rows rowScanner) ([]Session, error) {
	var sessions []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.CommonName, &sess.ConnectedAt,
			&sess.DisconnectedAt, &sess.DurationMinutes,
			&sess.BytesReceived, &sess.BytesSent, &sess.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}
	return sessions, nil
}
