package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"SignalBridge/internal/domain/models"
	"SignalBridge/internal/domain/repository"
)

func (s *BridgeStore) GetConnection(ctx context.Context, id string) (*models.Connection, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, is_connected, last_poll_at, total_sent, successful, failed, avg_latency_ms
FROM connections WHERE id = ?
`, id)
	conn, err := scanConnection(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get connection: %w", err)
	}
	return conn, nil
}

func (s *BridgeStore) ListConnections(ctx context.Context) ([]*models.Connection, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, is_connected, last_poll_at, total_sent, successful, failed, avg_latency_ms
FROM connections ORDER BY id ASC
`)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	defer rows.Close()

	var conns []*models.Connection
	for rows.Next() {
		conn, err := scanConnection(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		conns = append(conns, conn)
	}
	return conns, rows.Err()
}

func (s *BridgeStore) EnsureConnection(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("connection id is required")
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO connections (id) VALUES (?)
ON CONFLICT(id) DO NOTHING
`, id)
	if err != nil {
		return fmt.Errorf("ensure connection: %w", err)
	}
	return nil
}

func (s *BridgeStore) TouchConnection(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE connections SET is_connected = 1, last_poll_at = ? WHERE id = ?
`, toMillis(at), id)
	if err != nil {
		return fmt.Errorf("touch connection: %w", err)
	}
	return nil
}

func (s *BridgeStore) RecordResult(ctx context.Context, id string, success bool, latencyMS int64) error {
	okInc, failInc := 1, 0
	if !success {
		okInc, failInc = 0, 1
	}
	// All right-hand expressions read the pre-update row, so total_sent
	// in the average denominator is the old count.
	_, err := s.db.ExecContext(ctx, `
UPDATE connections
SET total_sent = total_sent + 1,
	successful = successful + ?,
	failed = failed + ?,
	avg_latency_ms = (avg_latency_ms * total_sent + ?) / (total_sent + 1)
WHERE id = ?
`, okInc, failInc, float64(latencyMS), id)
	if err != nil {
		return fmt.Errorf("record result: %w", err)
	}
	return nil
}

func scanConnection(scan func(dest ...any) error) (*models.Connection, error) {
	var (
		conn       models.Connection
		connected  int
		lastPollAt sql.NullInt64
	)
	err := scan(
		&conn.ID,
		&connected,
		&lastPollAt,
		&conn.TotalSent,
		&conn.Successful,
		&conn.Failed,
		&conn.AvgLatencyMS,
	)
	if err != nil {
		return nil, err
	}
	conn.IsConnected = connected != 0
	if lastPollAt.Valid {
		t := fromMillis(lastPollAt.Int64)
		conn.LastPollAt = &t
	}
	return &conn, nil
}
