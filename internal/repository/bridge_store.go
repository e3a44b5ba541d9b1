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

// BridgeStore implements repository.Store on SQLite. Every status
// mutation is a conditional update predicated on the current status;
// there is no read-then-write anywhere in this file.
type BridgeStore struct {
	db *sql.DB
}

// NewBridgeStore creates the SQLite-backed store.
func NewBridgeStore(db *sql.DB) *BridgeStore {
	return &BridgeStore{db: db}
}

const commandColumns = `id, connection_id, command_type, symbol, volume, price,
	stop_loss, take_profit, status, created_at, leased_at, executed_at,
	ticket, executed_price, executed_volume, error_code, error_message`

func (s *BridgeStore) InsertCommand(ctx context.Context, cmd *models.Command) (*models.Command, bool, error) {
	if cmd.ID == "" {
		return nil, false, fmt.Errorf("command id is required")
	}
	if cmd.CreatedAt.IsZero() {
		cmd.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
INSERT INTO commands (id, connection_id, command_type, symbol, volume, price, stop_loss, take_profit, status, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO NOTHING
`,
		cmd.ID,
		cmd.ConnectionID,
		cmd.Type,
		cmd.Symbol,
		cmd.Volume,
		cmd.Price,
		cmd.StopLoss,
		cmd.TakeProfit,
		models.StatusPending,
		toMillis(cmd.CreatedAt),
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert command: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("insert command rows affected: %w", err)
	}

	stored, err := s.GetCommand(ctx, cmd.ID)
	if err != nil {
		return nil, false, err
	}
	return stored, affected > 0, nil
}

func (s *BridgeStore) GetCommand(ctx context.Context, id string) (*models.Command, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+commandColumns+` FROM commands WHERE id = ?`, id)
	cmd, err := scanCommand(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get command: %w", err)
	}
	return cmd, nil
}

func (s *BridgeStore) LeasePending(ctx context.Context, connectionID string, limit int, now time.Time) ([]*models.Command, error) {
	if connectionID == "" {
		return nil, fmt.Errorf("connection id is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	now = now.UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin lease: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	rows, err := tx.QueryContext(ctx, `
SELECT id FROM commands
WHERE connection_id = ? AND status = ?
ORDER BY created_at ASC, id ASC
LIMIT ?
`, connectionID, models.StatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("select lease candidates: %w", err)
	}
	ids := make([]string, 0, limit)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan lease candidate: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate lease candidates: %w", err)
	}
	_ = rows.Close()

	leased := make([]*models.Command, 0, len(ids))
	for _, id := range ids {
		// The status guard is the linchpin: a row already claimed by a
		// concurrent poll affects zero rows here and is skipped.
		res, err := tx.ExecContext(ctx, `
UPDATE commands SET status = ?, leased_at = ?
WHERE id = ? AND status = ?
`, models.StatusProcessing, toMillis(now), id, models.StatusPending)
		if err != nil {
			return nil, fmt.Errorf("lease command %s: %w", id, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("lease rows affected %s: %w", id, err)
		}
		if affected == 0 {
			continue
		}

		row := tx.QueryRowContext(ctx,
			`SELECT `+commandColumns+` FROM commands WHERE id = ?`, id)
		cmd, err := scanCommand(row.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan leased command %s: %w", id, err)
		}
		leased = append(leased, cmd)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit lease: %w", err)
	}
	return leased, nil
}

func (s *BridgeStore) FinalizeCommand(ctx context.Context, id string, result *models.CommandResult, executedAt time.Time) (int64, error) {
	status := models.StatusCompleted
	if !result.Success {
		status = models.StatusFailed
	}

	res, err := s.db.ExecContext(ctx, `
UPDATE commands
SET status = ?, executed_at = ?, ticket = ?, executed_price = ?,
	executed_volume = ?, error_code = ?, error_message = ?
WHERE id = ? AND status = ?
`,
		status,
		toMillis(executedAt.UTC()),
		result.Ticket,
		result.Price,
		result.Volume,
		result.Code,
		result.Message,
		id,
		models.StatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("finalize command: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("finalize rows affected: %w", err)
	}
	return affected, nil
}

func (s *BridgeStore) ReapStale(ctx context.Context, connectionID string, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
UPDATE commands SET status = ?, leased_at = NULL
WHERE connection_id = ? AND status = ? AND leased_at IS NOT NULL AND leased_at < ?
`, models.StatusPending, connectionID, models.StatusProcessing, toMillis(cutoff.UTC()))
	if err != nil {
		return 0, fmt.Errorf("reap stale: %w", err)
	}
	return res.RowsAffected()
}

func (s *BridgeStore) ReapStaleAll(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
UPDATE commands SET status = ?, leased_at = NULL
WHERE status = ? AND leased_at IS NOT NULL AND leased_at < ?
`, models.StatusPending, models.StatusProcessing, toMillis(cutoff.UTC()))
	if err != nil {
		return 0, fmt.Errorf("reap stale all: %w", err)
	}
	return res.RowsAffected()
}

func (s *BridgeStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *BridgeStore) Close() error {
	return nil // pool owned by pkg/sqlite client
}

func scanCommand(scan func(dest ...any) error) (*models.Command, error) {
	var (
		cmd        models.Command
		createdAt  int64
		leasedAt   sql.NullInt64
		executedAt sql.NullInt64
	)
	err := scan(
		&cmd.ID,
		&cmd.ConnectionID,
		&cmd.Type,
		&cmd.Symbol,
		&cmd.Volume,
		&cmd.Price,
		&cmd.StopLoss,
		&cmd.TakeProfit,
		&cmd.Status,
		&createdAt,
		&leasedAt,
		&executedAt,
		&cmd.Ticket,
		&cmd.ExecutedPrice,
		&cmd.ExecutedVolume,
		&cmd.ErrorCode,
		&cmd.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}
	cmd.CreatedAt = fromMillis(createdAt)
	if leasedAt.Valid {
		t := fromMillis(leasedAt.Int64)
		cmd.LeasedAt = &t
	}
	if executedAt.Valid {
		t := fromMillis(executedAt.Int64)
		cmd.ExecutedAt = &t
	}
	return &cmd, nil
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
