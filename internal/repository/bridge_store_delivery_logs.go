package repository

import (
	"context"
	"fmt"
	"time"

	"SignalBridge/internal/domain/models"
)

func (s *BridgeStore) AppendDeliveryLog(ctx context.Context, log *models.DeliveryLog) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO delivery_logs (request_id, target, payload, status, error, execution_time_ms, retry_count, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`,
		log.RequestID,
		log.Target,
		log.Payload,
		log.Status,
		log.Error,
		log.ExecutionTimeMS,
		log.RetryCount,
		toMillis(log.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("append delivery log: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		log.ID = id
	}
	return nil
}

func (s *BridgeStore) ListDeliveryLogs(ctx context.Context, limit, offset int) ([]*models.DeliveryLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, request_id, target, payload, status, error, execution_time_ms, retry_count, created_at
FROM delivery_logs ORDER BY id DESC LIMIT ? OFFSET ?
`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list delivery logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.DeliveryLog
	for rows.Next() {
		var (
			log       models.DeliveryLog
			createdAt int64
		)
		if err := rows.Scan(
			&log.ID,
			&log.RequestID,
			&log.Target,
			&log.Payload,
			&log.Status,
			&log.Error,
			&log.ExecutionTimeMS,
			&log.RetryCount,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan delivery log: %w", err)
		}
		log.CreatedAt = fromMillis(createdAt)
		logs = append(logs, &log)
	}
	return logs, rows.Err()
}
