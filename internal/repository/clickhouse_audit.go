package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"SignalBridge/internal/domain/models"
	"SignalBridge/internal/domain/repository"
)

// ClickHouseAuditSink mirrors delivery logs into ClickHouse for
// long-term analytics. Writes happen off the request path (queued) and
// are best-effort; SQLite remains the source of truth.
type ClickHouseAuditSink struct {
	db    *sql.DB
	table string
}

// NewClickHouseAuditSink creates the audit mirror.
func NewClickHouseAuditSink(db *sql.DB, table string) repository.AuditSink {
	return &ClickHouseAuditSink{db: db, table: table}
}

func (s *ClickHouseAuditSink) MirrorDeliveryLog(ctx context.Context, log *models.DeliveryLog) error {
	q := fmt.Sprintf(
		"INSERT INTO %s (request_id, target, payload, status, error, execution_time_ms, retry_count, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		s.table,
	)
	created := log.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, q,
		log.RequestID,
		log.Target,
		log.Payload,
		log.Status,
		log.Error,
		log.ExecutionTimeMS,
		log.RetryCount,
		created,
	)
	return err
}

func (s *ClickHouseAuditSink) Close() error {
	return nil // pool owned by pkg/clickhouse client
}
