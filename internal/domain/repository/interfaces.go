package repository

import (
	"context"
	"errors"
	"time"

	"SignalBridge/internal/domain/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// CommandStore persists commands. Every mutation that changes status is
// a conditional update predicated on the row's current status, so the
// state machine holds under concurrent polls, reports and reaps.
type CommandStore interface {
	// InsertCommand inserts a pending command idempotently. A duplicate
	// id does not create a second row; the existing row is returned
	// with created=false.
	InsertCommand(ctx context.Context, cmd *models.Command) (stored *models.Command, created bool, err error)

	GetCommand(ctx context.Context, id string) (*models.Command, error)

	// LeasePending claims up to limit pending commands for one
	// connection, oldest first, transitioning each to processing with
	// leased_at=now. A command lost to a concurrent poll is skipped,
	// never returned twice.
	LeasePending(ctx context.Context, connectionID string, limit int, now time.Time) ([]*models.Command, error)

	// FinalizeCommand moves a command from processing to a terminal
	// state, stamping executed_at and the result fields. Returns the
	// number of rows actually transitioned (0 when the command was no
	// longer processing).
	FinalizeCommand(ctx context.Context, id string, res *models.CommandResult, executedAt time.Time) (int64, error)

	// ReapStale resets commands stuck in processing since before cutoff
	// back to pending. Returns the number of rows reclaimed.
	ReapStale(ctx context.Context, connectionID string, cutoff time.Time) (int64, error)

	// ReapStaleAll sweeps every connection.
	ReapStaleAll(ctx context.Context, cutoff time.Time) (int64, error)
}

// ConnectionStore tracks execution clients and their running counters.
type ConnectionStore interface {
	GetConnection(ctx context.Context, id string) (*models.Connection, error)
	ListConnections(ctx context.Context) ([]*models.Connection, error)

	// EnsureConnection registers the connection if missing. Idempotent.
	EnsureConnection(ctx context.Context, id string) error

	// TouchConnection marks the connection live at the given time.
	TouchConnection(ctx context.Context, id string, at time.Time) error

	// RecordResult folds one finalized command into the counters:
	// total_sent+1, successful or failed +1, latency into the running
	// average. Counts never decrease.
	RecordResult(ctx context.Context, id string, success bool, latencyMS int64) error
}

// DeliveryLogStore is the append-only ingestion audit trail.
type DeliveryLogStore interface {
	AppendDeliveryLog(ctx context.Context, log *models.DeliveryLog) error
	ListDeliveryLogs(ctx context.Context, limit, offset int) ([]*models.DeliveryLog, error)
}

// Store is the single source of truth for the bridge.
type Store interface {
	CommandStore
	ConnectionStore
	DeliveryLogStore
	Health(ctx context.Context) error
	Close() error
}

// Command lifecycle event names.
const (
	EventCommandCreated   = "command.created"
	EventCommandCompleted = "command.completed"
	EventCommandFailed    = "command.failed"
)

// EventPublisher emits command lifecycle events for external consumers
// (panels, dashboards). Best-effort; failures are logged, never block
// the primary operation.
type EventPublisher interface {
	PublishCommandEvent(ctx context.Context, event string, cmd *models.Command) error
	Close() error
}

// AuditSink mirrors delivery logs into long-term analytics storage.
type AuditSink interface {
	MirrorDeliveryLog(ctx context.Context, log *models.DeliveryLog) error
	Close() error
}

// SignalSource feeds signal payloads from an upstream relay into the
// ingestion gateway.
type SignalSource interface {
	Run(ctx context.Context) error
	IsConnected() bool
	Close() error
}

// Metrics records bridge observability counters.
type Metrics interface {
	RecordSignal(target, action, result string)
	RecordLease(connectionID string, count int)
	RecordReap(count int)
	RecordResult(outcome string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
