package usecase

import (
	"context"
	"fmt"
	"time"

	"SignalBridge/internal/domain/models"
	drepo "SignalBridge/internal/domain/repository"
	applogger "SignalBridge/pkg/logger"
)

// LeaseQueue serves pending commands to polling clients. Each poll
// first reclaims stale leases for the connection, then claims a FIFO
// batch via conditional updates so a command lands in at most one poll
// response.
type LeaseQueue struct {
	store   drepo.Store
	metrics drepo.Metrics
	l       *applogger.Logger

	leaseTimeout time.Duration
	maxBatch     int
	deviation    int
}

// NewLeaseQueue creates the lease queue.
func NewLeaseQueue(store drepo.Store, metrics drepo.Metrics, l *applogger.Logger, leaseTimeout time.Duration, maxBatch, deviation int) *LeaseQueue {
	if leaseTimeout <= 0 {
		leaseTimeout = 30 * time.Second
	}
	if maxBatch <= 0 {
		maxBatch = 10
	}
	return &LeaseQueue{
		store:        store,
		metrics:      metrics,
		l:            l,
		leaseTimeout: leaseTimeout,
		maxBatch:     maxBatch,
		deviation:    deviation,
	}
}

// Poll reclaims stale leases, claims up to limit pending commands for
// the connection and returns them as execution instructions. A storage
// error aborts with no partial lease issuance from this call; already
// transitioned rows stay correctly leased and will be reaped if the
// caller never retries.
func (q *LeaseQueue) Poll(ctx context.Context, connectionID string, limit int) ([]models.Instruction, error) {
	if connectionID == "" {
		return nil, fmt.Errorf("connection id is required")
	}
	if limit <= 0 || limit > q.maxBatch {
		limit = q.maxBatch
	}
	start := time.Now()
	now := start.UTC()

	// First contact auto-registers the connection.
	if err := q.store.EnsureConnection(ctx, connectionID); err != nil {
		return nil, fmt.Errorf("ensure connection: %w", err)
	}

	reaped, err := q.store.ReapStale(ctx, connectionID, now.Add(-q.leaseTimeout))
	if err != nil {
		return nil, fmt.Errorf("reap stale leases: %w", err)
	}
	if reaped > 0 {
		q.metrics.RecordReap(int(reaped))
		q.l.Warn("stale leases reclaimed",
			applogger.String("connection_id", connectionID),
			applogger.Int64("count", reaped))
	}

	cmds, err := q.store.LeasePending(ctx, connectionID, limit, now)
	if err != nil {
		q.metrics.RecordError("lease")
		return nil, fmt.Errorf("lease pending: %w", err)
	}

	if err := q.store.TouchConnection(ctx, connectionID, now); err != nil {
		// Liveness is advisory; the lease already happened.
		q.l.Warn("connection touch failed",
			applogger.String("connection_id", connectionID),
			applogger.Error(err))
	}

	instructions := make([]models.Instruction, 0, len(cmds))
	for _, cmd := range cmds {
		instructions = append(instructions, cmd.Instruction(q.deviation))
	}
	if len(cmds) > 0 {
		q.metrics.RecordLease(connectionID, len(cmds))
	}
	q.metrics.RecordLatency("poll", time.Since(start).Seconds())
	return instructions, nil
}

// RunReaper periodically sweeps all connections for stale leases so
// stuck commands surface even when nobody polls. Blocks until ctx is
// cancelled.
func (q *LeaseQueue) RunReaper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = q.leaseTimeout
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	q.l.Info("lease reaper started",
		applogger.Duration("interval", interval),
		applogger.Duration("lease_timeout", q.leaseTimeout))

	for {
		select {
		case <-ctx.Done():
			q.l.Info("lease reaper stopped")
			return
		case <-ticker.C:
			n, err := q.store.ReapStaleAll(ctx, time.Now().UTC().Add(-q.leaseTimeout))
			if err != nil {
				q.metrics.RecordError("reap_sweep")
				q.l.Error("reaper sweep failed", applogger.Error(err))
				continue
			}
			if n > 0 {
				q.metrics.RecordReap(int(n))
				q.l.Warn("reaper sweep reclaimed leases", applogger.Int64("count", n))
			}
		}
	}
}
