package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"SignalBridge/internal/domain/models"
	drepo "SignalBridge/internal/domain/repository"
)

func leaseOne(t *testing.T, store drepo.Store, gw *IngestionGateway, q *LeaseQueue) string {
	t.Helper()
	ctx := context.Background()
	if err := store.EnsureConnection(ctx, "ea-1"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if _, err := gw.Ingest(ctx, "ea-1", "req-0", []byte(`{"symbol":"XAUUSD","action":"buy"}`)); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	instructions, err := q.Poll(ctx, "ea-1", 1)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(instructions) != 1 {
		t.Fatalf("expected 1 instruction, got %d", len(instructions))
	}
	return instructions[0].ID
}

func TestReportSuccess(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	gw := newTestGateway(t, store)
	q := NewLeaseQueue(store, nopMetrics{}, newTestLogger(t), 30*time.Second, 10, 0)
	id := leaseOne(t, store, gw, q)

	r := NewResultReporter(store, nil, nopMetrics{}, newTestLogger(t))
	err := r.Report(ctx, &models.ResultRequest{
		CommandID: id,
		Ticket:    98765,
		Price:     2401.2,
		Volume:    0.1,
		Code:      10009,
	})
	if err != nil {
		t.Fatalf("report: %v", err)
	}

	cmd, err := store.GetCommand(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if cmd.Status != models.StatusCompleted {
		t.Fatalf("expected completed, got %q", cmd.Status)
	}
	if cmd.Ticket != 98765 || cmd.ExecutedPrice != 2401.2 {
		t.Fatalf("result not persisted: %+v", cmd)
	}

	conn, err := store.GetConnection(ctx, "ea-1")
	if err != nil {
		t.Fatalf("get connection: %v", err)
	}
	if conn.TotalSent != 1 || conn.Successful != 1 || conn.Failed != 0 {
		t.Fatalf("unexpected counters: %+v", conn)
	}
}

func TestReportFailureCode(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	gw := newTestGateway(t, store)
	q := NewLeaseQueue(store, nopMetrics{}, newTestLogger(t), 30*time.Second, 10, 0)
	id := leaseOne(t, store, gw, q)

	r := NewResultReporter(store, nil, nopMetrics{}, newTestLogger(t))
	err := r.Report(ctx, &models.ResultRequest{
		CommandID: id,
		Code:      10019, // not enough money
		Message:   "no money",
	})
	if err != nil {
		t.Fatalf("report: %v", err)
	}

	cmd, _ := store.GetCommand(ctx, id)
	if cmd.Status != models.StatusFailed || cmd.ErrorCode != 10019 || cmd.ErrorMessage != "no money" {
		t.Fatalf("failure not persisted: %+v", cmd)
	}

	conn, _ := store.GetConnection(ctx, "ea-1")
	if conn.TotalSent != 1 || conn.Failed != 1 {
		t.Fatalf("unexpected counters: %+v", conn)
	}
}

func TestReportUnknownCommand(t *testing.T) {
	store := newTestStore(t)
	r := NewResultReporter(store, nil, nopMetrics{}, newTestLogger(t))

	err := r.Report(context.Background(), &models.ResultRequest{CommandID: "ghost", Code: 0})
	if !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
}

func TestReportDuplicateDiscarded(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	gw := newTestGateway(t, store)
	q := NewLeaseQueue(store, nopMetrics{}, newTestLogger(t), 30*time.Second, 10, 0)
	id := leaseOne(t, store, gw, q)

	r := NewResultReporter(store, nil, nopMetrics{}, newTestLogger(t))
	req := &models.ResultRequest{CommandID: id, Ticket: 1, Code: 10009}
	if err := r.Report(ctx, req); err != nil {
		t.Fatalf("first report: %v", err)
	}
	// Duplicate is acknowledged without touching accounting.
	if err := r.Report(ctx, req); err != nil {
		t.Fatalf("duplicate report: %v", err)
	}

	conn, err := store.GetConnection(ctx, "ea-1")
	if err != nil {
		t.Fatalf("get connection: %v", err)
	}
	if conn.TotalSent != 1 || conn.Successful != 1 {
		t.Fatalf("duplicate report double-counted: %+v", conn)
	}
}

func TestReportAfterReapDiscarded(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	gw := newTestGateway(t, store)
	q := NewLeaseQueue(store, nopMetrics{}, newTestLogger(t), 30*time.Second, 10, 0)
	id := leaseOne(t, store, gw, q)

	// The reaper wins the race: the lease is reclaimed before the
	// result arrives.
	if _, err := store.ReapStale(ctx, "ea-1", time.Now().UTC().Add(time.Minute)); err != nil {
		t.Fatalf("reap: %v", err)
	}

	r := NewResultReporter(store, nil, nopMetrics{}, newTestLogger(t))
	if err := r.Report(ctx, &models.ResultRequest{CommandID: id, Code: 10009}); err != nil {
		t.Fatalf("late report must be acknowledged: %v", err)
	}

	cmd, _ := store.GetCommand(ctx, id)
	if cmd.Status != models.StatusPending {
		t.Fatalf("late report mutated a requeued command: %+v", cmd)
	}
	conn, _ := store.GetConnection(ctx, "ea-1")
	if conn.TotalSent != 0 {
		t.Fatalf("late report counted: %+v", conn)
	}
}
