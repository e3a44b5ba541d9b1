package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"SignalBridge/internal/domain/models"
	"SignalBridge/internal/domain/repository"
	"SignalBridge/pkg/sqlite"
)

func newTestStore(t *testing.T) *BridgeStore {
	t.Helper()
	client, err := sqlite.NewClient(
		sqlite.WithPath(filepath.Join(t.TempDir(), "bridge.db")),
		sqlite.WithBusyTimeout(5*time.Second),
	)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if err := client.InitSchema(context.Background(), Schema()); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return NewBridgeStore(client.DB())
}

func pendingCommand(id, conn string, createdAt time.Time) *models.Command {
	return &models.Command{
		ID:           id,
		ConnectionID: conn,
		Type:         models.CommandBuy,
		Symbol:       "XAUUSD",
		Volume:       0.1,
		Price:        2400.5,
		CreatedAt:    createdAt,
	}
}

func TestInsertCommandIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cmd := pendingCommand("req-1", "ea-1", time.Now().UTC())
	stored, created, err := store.InsertCommand(ctx, cmd)
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if !created {
		t.Fatalf("expected created on first insert")
	}
	if stored.Status != models.StatusPending {
		t.Fatalf("unexpected status %q", stored.Status)
	}

	dup := pendingCommand("req-1", "ea-1", time.Now().UTC())
	dup.Symbol = "EURUSD" // must not overwrite the stored row
	stored, created, err = store.InsertCommand(ctx, dup)
	if err != nil {
		t.Fatalf("duplicate insert: %v", err)
	}
	if created {
		t.Fatalf("expected created=false on duplicate")
	}
	if stored.Symbol != "XAUUSD" {
		t.Fatalf("duplicate insert overwrote row: %q", stored.Symbol)
	}
}

func TestGetCommandNotFound(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.GetCommand(context.Background(), "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLeasePendingFIFO(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Minute)

	for i := 0; i < 3; i++ {
		cmd := pendingCommand(fmt.Sprintf("cmd-%d", i), "ea-1", base.Add(time.Duration(i)*time.Second))
		if _, _, err := store.InsertCommand(ctx, cmd); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	leased, err := store.LeasePending(ctx, "ea-1", 2, time.Now().UTC())
	if err != nil {
		t.Fatalf("lease: %v", err)
	}
	if len(leased) != 2 {
		t.Fatalf("expected 2 leased, got %d", len(leased))
	}
	if leased[0].ID != "cmd-0" || leased[1].ID != "cmd-1" {
		t.Fatalf("unexpected lease order: %s, %s", leased[0].ID, leased[1].ID)
	}
	for _, cmd := range leased {
		if cmd.Status != models.StatusProcessing {
			t.Fatalf("leased command %s status %q", cmd.ID, cmd.Status)
		}
		if cmd.LeasedAt == nil {
			t.Fatalf("leased command %s missing leased_at", cmd.ID)
		}
	}

	// The remaining command comes out on the next poll, then the queue
	// is empty.
	leased, err = store.LeasePending(ctx, "ea-1", 10, time.Now().UTC())
	if err != nil {
		t.Fatalf("second lease: %v", err)
	}
	if len(leased) != 1 || leased[0].ID != "cmd-2" {
		t.Fatalf("expected cmd-2, got %v", leased)
	}
	leased, err = store.LeasePending(ctx, "ea-1", 10, time.Now().UTC())
	if err != nil {
		t.Fatalf("third lease: %v", err)
	}
	if len(leased) != 0 {
		t.Fatalf("expected empty queue, got %d", len(leased))
	}
}

func TestLeasePendingSingleWinner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, _, err := store.InsertCommand(ctx, pendingCommand("solo", "ea-1", time.Now().UTC())); err != nil {
		t.Fatalf("insert: %v", err)
	}

	const pollers = 8
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for i := 0; i < pollers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			leased, err := store.LeasePending(ctx, "ea-1", 5, time.Now().UTC())
			if err != nil {
				t.Errorf("concurrent lease: %v", err)
				return
			}
			mu.Lock()
			total += len(leased)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if total != 1 {
		t.Fatalf("command leased %d times, want exactly once", total)
	}
}

func TestFinalizeCommandGuard(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	result := &models.CommandResult{Success: true, Ticket: 12345, Price: 2401.0, Volume: 0.1, Code: 10009}

	if _, _, err := store.InsertCommand(ctx, pendingCommand("cmd-1", "ea-1", time.Now().UTC())); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// Pending commands cannot be finalized.
	affected, err := store.FinalizeCommand(ctx, "cmd-1", result, time.Now().UTC())
	if err != nil {
		t.Fatalf("finalize pending: %v", err)
	}
	if affected != 0 {
		t.Fatalf("finalize of pending command affected %d rows", affected)
	}

	if _, err := store.LeasePending(ctx, "ea-1", 1, time.Now().UTC()); err != nil {
		t.Fatalf("lease: %v", err)
	}
	affected, err = store.FinalizeCommand(ctx, "cmd-1", result, time.Now().UTC())
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected 1 row finalized, got %d", affected)
	}

	cmd, err := store.GetCommand(ctx, "cmd-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if cmd.Status != models.StatusCompleted {
		t.Fatalf("unexpected status %q", cmd.Status)
	}
	if cmd.Ticket != 12345 || cmd.ExecutedAt == nil {
		t.Fatalf("result fields not persisted: %+v", cmd)
	}

	// Terminal commands stay terminal; a duplicate report is a no-op.
	affected, err = store.FinalizeCommand(ctx, "cmd-1", &models.CommandResult{Success: false, Code: 10013}, time.Now().UTC())
	if err != nil {
		t.Fatalf("duplicate finalize: %v", err)
	}
	if affected != 0 {
		t.Fatalf("duplicate finalize affected %d rows", affected)
	}
	cmd, _ = store.GetCommand(ctx, "cmd-1")
	if cmd.Status != models.StatusCompleted || cmd.ErrorCode != 0 {
		t.Fatalf("duplicate finalize mutated row: %+v", cmd)
	}
}

func TestReapStaleRequeues(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	leaseTime := time.Now().UTC().Add(-time.Minute)

	if _, _, err := store.InsertCommand(ctx, pendingCommand("cmd-1", "ea-1", leaseTime.Add(-time.Second))); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := store.LeasePending(ctx, "ea-1", 1, leaseTime); err != nil {
		t.Fatalf("lease: %v", err)
	}

	// Cutoff before the lease: nothing is stale yet.
	n, err := store.ReapStale(ctx, "ea-1", leaseTime.Add(-time.Second))
	if err != nil {
		t.Fatalf("reap: %v", err)
	}
	if n != 0 {
		t.Fatalf("reaped %d fresh leases", n)
	}

	n, err = store.ReapStale(ctx, "ea-1", leaseTime.Add(30*time.Second))
	if err != nil {
		t.Fatalf("reap: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 reaped, got %d", n)
	}

	cmd, err := store.GetCommand(ctx, "cmd-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if cmd.Status != models.StatusPending || cmd.LeasedAt != nil {
		t.Fatalf("reaped command not requeued: status=%q leased_at=%v", cmd.Status, cmd.LeasedAt)
	}

	// Requeued command can be leased again with a fresh timestamp.
	release := time.Now().UTC()
	leased, err := store.LeasePending(ctx, "ea-1", 1, release)
	if err != nil {
		t.Fatalf("re-lease: %v", err)
	}
	if len(leased) != 1 {
		t.Fatalf("expected re-lease, got %d", len(leased))
	}
	if leased[0].LeasedAt == nil || leased[0].LeasedAt.Before(release.Truncate(time.Millisecond)) {
		t.Fatalf("stale leased_at after re-lease: %v", leased[0].LeasedAt)
	}
}

func TestReapStaleAllSweepsConnections(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	past := time.Now().UTC().Add(-time.Minute)

	for _, conn := range []string{"ea-1", "ea-2"} {
		if _, _, err := store.InsertCommand(ctx, pendingCommand("cmd-"+conn, conn, past)); err != nil {
			t.Fatalf("insert: %v", err)
		}
		if _, err := store.LeasePending(ctx, conn, 1, past); err != nil {
			t.Fatalf("lease: %v", err)
		}
	}

	n, err := store.ReapStaleAll(ctx, past.Add(30*time.Second))
	if err != nil {
		t.Fatalf("reap all: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 reaped across connections, got %d", n)
	}
}

func TestRecordResultAccounting(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.EnsureConnection(ctx, "ea-1"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := store.RecordResult(ctx, "ea-1", true, 100); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := store.RecordResult(ctx, "ea-1", false, 200); err != nil {
		t.Fatalf("record: %v", err)
	}

	conn, err := store.GetConnection(ctx, "ea-1")
	if err != nil {
		t.Fatalf("get connection: %v", err)
	}
	if conn.TotalSent != 2 || conn.Successful != 1 || conn.Failed != 1 {
		t.Fatalf("unexpected counters: %+v", conn)
	}
	if conn.AvgLatencyMS != 150 {
		t.Fatalf("expected running average 150, got %v", conn.AvgLatencyMS)
	}
}

func TestEnsureConnectionKeepsCounters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.EnsureConnection(ctx, "ea-1"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := store.RecordResult(ctx, "ea-1", true, 50); err != nil {
		t.Fatalf("record: %v", err)
	}
	// Re-registration on a later poll must not reset accounting.
	if err := store.EnsureConnection(ctx, "ea-1"); err != nil {
		t.Fatalf("ensure again: %v", err)
	}

	conn, err := store.GetConnection(ctx, "ea-1")
	if err != nil {
		t.Fatalf("get connection: %v", err)
	}
	if conn.TotalSent != 1 || conn.Successful != 1 {
		t.Fatalf("counters reset by re-registration: %+v", conn)
	}
}

func TestTouchConnection(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := store.EnsureConnection(ctx, "ea-1"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := store.TouchConnection(ctx, "ea-1", now); err != nil {
		t.Fatalf("touch: %v", err)
	}

	conn, err := store.GetConnection(ctx, "ea-1")
	if err != nil {
		t.Fatalf("get connection: %v", err)
	}
	if !conn.IsConnected {
		t.Fatalf("expected connected after touch")
	}
	if conn.LastPollAt == nil || conn.LastPollAt.UnixMilli() != now.UnixMilli() {
		t.Fatalf("unexpected last poll time: %v", conn.LastPollAt)
	}
}

func TestAppendDeliveryLogDuplicateRequests(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// One row per ingestion attempt, even for the same request id.
	for i := 0; i < 2; i++ {
		log := &models.DeliveryLog{
			RequestID: "req-1",
			Target:    "ea-1",
			Payload:   `{"symbol":"XAUUSD"}`,
			Status:    models.DeliverySuccess,
			CreatedAt: time.Now().UTC(),
		}
		if err := store.AppendDeliveryLog(ctx, log); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if log.ID == 0 {
			t.Fatalf("append %d did not set id", i)
		}
	}

	logs, err := store.ListDeliveryLogs(ctx, 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 rows for duplicate request, got %d", len(logs))
	}
	if logs[0].ID <= logs[1].ID {
		t.Fatalf("expected newest first, got ids %d, %d", logs[0].ID, logs[1].ID)
	}
}
