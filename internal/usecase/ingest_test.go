package usecase

import (
	"context"
	"errors"
	"testing"

	"SignalBridge/internal/domain/models"
)

func TestIngestCreatesPendingCommand(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.EnsureConnection(ctx, "ea-1"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	gw := newTestGateway(t, store)

	res, err := gw.Ingest(ctx, "ea-1", "req-1", []byte(`{"symbol":"XAUUSD","action":"buy","price":2400.5,"qty":0.1}`))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if !res.Created {
		t.Fatalf("expected created")
	}
	if res.CommandID != "req-1" || res.RequestID != "req-1" {
		t.Fatalf("request id must become the command id: %+v", res)
	}
	if res.Symbol != "XAUUSD" || res.Action != models.CommandBuy {
		t.Fatalf("unexpected result: %+v", res)
	}

	cmd, err := store.GetCommand(ctx, "req-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if cmd.Status != models.StatusPending {
		t.Fatalf("expected pending, got %q", cmd.Status)
	}
	if cmd.ConnectionID != "ea-1" || cmd.Price != 2400.5 || cmd.Volume != 0.1 {
		t.Fatalf("unexpected command: %+v", cmd)
	}

	logs, err := store.ListDeliveryLogs(ctx, 10, 0)
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 delivery log, got %d", len(logs))
	}
	if logs[0].Status != models.DeliverySuccess || logs[0].RequestID != "req-1" {
		t.Fatalf("unexpected log: %+v", logs[0])
	}
}

func TestIngestGeneratesRequestID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.EnsureConnection(ctx, "ea-1"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	gw := newTestGateway(t, store)

	res, err := gw.Ingest(ctx, "ea-1", "", []byte("buy XAUUSD"))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if res.RequestID == "" {
		t.Fatalf("expected generated request id")
	}
	if res.CommandID != res.RequestID {
		t.Fatalf("command id %q != request id %q", res.CommandID, res.RequestID)
	}
}

func TestIngestDuplicateRequest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.EnsureConnection(ctx, "ea-1"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	gw := newTestGateway(t, store)
	body := []byte(`{"symbol":"XAUUSD","action":"buy"}`)

	first, err := gw.Ingest(ctx, "ea-1", "req-1", body)
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	second, err := gw.Ingest(ctx, "ea-1", "req-1", body)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if !first.Created || second.Created {
		t.Fatalf("expected created then absorbed: %v, %v", first.Created, second.Created)
	}
	if second.CommandID != first.CommandID {
		t.Fatalf("duplicate resolved different command: %q vs %q", second.CommandID, first.CommandID)
	}

	// One command, but one audit row per request.
	logs, err := store.ListDeliveryLogs(ctx, 10, 0)
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 delivery logs, got %d", len(logs))
	}
}

func TestIngestInvalidTarget(t *testing.T) {
	store := newTestStore(t)
	gw := newTestGateway(t, store)

	for _, target := range []string{"", "bad target", "ea/1", "Ωmega"} {
		_, err := gw.Ingest(context.Background(), target, "", []byte("buy XAUUSD"))
		if !errors.Is(err, ErrInvalidTarget) {
			t.Fatalf("target %q: expected ErrInvalidTarget, got %v", target, err)
		}
	}
}

func TestIngestUnknownTarget(t *testing.T) {
	store := newTestStore(t)
	gw := newTestGateway(t, store)

	res, err := gw.Ingest(context.Background(), "ghost", "req-1", []byte("buy XAUUSD"))
	if !errors.Is(err, ErrTargetNotFound) {
		t.Fatalf("expected ErrTargetNotFound, got %v", err)
	}
	if res.RequestID != "req-1" {
		t.Fatalf("request id must survive errors: %+v", res)
	}

	// The failure still leaves an audit row.
	logs, err := store.ListDeliveryLogs(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Status != models.DeliveryFailed {
		t.Fatalf("expected 1 failed log, got %+v", logs)
	}
}

func TestIngestUnusablePayload(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.EnsureConnection(ctx, "ea-1"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	gw := newTestGateway(t, store)

	if _, err := gw.Ingest(ctx, "ea-1", "", []byte("nothing to see here")); !errors.Is(err, ErrUnusablePayload) {
		t.Fatalf("expected ErrUnusablePayload, got %v", err)
	}

	logs, err := store.ListDeliveryLogs(ctx, 10, 0)
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Error == "" {
		t.Fatalf("expected failed log with error, got %+v", logs)
	}
}
