package usecase

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	drepo "SignalBridge/internal/domain/repository"
	internalrepo "SignalBridge/internal/repository"
	applogger "SignalBridge/pkg/logger"
	"SignalBridge/pkg/sqlite"
)

type nopMetrics struct{}

func (nopMetrics) RecordSignal(target, action, result string) {}
func (nopMetrics) RecordLease(connectionID string, count int) {}
func (nopMetrics) RecordReap(count int)                       {}
func (nopMetrics) RecordResult(outcome string)                {}
func (nopMetrics) RecordError(kind string)                    {}
func (nopMetrics) RecordLatency(op string, seconds float64)   {}

func newTestStore(t *testing.T) drepo.Store {
	t.Helper()
	client, err := sqlite.NewClient(
		sqlite.WithPath(filepath.Join(t.TempDir(), "bridge.db")),
		sqlite.WithBusyTimeout(5*time.Second),
	)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if err := client.InitSchema(context.Background(), internalrepo.Schema()); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return internalrepo.NewBridgeStore(client.DB())
}

func newTestLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func newTestGateway(t *testing.T, store drepo.Store) *IngestionGateway {
	t.Helper()
	l := newTestLogger(t)
	recorder := NewDeliveryRecorder(store, nil, l)
	return NewIngestionGateway(store, recorder, nil, nopMetrics{}, l, 3, time.Millisecond, time.Second)
}
