package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"SignalBridge/internal/domain/models"
	drepo "SignalBridge/internal/domain/repository"
	icache "SignalBridge/internal/service/cache"
	"SignalBridge/internal/service/parser"
	applogger "SignalBridge/pkg/logger"
	"SignalBridge/pkg/util"

	"github.com/google/uuid"
)

// Ingestion failure classes. Invalid target and unknown target are
// client errors and must not be retried; IngestionFailed means the
// bounded retry budget against the store was exhausted.
var (
	ErrInvalidTarget   = errors.New("invalid target")
	ErrTargetNotFound  = errors.New("target not found")
	ErrUnusablePayload = parser.ErrNoActionableSignal
	ErrIngestionFailed = errors.New("ingestion failed")
)

var targetRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

const (
	connCacheTTL      = 30 * time.Second
	maxPayloadSnippet = 4000
)

// IngestionGateway normalizes inbound signal payloads into pending
// Commands. Persistence is idempotent on the request id, transient
// store failures are retried with backoff+jitter, and exactly one
// DeliveryLog row is recorded per request regardless of outcome.
type IngestionGateway struct {
	store    drepo.Store
	recorder *DeliveryRecorder
	events   drepo.EventPublisher
	metrics  drepo.Metrics
	l        *applogger.Logger

	connCache *icache.TTLCache

	retryAttempts  int
	retryBase      time.Duration
	attemptTimeout time.Duration
}

// NewIngestionGateway creates the gateway. events may be nil when no
// broker is configured.
func NewIngestionGateway(
	store drepo.Store,
	recorder *DeliveryRecorder,
	events drepo.EventPublisher,
	metrics drepo.Metrics,
	l *applogger.Logger,
	retryAttempts int,
	retryBase time.Duration,
	attemptTimeout time.Duration,
) *IngestionGateway {
	if retryAttempts < 1 {
		retryAttempts = 1
	}
	if retryBase <= 0 {
		retryBase = 100 * time.Millisecond
	}
	return &IngestionGateway{
		store:          store,
		recorder:       recorder,
		events:         events,
		metrics:        metrics,
		l:              l,
		connCache:      icache.NewTTLCache(),
		retryAttempts:  retryAttempts,
		retryBase:      retryBase,
		attemptTimeout: attemptTimeout,
	}
}

// IngestResult reports what the gateway did with one request.
type IngestResult struct {
	CommandID string
	Symbol    string
	Action    string
	RequestID string
	Created   bool
}

// Ingest processes one inbound signal request end to end. The returned
// RequestID is always set, including on errors, so callers can
// correlate with the audit trail.
func (g *IngestionGateway) Ingest(ctx context.Context, target, requestID string, body []byte) (*IngestResult, error) {
	start := time.Now()
	if requestID == "" {
		requestID = uuid.NewString()
	}

	res, retries, err := g.ingest(ctx, target, requestID, body)

	elapsed := time.Since(start)
	log := &models.DeliveryLog{
		RequestID:       requestID,
		Target:          target,
		Payload:         truncate(string(body), maxPayloadSnippet),
		Status:          models.DeliverySuccess,
		ExecutionTimeMS: elapsed.Milliseconds(),
		RetryCount:      retries,
	}
	result := "ok"
	action := ""
	if err != nil {
		log.Status = models.DeliveryFailed
		log.Error = err.Error()
		result = "error"
	} else {
		action = res.Action
	}
	g.recorder.Record(ctx, log)
	g.metrics.RecordSignal(target, action, result)
	g.metrics.RecordLatency("ingest", elapsed.Seconds())

	if err != nil {
		return &IngestResult{RequestID: requestID}, err
	}
	res.RequestID = requestID
	return res, nil
}

func (g *IngestionGateway) ingest(ctx context.Context, target, requestID string, body []byte) (*IngestResult, int, error) {
	if !targetRe.MatchString(target) {
		return nil, 0, ErrInvalidTarget
	}

	sig, mode, err := parser.Parse(body)
	if err != nil {
		return nil, 0, err
	}
	if mode == parser.ModeHeuristic {
		g.l.Debug("signal parsed heuristically",
			applogger.String("target", target),
			applogger.String("action", sig.Action))
	}

	if err := g.verifyTarget(ctx, target); err != nil {
		return nil, 0, err
	}

	cmd := &models.Command{
		ID:           requestID,
		ConnectionID: target,
		Type:         sig.Action,
		Symbol:       sig.Symbol,
		Volume:       sig.Quantity,
		Price:        sig.Price,
		StopLoss:     sig.StopLoss,
		TakeProfit:   sig.TakeProfit,
		CreatedAt:    time.Now().UTC(),
	}

	var (
		stored  *models.Command
		created bool
	)
	retries, err := util.Retry(ctx, g.retryAttempts, g.retryBase, g.attemptTimeout, func(ctx context.Context) error {
		var insErr error
		stored, created, insErr = g.store.InsertCommand(ctx, cmd)
		return insErr
	})
	if err != nil {
		g.metrics.RecordError("ingest_store")
		return nil, retries, fmt.Errorf("%w: %v", ErrIngestionFailed, err)
	}

	if created {
		g.publishEvent(ctx, drepo.EventCommandCreated, stored)
	} else {
		g.l.Debug("duplicate ingestion absorbed",
			applogger.String("request_id", requestID),
			applogger.String("target", target))
	}

	return &IngestResult{
		CommandID: stored.ID,
		Symbol:    stored.Symbol,
		Action:    stored.Type,
		Created:   created,
	}, retries, nil
}

func (g *IngestionGateway) verifyTarget(ctx context.Context, target string) error {
	if _, ok := g.connCache.Get(target); ok {
		return nil
	}
	_, err := g.store.GetConnection(ctx, target)
	if err != nil {
		if errors.Is(err, drepo.ErrNotFound) {
			return ErrTargetNotFound
		}
		return fmt.Errorf("%w: %v", ErrIngestionFailed, err)
	}
	g.connCache.Set(target, struct{}{}, connCacheTTL)
	return nil
}

func (g *IngestionGateway) publishEvent(ctx context.Context, event string, cmd *models.Command) {
	if g.events == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := g.events.PublishCommandEvent(pubCtx, event, cmd); err != nil {
		g.l.Warn("command event publish failed",
			applogger.String("event", event),
			applogger.String("command_id", cmd.ID),
			applogger.Error(err))
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
