package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SignalBridge/internal/domain/models"
	drepo "SignalBridge/internal/domain/repository"
	applogger "SignalBridge/pkg/logger"
)

// ErrUnknownCommand is returned when a result references no known
// command. Clients should not retry.
var ErrUnknownCommand = errors.New("unknown command")

// Broker retcodes treated as successful execution. 10008/10009 are the
// MT5 "order placed"/"request completed" codes; 0 covers clients that
// report plain zero on success.
func successCode(code int) bool {
	return code == 0 || code == 10008 || code == 10009
}

// ResultReporter finalizes commands from client-reported outcomes and
// keeps connection accounting consistent. Reports are idempotent: a
// duplicate, or a result that lost the race against the reaper, is
// acknowledged and discarded.
type ResultReporter struct {
	store   drepo.Store
	events  drepo.EventPublisher
	metrics drepo.Metrics
	l       *applogger.Logger
}

// NewResultReporter creates the reporter. events may be nil.
func NewResultReporter(store drepo.Store, events drepo.EventPublisher, metrics drepo.Metrics, l *applogger.Logger) *ResultReporter {
	return &ResultReporter{store: store, events: events, metrics: metrics, l: l}
}

// Report applies one execution outcome. Returns ErrUnknownCommand for
// an unresolvable id; every other path acknowledges.
func (r *ResultReporter) Report(ctx context.Context, req *models.ResultRequest) error {
	cmd, err := r.store.GetCommand(ctx, req.CommandID)
	if err != nil {
		if errors.Is(err, drepo.ErrNotFound) {
			return ErrUnknownCommand
		}
		return fmt.Errorf("resolve command: %w", err)
	}

	result := &models.CommandResult{
		Success: successCode(req.Code),
		Ticket:  req.Ticket,
		Price:   req.Price,
		Volume:  req.Volume,
		Code:    req.Code,
		Message: req.Message,
	}

	now := time.Now().UTC()
	affected, err := r.store.FinalizeCommand(ctx, cmd.ID, result, now)
	if err != nil {
		r.metrics.RecordError("finalize")
		return fmt.Errorf("finalize command: %w", err)
	}
	if affected == 0 {
		// Either a duplicate report for a terminal command or a late
		// result for a lease the reaper already reclaimed. Both are
		// acknowledged without touching counters; the reaped case means
		// the command may execute again (at-least-once).
		r.l.Warn("result discarded, command not processing",
			applogger.String("command_id", cmd.ID),
			applogger.String("status", cmd.Status),
			applogger.Int("code", req.Code))
		r.metrics.RecordResult("discarded")
		return nil
	}

	latency := now.Sub(cmd.CreatedAt).Milliseconds()
	if err := r.store.RecordResult(ctx, cmd.ConnectionID, result.Success, latency); err != nil {
		// Finalization already committed; accounting drift is logged,
		// not surfaced.
		r.l.Error("connection accounting update failed",
			applogger.String("connection_id", cmd.ConnectionID),
			applogger.Error(err))
	}

	outcome := "success"
	event := drepo.EventCommandCompleted
	if !result.Success {
		outcome = "failure"
		event = drepo.EventCommandFailed
	}
	r.metrics.RecordResult(outcome)
	r.publishEvent(ctx, event, cmd, result)
	return nil
}

func (r *ResultReporter) publishEvent(ctx context.Context, event string, cmd *models.Command, result *models.CommandResult) {
	if r.events == nil {
		return
	}
	cmd.Status = models.StatusCompleted
	if !result.Success {
		cmd.Status = models.StatusFailed
	}
	pubCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := r.events.PublishCommandEvent(pubCtx, event, cmd); err != nil {
		r.l.Warn("command event publish failed",
			applogger.String("event", event),
			applogger.String("command_id", cmd.ID),
			applogger.Error(err))
	}
}
