package usecase

import (
	"context"

	"SignalBridge/internal/domain/models"
	drepo "SignalBridge/internal/domain/repository"
	applogger "SignalBridge/pkg/logger"
	"SignalBridge/pkg/queue"
)

// JobTypeDeliveryMirror is the queue message type for audit mirroring.
const JobTypeDeliveryMirror = "delivery_log.mirror"

// DeliveryRecorder writes the per-request audit row and, when a queue
// is configured, hands a copy to the analytics mirror. Both writes are
// post-commit side effects: errors are logged and never propagate to
// the request that triggered them.
type DeliveryRecorder struct {
	store drepo.DeliveryLogStore
	jobs  queue.QueueService
	l     *applogger.Logger
}

// NewDeliveryRecorder creates the recorder. jobs may be nil.
func NewDeliveryRecorder(store drepo.DeliveryLogStore, jobs queue.QueueService, l *applogger.Logger) *DeliveryRecorder {
	return &DeliveryRecorder{store: store, jobs: jobs, l: l}
}

// Record appends one DeliveryLog row. Never fails the caller.
func (r *DeliveryRecorder) Record(ctx context.Context, log *models.DeliveryLog) {
	if err := r.store.AppendDeliveryLog(ctx, log); err != nil {
		r.l.Error("delivery log write failed",
			applogger.String("request_id", log.RequestID),
			applogger.Error(err))
		return
	}
	if r.jobs == nil {
		return
	}
	if err := r.jobs.PublishMessage(ctx, JobTypeDeliveryMirror, log); err != nil {
		r.l.Warn("delivery log mirror enqueue failed",
			applogger.String("request_id", log.RequestID),
			applogger.Error(err))
	}
}
