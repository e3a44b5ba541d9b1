package jobs

import (
	"context"
	"fmt"

	"SignalBridge/internal/domain/models"
	drepo "SignalBridge/internal/domain/repository"
	"SignalBridge/internal/usecase"
	"SignalBridge/pkg/queue"
)

// AuditMirrorJob drains queued delivery logs into the analytics sink.
// Failures are retried by the queue's retry processor.
type AuditMirrorJob struct {
	sink drepo.AuditSink
}

// NewAuditMirrorJob creates the job.
func NewAuditMirrorJob(sink drepo.AuditSink) *AuditMirrorJob {
	return &AuditMirrorJob{sink: sink}
}

func (j *AuditMirrorJob) Name() string { return "audit-mirror" }

func (j *AuditMirrorJob) Type() string { return usecase.JobTypeDeliveryMirror }

func (j *AuditMirrorJob) Handle(ctx context.Context, payload interface{}) error {
	log, err := queue.ParsePayload[models.DeliveryLog](payload)
	if err != nil {
		return fmt.Errorf("parse delivery log payload: %w", err)
	}
	return j.sink.MirrorDeliveryLog(ctx, log)
}
