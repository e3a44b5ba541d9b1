package models

import "time"

// DeliveryLog statuses.
const (
	DeliverySuccess = "success"
	DeliveryFailed  = "failed"
)

// DeliveryLog is the append-only audit record of one ingestion attempt.
// Exactly one row is written per inbound request, success or not.
type DeliveryLog struct {
	ID              int64  `json:"id"`
	RequestID       string `json:"request_id"`
	Target          string `json:"target"`
	Payload         string `json:"payload"`
	Status          string `json:"status"`
	Error           string `json:"error,omitempty"`
	ExecutionTimeMS int64  `json:"execution_time_ms"`
	RetryCount      int       `json:"retry_count"`
	CreatedAt       time.Time `json:"created_at"`
}
