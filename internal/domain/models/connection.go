package models

import "time"

// Connection represents one remote execution client/session. The bridge
// only touches liveness and accounting; session lifecycle is owned
// elsewhere and rows are never deleted here.
type Connection struct {
	ID           string     `json:"id"`
	IsConnected  bool       `json:"is_connected"`
	LastPollAt   *time.Time `json:"last_poll_at,omitempty"`
	TotalSent    int64      `json:"total_sent"`
	Successful   int64      `json:"successful"`
	Failed       int64      `json:"failed"`
	AvgLatencyMS float64    `json:"avg_latency_ms"`
}
