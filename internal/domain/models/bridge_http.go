package models

// Requests and responses for the bridge HTTP endpoints. Defined in
// domain for consistency and reuse.

type PollRequest struct {
	ConnectionID string `query:"connection_id" json:"connection_id" validate:"required"`
	Limit        int    `query:"limit" json:"limit" validate:"gte=0,lte=500"`
}

type ResultRequest struct {
	CommandID string  `json:"command_id" validate:"required"`
	Ticket    int64   `json:"ticket"`
	Price     float64 `json:"price"`
	Volume    float64 `json:"volume"`
	Code      int     `json:"code"`
	Message   string  `json:"message"`
}

// SignalResponse is returned from POST /signal/{target}. Every response,
// including errors, carries the request id correlating to the
// DeliveryLog row.
type SignalResponse struct {
	Success         bool   `json:"success"`
	CommandID       string `json:"commandId,omitempty"`
	Symbol          string `json:"symbol,omitempty"`
	Action          string `json:"action,omitempty"`
	RequestID       string `json:"requestId"`
	ExecutionTimeMS int64  `json:"executionTimeMs"`
	Error           string `json:"error,omitempty"`
}

type PollResponse struct {
	Success  bool          `json:"success"`
	Commands []Instruction `json:"commands"`
}

type ResultResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
