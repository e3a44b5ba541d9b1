package models

import "time"

// Command status values. Allowed transitions are
// pending -> processing -> {completed, failed}, plus processing -> pending
// when a stale lease is reclaimed. Terminal states never change.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Command types understood by execution clients.
const (
	CommandBuy   = "buy"
	CommandSell  = "sell"
	CommandClose = "close"
)

// Command is the unit of dispatchable work. Created by the ingestion
// gateway, leased to exactly one poll response, finalized by the result
// reporter. Rows are kept forever for audit.
type Command struct {
	ID           string     `json:"id"`
	ConnectionID string     `json:"connection_id"`
	Type         string     `json:"type"`
	Symbol       string     `json:"symbol"`
	Volume       float64    `json:"volume"`
	Price        float64    `json:"price"`
	StopLoss     float64    `json:"stop_loss"`
	TakeProfit   float64    `json:"take_profit"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	LeasedAt     *time.Time `json:"leased_at,omitempty"`
	ExecutedAt   *time.Time `json:"executed_at,omitempty"`

	// Result fields, set on finalization.
	Ticket         int64   `json:"ticket,omitempty"`
	ExecutedPrice  float64 `json:"executed_price,omitempty"`
	ExecutedVolume float64 `json:"executed_volume,omitempty"`
	ErrorCode      int     `json:"error_code,omitempty"`
	ErrorMessage   string  `json:"error_message,omitempty"`
}

// Terminal reports whether the command reached a final state.
func (c *Command) Terminal() bool {
	return c.Status == StatusCompleted || c.Status == StatusFailed
}

// CommandResult carries a client-reported execution outcome.
type CommandResult struct {
	Success bool
	Ticket  int64
	Price   float64
	Volume  float64
	Code    int
	Message string
}

// Instruction is the client-facing execution shape returned from a poll.
// Tag correlates back to the Command id.
type Instruction struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	Symbol    string  `json:"symbol"`
	Volume    float64 `json:"volume"`
	Price     float64 `json:"price"`
	SL        float64 `json:"sl"`
	TP        float64 `json:"tp"`
	Deviation int     `json:"deviation"`
	Tag       string  `json:"tag"`
}

// Instruction translates a leased command into its wire shape.
func (c *Command) Instruction(deviation int) Instruction {
	return Instruction{
		ID:        c.ID,
		Type:      c.Type,
		Symbol:    c.Symbol,
		Volume:    c.Volume,
		Price:     c.Price,
		SL:        c.StopLoss,
		TP:        c.TakeProfit,
		Deviation: deviation,
		Tag:       c.ID,
	}
}
