package models

// TradeSignal is the canonical, field-complete form of an inbound
// chart-alert payload regardless of its original shape. It is never
// persisted directly; the gateway normalizes it into a Command.
type TradeSignal struct {
	Symbol   string
	Side     string
	Action   string // buy, sell, close
	Price    float64
	Quantity float64

	StopLoss   float64
	TakeProfit float64

	Strategy string
	Message  string
}
