package parser

import (
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"SignalBridge/internal/domain/models"
)

// Mode tags which parse path produced the signal.
type Mode string

const (
	ModeStructured Mode = "structured"
	ModeHeuristic  Mode = "heuristic"
)

// ErrNoActionableSignal is returned when neither the structured parse
// nor the text fallback can infer an action.
var ErrNoActionableSignal = errors.New("no actionable signal in payload")

// Field aliases accepted in structured payloads. Chart-alert senders
// disagree on naming, so the first present alias wins.
var (
	symbolKeys   = []string{"symbol", "ticker", "instrument", "pair"}
	actionKeys   = []string{"action", "side", "signal", "order_action"}
	priceKeys    = []string{"price", "close", "entry"}
	quantityKeys = []string{"quantity", "qty", "volume", "lots", "size"}
	stopKeys     = []string{"sl", "stop_loss", "stoploss", "stop"}
	targetKeys   = []string{"tp", "take_profit", "takeprofit", "target"}
	strategyKeys = []string{"strategy", "strategy_name", "alert_name", "tag"}
	messageKeys  = []string{"message", "msg", "text", "comment"}
)

var symbolRe = regexp.MustCompile(`\b[A-Z][A-Z0-9]{2,11}\b`)
var priceRe = regexp.MustCompile(`(?:@|\bat\s+)(\d+(?:\.\d+)?)`)

var actionWords = map[string]string{
	"buy":   models.CommandBuy,
	"long":  models.CommandBuy,
	"sell":  models.CommandSell,
	"short": models.CommandSell,
	"close": models.CommandClose,
	"exit":  models.CommandClose,
	"flat":  models.CommandClose,
}

// Parse turns a raw webhook body into a canonical TradeSignal. A
// structured JSON object is preferred; anything else falls back to
// keyword heuristics over the raw text, so a payload is only rejected
// when even the fallback finds no action.
func Parse(body []byte) (models.TradeSignal, Mode, error) {
	if sig, ok := parseStructured(body); ok {
		return sig, ModeStructured, nil
	}
	if sig, ok := parseHeuristic(string(body)); ok {
		return sig, ModeHeuristic, nil
	}
	return models.TradeSignal{}, "", ErrNoActionableSignal
}

func parseStructured(body []byte) (models.TradeSignal, bool) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return models.TradeSignal{}, false
	}

	action := normalizeAction(firstString(raw, actionKeys))
	if action == "" {
		return models.TradeSignal{}, false
	}

	sig := models.TradeSignal{
		Symbol:   normalizeSymbol(firstString(raw, symbolKeys)),
		Side:     strings.ToLower(firstString(raw, actionKeys)),
		Action:   action,
		Price:      firstNumber(raw, priceKeys),
		Quantity:   firstNumber(raw, quantityKeys),
		StopLoss:   firstNumber(raw, stopKeys),
		TakeProfit: firstNumber(raw, targetKeys),
		Strategy:   firstString(raw, strategyKeys),
		Message:    firstString(raw, messageKeys),
	}
	return sig, true
}

func parseHeuristic(text string) (models.TradeSignal, bool) {
	lower := strings.ToLower(text)

	// Close beats open: "close buy" is a close.
	action := ""
	for _, w := range []string{"close", "exit", "flat", "buy", "long", "sell", "short"} {
		if containsWord(lower, w) {
			action = actionWords[w]
			break
		}
	}
	if action == "" {
		return models.TradeSignal{}, false
	}

	symbol := "UNKNOWN"
	for _, tok := range symbolRe.FindAllString(text, -1) {
		if _, isKeyword := actionWords[strings.ToLower(tok)]; isKeyword {
			continue
		}
		symbol = tok
		break
	}

	var price float64
	if m := priceRe.FindStringSubmatch(lower); m != nil {
		price, _ = strconv.ParseFloat(m[1], 64)
	}

	return models.TradeSignal{
		Symbol:  symbol,
		Side:    action,
		Action:  action,
		Price:   price,
		Message: strings.TrimSpace(text),
	}, true
}

func normalizeAction(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if a, ok := actionWords[s]; ok {
		return a
	}
	// Tolerate compound values like "close_buy" or "open long".
	for w, a := range actionWords {
		if strings.Contains(s, w) {
			if strings.Contains(s, "close") || strings.Contains(s, "exit") {
				return models.CommandClose
			}
			return a
		}
	}
	return ""
}

func normalizeSymbol(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "UNKNOWN"
	}
	return s
}

func firstString(raw map[string]any, keys []string) string {
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			switch s := v.(type) {
			case string:
				if strings.TrimSpace(s) != "" {
					return strings.TrimSpace(s)
				}
			case float64:
				return strconv.FormatFloat(s, 'f', -1, 64)
			}
		}
	}
	return ""
}

func firstNumber(raw map[string]any, keys []string) float64 {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			return n
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
				return f
			}
		case json.Number:
			if f, err := n.Float64(); err == nil {
				return f
			}
		}
	}
	return 0
}

func containsWord(text, word string) bool {
	idx := strings.Index(text, word)
	for idx >= 0 {
		before := idx == 0 || !isAlnum(text[idx-1])
		afterIdx := idx + len(word)
		after := afterIdx >= len(text) || !isAlnum(text[afterIdx])
		if before && after {
			return true
		}
		next := strings.Index(text[idx+1:], word)
		if next < 0 {
			return false
		}
		idx = idx + 1 + next
	}
	return false
}

func isAlnum(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
