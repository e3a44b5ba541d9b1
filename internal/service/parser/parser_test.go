package parser

import (
	"testing"

	"SignalBridge/internal/domain/models"
)

func TestParseStructured(t *testing.T) {
	body := []byte(`{"symbol":"xauusd","action":"BUY","price":2400.5,"qty":0.1,"sl":2390,"tp":2420,"strategy":"breakout"}`)

	sig, mode, err := Parse(body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if mode != ModeStructured {
		t.Fatalf("expected structured mode, got %q", mode)
	}
	if sig.Symbol != "XAUUSD" {
		t.Fatalf("symbol not normalized: %q", sig.Symbol)
	}
	if sig.Action != models.CommandBuy {
		t.Fatalf("unexpected action %q", sig.Action)
	}
	if sig.Price != 2400.5 || sig.Quantity != 0.1 || sig.StopLoss != 2390 || sig.TakeProfit != 2420 {
		t.Fatalf("numbers not extracted: %+v", sig)
	}
	if sig.Strategy != "breakout" {
		t.Fatalf("strategy not extracted: %q", sig.Strategy)
	}
}

func TestParseStructuredAliases(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		action string
		symbol string
	}{
		{"side alias", `{"ticker":"EURUSD","side":"short"}`, models.CommandSell, "EURUSD"},
		{"signal alias", `{"instrument":"BTCUSD","signal":"long","volume":"0.5"}`, models.CommandBuy, "BTCUSD"},
		{"compound close", `{"pair":"GBPUSD","order_action":"close_buy"}`, models.CommandClose, "GBPUSD"},
		{"missing symbol", `{"action":"sell"}`, models.CommandSell, "UNKNOWN"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sig, mode, err := Parse([]byte(tc.body))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if mode != ModeStructured {
				t.Fatalf("expected structured mode, got %q", mode)
			}
			if sig.Action != tc.action {
				t.Fatalf("expected action %q, got %q", tc.action, sig.Action)
			}
			if sig.Symbol != tc.symbol {
				t.Fatalf("expected symbol %q, got %q", tc.symbol, sig.Symbol)
			}
		})
	}
}

func TestParseStructuredQuantityAsString(t *testing.T) {
	sig, _, err := Parse([]byte(`{"symbol":"XAUUSD","action":"buy","lots":"0.25"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if sig.Quantity != 0.25 {
		t.Fatalf("expected quantity 0.25, got %v", sig.Quantity)
	}
}

func TestParseHeuristic(t *testing.T) {
	sig, mode, err := Parse([]byte("BUY XAUUSD @2400.50 breakout confirmed"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if mode != ModeHeuristic {
		t.Fatalf("expected heuristic mode, got %q", mode)
	}
	if sig.Action != models.CommandBuy {
		t.Fatalf("unexpected action %q", sig.Action)
	}
	if sig.Symbol != "XAUUSD" {
		t.Fatalf("unexpected symbol %q", sig.Symbol)
	}
	if sig.Price != 2400.50 {
		t.Fatalf("unexpected price %v", sig.Price)
	}
}

func TestParseHeuristicCloseBeatsOpen(t *testing.T) {
	sig, _, err := Parse([]byte("close buy EURUSD"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if sig.Action != models.CommandClose {
		t.Fatalf("expected close, got %q", sig.Action)
	}
}

func TestParseHeuristicAtPrice(t *testing.T) {
	sig, _, err := Parse([]byte("sell GBPUSD at 1.2650"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if sig.Price != 1.2650 {
		t.Fatalf("unexpected price %v", sig.Price)
	}
}

func TestParseHeuristicNoSymbol(t *testing.T) {
	sig, _, err := Parse([]byte("go long here"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if sig.Symbol != "UNKNOWN" {
		t.Fatalf("expected UNKNOWN symbol, got %q", sig.Symbol)
	}
	if sig.Action != models.CommandBuy {
		t.Fatalf("unexpected action %q", sig.Action)
	}
}

func TestParseNoActionableSignal(t *testing.T) {
	for _, body := range []string{
		"",
		"hello world",
		`{"symbol":"XAUUSD","price":2400}`,
		"rebuy is not a word boundary match",
	} {
		if _, _, err := Parse([]byte(body)); err != ErrNoActionableSignal {
			t.Fatalf("payload %q: expected ErrNoActionableSignal, got %v", body, err)
		}
	}
}

func TestParseJSONWithoutActionFallsBack(t *testing.T) {
	// Valid JSON missing an action alias still gets the text fallback.
	sig, mode, err := Parse([]byte(`{"note":"buy XAUUSD now"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if mode != ModeHeuristic {
		t.Fatalf("expected heuristic fallback, got %q", mode)
	}
	if sig.Action != models.CommandBuy {
		t.Fatalf("unexpected action %q", sig.Action)
	}
}
