package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	drepo "SignalBridge/internal/domain/repository"
	"SignalBridge/internal/usecase"
	applogger "SignalBridge/pkg/logger"

	"github.com/gorilla/websocket"
)

// frame is the envelope pushed by an upstream alert relay: the target
// connection plus the raw signal payload, forwarded verbatim to the
// ingestion gateway.
type frame struct {
	Type      string          `json:"type"`
	Target    string          `json:"target"`
	RequestID string          `json:"request_id"`
	Payload   json.RawMessage `json:"payload"`
}

// Client implements SignalSource over a WebSocket relay. It reconnects
// with a fixed delay and keeps the connection alive with pings, feeding
// every signal frame into the gateway.
type Client struct {
	url            string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	gateway *usecase.IngestionGateway
	l       *applogger.Logger

	conn      *websocket.Conn
	connected bool
}

// New creates a relay SignalSource.
func New(url string, reconnectDelay, pingInterval time.Duration, gateway *usecase.IngestionGateway, l *applogger.Logger) drepo.SignalSource {
	if reconnectDelay <= 0 {
		reconnectDelay = 5 * time.Second
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Client{
		url:            url,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		gateway:        gateway,
		l:              l,
	}
}

// Run connects and pumps frames until ctx is cancelled. Read errors
// trigger a reconnect after the configured delay.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := c.connect(ctx); err != nil {
			c.l.Warn("relay connect failed", applogger.Error(err))
		} else {
			c.pump(ctx)
		}

		select {
		case <-ctx.Done():
			_ = c.Close()
			return ctx.Err()
		case <-time.After(c.reconnectDelay):
		}
	}
}

func (c *Client) connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("relay connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	c.l.Info("relay connected", applogger.String("url", c.url))
	return nil
}

func (c *Client) pump(ctx context.Context) {
	pingCtx, cancelPing := context.WithCancel(ctx)
	defer cancelPing()
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-pingCtx.Done():
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, b, err := c.conn.ReadMessage()
		if err != nil {
			c.connected = false
			c.l.Warn("relay read error", applogger.Error(err))
			_ = c.Close()
			return
		}

		var f frame
		if err := json.Unmarshal(b, &f); err != nil || f.Type != "signal" {
			// ignore non-signal frames
			continue
		}

		if _, err := c.gateway.Ingest(ctx, f.Target, f.RequestID, f.Payload); err != nil {
			c.l.Warn("relay signal rejected",
				applogger.String("target", f.Target),
				applogger.Error(err))
		}
	}
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected }
