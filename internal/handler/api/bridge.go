package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	models "SignalBridge/internal/domain/models"
	"SignalBridge/internal/service/metrics"
	"SignalBridge/internal/service/ratelimit"
	"SignalBridge/internal/usecase"
	xhttp "SignalBridge/pkg/http"
	xlogger "SignalBridge/pkg/logger"

	"github.com/labstack/echo/v4"
)

const maxSignalBody = 64 * 1024

// BridgeHandler exposes the command dispatch endpoints: webhook signal
// ingestion, client polling and result reporting.
type BridgeHandler struct {
	l        *xlogger.Logger
	gateway  *usecase.IngestionGateway
	queue    *usecase.LeaseQueue
	reporter *usecase.ResultReporter
	rl       *ratelimit.Limiter
}

func NewBridgeHandler(l *xlogger.Logger, gateway *usecase.IngestionGateway, queue *usecase.LeaseQueue, reporter *usecase.ResultReporter) *BridgeHandler {
	metrics.Register()
	return &BridgeHandler{
		l:        l,
		gateway:  gateway,
		queue:    queue,
		reporter: reporter,
		rl:       ratelimit.New(),
	}
}

func (h *BridgeHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/signal/:target", h.Signal)
	e.GET("/commands", h.Poll)
	e.POST("/commands/result", h.Result)
}

// Signal handles POST /signal/{target}. Response bodies are fixed wire
// shapes consumed by alert senders; every one carries the request id of
// the audit row.
func (h *BridgeHandler) Signal(c echo.Context) error {
	start := time.Now()
	endpoint := "signal"
	defer func() { metrics.EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	target := c.Param("target")
	if !h.rl.Allow(c.RealIP()+":signal", 20, 10) {
		metrics.EndpointErrors.WithLabelValues(endpoint, "rate_limited").Inc()
		return c.JSON(http.StatusTooManyRequests, models.SignalResponse{Error: "rate limited"})
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxSignalBody))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.SignalResponse{Error: "unreadable body"})
	}

	requestID := c.Request().Header.Get("X-Request-ID")
	res, err := h.gateway.Ingest(c.Request().Context(), target, requestID, body)
	elapsedMS := time.Since(start).Milliseconds()
	if err != nil {
		status := http.StatusInternalServerError
		kind := "internal"
		switch {
		case errors.Is(err, usecase.ErrInvalidTarget), errors.Is(err, usecase.ErrUnusablePayload):
			status = http.StatusBadRequest
			kind = "bad_request"
		case errors.Is(err, usecase.ErrTargetNotFound):
			status = http.StatusNotFound
			kind = "not_found"
		default:
			h.l.Error("signal ingestion error",
				xlogger.String("target", target),
				xlogger.String("request_id", res.RequestID),
				xlogger.Error(err))
		}
		metrics.EndpointErrors.WithLabelValues(endpoint, kind).Inc()
		return c.JSON(status, models.SignalResponse{
			Success:         false,
			RequestID:       res.RequestID,
			ExecutionTimeMS: elapsedMS,
			Error:           err.Error(),
		})
	}

	return c.JSON(http.StatusOK, models.SignalResponse{
		Success:         true,
		CommandID:       res.CommandID,
		Symbol:          res.Symbol,
		Action:          res.Action,
		RequestID:       res.RequestID,
		ExecutionTimeMS: elapsedMS,
	})
}

// Poll handles GET /commands. Reaping stale leases and touching the
// connection's liveness happen as side effects of the poll.
func (h *BridgeHandler) Poll(c echo.Context) error {
	start := time.Now()
	endpoint := "poll"
	defer func() { metrics.EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.PollRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		metrics.EndpointErrors.WithLabelValues(endpoint, "bad_request").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}

	cmds, err := h.queue.Poll(c.Request().Context(), req.ConnectionID, req.Limit)
	if err != nil {
		metrics.EndpointErrors.WithLabelValues(endpoint, "internal").Inc()
		h.l.Error("poll error",
			xlogger.String("connection_id", req.ConnectionID),
			xlogger.Error(err))
		return c.JSON(http.StatusInternalServerError, models.PollResponse{Success: false, Commands: []models.Instruction{}})
	}

	return c.JSON(http.StatusOK, models.PollResponse{Success: true, Commands: cmds})
}

// Result handles POST /commands/result. Duplicate and late reports are
// acknowledged; only an unknown command id is an error.
func (h *BridgeHandler) Result(c echo.Context) error {
	start := time.Now()
	endpoint := "result"
	defer func() { metrics.EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.ResultRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		metrics.EndpointErrors.WithLabelValues(endpoint, "bad_request").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}

	if err := h.reporter.Report(c.Request().Context(), req); err != nil {
		if errors.Is(err, usecase.ErrUnknownCommand) {
			metrics.EndpointErrors.WithLabelValues(endpoint, "not_found").Inc()
			return c.JSON(http.StatusNotFound, models.ResultResponse{Success: false, Error: "unknown command"})
		}
		metrics.EndpointErrors.WithLabelValues(endpoint, "internal").Inc()
		h.l.Error("result report error",
			xlogger.String("command_id", req.CommandID),
			xlogger.Error(err))
		return c.JSON(http.StatusInternalServerError, models.ResultResponse{Success: false, Error: "internal error"})
	}

	return c.JSON(http.StatusOK, models.ResultResponse{Success: true})
}
