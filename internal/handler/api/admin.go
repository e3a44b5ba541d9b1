package api

import (
	"errors"
	"net/http"

	drepo "SignalBridge/internal/domain/repository"
	xhttp "SignalBridge/pkg/http"
	xlogger "SignalBridge/pkg/logger"
	"SignalBridge/pkg/util"

	"github.com/labstack/echo/v4"
)

// AdminHandler exposes the read-mostly surface consumed by panels:
// connection counters, command lookups and the delivery audit trail.
type AdminHandler struct {
	l     *xlogger.Logger
	store drepo.Store
}

func NewAdminHandler(l *xlogger.Logger, store drepo.Store) *AdminHandler {
	return &AdminHandler{l: l, store: store}
}

func (h *AdminHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/connections", h.Connections)
	g.GET("/connections/:id", h.Connection)
	g.GET("/commands/:id", h.Command)
	g.GET("/logs", h.Logs)
	e.GET("/health", h.Health)
}

func (h *AdminHandler) Connections(c echo.Context) error {
	conns, err := h.store.ListConnections(c.Request().Context())
	if err != nil {
		h.l.Error("list connections error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, conns)
}

func (h *AdminHandler) Connection(c echo.Context) error {
	conn, err := h.store.GetConnection(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, drepo.ErrNotFound) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundError("connection not found"))
		}
		h.l.Error("get connection error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, conn)
}

func (h *AdminHandler) Command(c echo.Context) error {
	cmd, err := h.store.GetCommand(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, drepo.ErrNotFound) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundError("command not found"))
		}
		h.l.Error("get command error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, cmd)
}

func (h *AdminHandler) Logs(c echo.Context) error {
	limit := util.ParseIntDefault(c.QueryParam("limit"), 100)
	offset := util.ParseIntDefault(c.QueryParam("offset"), 0)

	logs, err := h.store.ListDeliveryLogs(c.Request().Context(), limit, offset)
	if err != nil {
		h.l.Error("list delivery logs error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, logs)
}

func (h *AdminHandler) Health(c echo.Context) error {
	if err := h.store.Health(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
