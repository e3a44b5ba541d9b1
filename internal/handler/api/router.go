package api

import "github.com/labstack/echo/v4"

// Router aggregates the bridge and admin handlers behind one
// route-registration entry point.
type Router struct {
	bridge *BridgeHandler
	admin  *AdminHandler
}

func NewRouter(bridge *BridgeHandler, admin *AdminHandler) *Router {
	return &Router{bridge: bridge, admin: admin}
}

func (r *Router) RegisterRoutes(e *echo.Echo) {
	r.bridge.RegisterRoutes(e)
	r.admin.RegisterRoutes(e)
}
