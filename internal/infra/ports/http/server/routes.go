package server

import (
	"github.com/labstack/echo/v4"

	"github.com/congsh/PeerHaiguitang/internal/infra/ports/http/handlers"
	"github.com/congsh/PeerHaiguitang/internal/infra/ports/http/middleware"
)

func New(
	relayHandler *handlers.RelayHandler,
	iceHandler *handlers.IceHandler,
	signalHandler *handlers.SignalHandler,
) *echo.Echo {
	e := echo.New()

	e.HideBanner = true

	e.Use(middleware.SlogLogger())
	e.Use(middleware.PrometheusMiddleware())

	api := e.Group("/api")
	{
		// The serverless-style relay keeps its single-endpoint shape so
		// existing clients need no changes.
		api.POST("/room-manager", relayHandler.Handle)

		v1 := api.Group("/v1")
		{
			v1.GET("/ice", iceHandler.IceServers)
			v1.GET("/ws", signalHandler.Handle)
		}
	}

	e.Static("/", "web")

	return e
}
