package server

import (
	"github.com/knothq/mailgraph/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api")

	// Corpus ingestion routes
	apiRoutes.POST("/corpora", routes.UploadCorpusHandler)
	apiRoutes.GET("/ingests/:id", routes.GetIngestHandler)
}
