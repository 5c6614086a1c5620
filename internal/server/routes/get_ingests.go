package routes

import (
	"errors"
	"net/http"

	"github.com/knothq/mailgraph/internal/db"
	"github.com/knothq/mailgraph/internal/server/middleware"
	"github.com/knothq/mailgraph/pkg/logger"

	"github.com/labstack/echo/v4"
)

// GetIngestHandler returns the state of one ingest and its per-email results.
func GetIngestHandler(c echo.Context) error {
	type getIngestResponse struct {
		Message string           `json:"message,omitempty"`
		Ingest  *db.Ingest       `json:"ingest,omitempty"`
		Emails  []db.IngestEmail `json:"emails,omitempty"`
	}

	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, getIngestResponse{
			Message: "Missing ingest id",
		})
	}

	app := c.(*middleware.AppContext).App
	ingest, emails, err := db.GetIngest(c.Request().Context(), app.DBConn, id)
	if errors.Is(err, db.ErrIngestNotFound) {
		return c.JSON(http.StatusNotFound, getIngestResponse{
			Message: "Ingest not found",
		})
	}
	if err != nil {
		logger.Error("Failed to load ingest", "ingest", id, "err", err)
		return c.JSON(http.StatusInternalServerError, getIngestResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, getIngestResponse{
		Ingest: ingest,
		Emails: emails,
	})
}
