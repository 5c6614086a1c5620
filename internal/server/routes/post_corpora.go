package routes

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/knothq/mailgraph/internal/db"
	"github.com/knothq/mailgraph/internal/queue"
	"github.com/knothq/mailgraph/internal/server/middleware"
	"github.com/knothq/mailgraph/pkg/logger"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// maxCorpusSize bounds a single corpus upload.
const maxCorpusSize = 10 << 20

// UploadCorpusHandler accepts one .csv or .txt email corpus as
// multipart/form-data and queues it for processing. The response is
// returned before any extraction happens; clients poll the ingest for
// progress.
func UploadCorpusHandler(c echo.Context) error {
	type uploadCorpusBody struct {
		Extension string `validate:"required,oneof=.csv .txt"`
	}

	type uploadCorpusResponse struct {
		Message  string `json:"message"`
		IngestID string `json:"ingest_id,omitempty"`
	}

	fileHeader, err := c.FormFile("corpus")
	if err != nil {
		return c.JSON(http.StatusBadRequest, uploadCorpusResponse{
			Message: "Missing corpus file",
		})
	}

	body := uploadCorpusBody{
		Extension: strings.ToLower(filepath.Ext(fileHeader.Filename)),
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, uploadCorpusResponse{
			Message: "Only .csv and .txt corpus files are accepted",
		})
	}
	if fileHeader.Size > maxCorpusSize {
		return c.JSON(http.StatusBadRequest, uploadCorpusResponse{
			Message: "Corpus file exceeds the 10MB limit",
		})
	}

	src, err := fileHeader.Open()
	if err != nil {
		logger.Error("Failed to open uploaded file", "err", err)
		return c.JSON(http.StatusInternalServerError, uploadCorpusResponse{
			Message: "Internal server error",
		})
	}
	defer src.Close()

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	ingestID, err := gonanoid.New()
	if err != nil {
		logger.Error("Failed to generate ingest ID", "err", err)
		return c.JSON(http.StatusInternalServerError, uploadCorpusResponse{
			Message: "Internal server error",
		})
	}

	fileKey, err := app.Blobs.Put(ctx, fileHeader.Filename, ingestID, src)
	if err != nil {
		logger.Error("Failed to store uploaded file", "err", err)
		return c.JSON(http.StatusInternalServerError, uploadCorpusResponse{
			Message: "Internal server error",
		})
	}

	if err := db.CreateIngest(ctx, app.DBConn, ingestID, fileKey, fileHeader.Filename); err != nil {
		logger.Error("Failed to create ingest", "err", err)
		return c.JSON(http.StatusInternalServerError, uploadCorpusResponse{
			Message: "Internal server error",
		})
	}

	msgBytes, err := json.Marshal(queue.IngestMessage{
		IngestID: ingestID,
		FileKey:  fileKey,
		FileName: fileHeader.Filename,
	})
	if err != nil {
		logger.Error("Failed to marshal ingest message", "err", err)
		return c.JSON(http.StatusInternalServerError, uploadCorpusResponse{
			Message: "Internal server error",
		})
	}
	if err := queue.PublishFIFO(app.Queue, queue.IngestQueue, msgBytes); err != nil {
		logger.Error("Failed to publish ingest message", "err", err)
		if dbErr := db.FailIngest(ctx, app.DBConn, ingestID, err); dbErr != nil {
			logger.Error("Failed to mark ingest failed", "err", dbErr)
		}
		return c.JSON(http.StatusInternalServerError, uploadCorpusResponse{
			Message: "Internal server error",
		})
	}

	logger.Info("Queued corpus for ingestion", "ingest", ingestID, "file", fileHeader.Filename)
	return c.JSON(http.StatusAccepted, uploadCorpusResponse{
		Message:  "Corpus queued for processing",
		IngestID: ingestID,
	})
}
