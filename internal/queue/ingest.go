package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/knothq/mailgraph/internal/db"
	"github.com/knothq/mailgraph/internal/storage"
	"github.com/knothq/mailgraph/pkg/ai"
	"github.com/knothq/mailgraph/pkg/email"
	"github.com/knothq/mailgraph/pkg/graph"
	"github.com/knothq/mailgraph/pkg/logger"
	"github.com/knothq/mailgraph/pkg/store"
)

// IngestMessage is the payload published for each uploaded corpus.
type IngestMessage struct {
	IngestID string `json:"ingest_id"`
	FileKey  string `json:"file_key"`
	FileName string `json:"file_name"`
}

// IngestProcessor holds everything a worker needs to turn an uploaded
// corpus into graph data.
type IngestProcessor struct {
	DB    *pgxpool.Pool
	Blobs storage.BlobStorage
	Graph *graph.GraphClient
	AI    ai.GraphAIClient
	Store store.GraphStorage
}

// Handle processes one ingest message end to end: load the corpus blob,
// split it into emails, extract and merge every email, and record the
// outcome. The returned error means the whole ingest should be retried.
func (p *IngestProcessor) Handle(ctx context.Context, body []byte) error {
	var msg IngestMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("failed to unmarshal ingest message: %w", err)
	}
	if msg.IngestID == "" || msg.FileKey == "" {
		return fmt.Errorf("incomplete ingest message: %s", string(body))
	}

	logger.Info("Processing ingest", "id", msg.IngestID, "file", msg.FileName)

	raw, err := p.Blobs.Get(ctx, msg.FileKey)
	if err != nil {
		err = fmt.Errorf("failed to load corpus blob: %w", err)
		p.failIngest(ctx, msg.IngestID, err)
		return err
	}

	emails := email.Parse(string(raw))
	if err := db.MarkIngestProcessing(ctx, p.DB, msg.IngestID, len(emails)); err != nil {
		return err
	}

	result, err := p.Graph.ProcessCorpus(ctx, emails, p.AI, p.Store)
	if err != nil {
		err = fmt.Errorf("corpus processing aborted: %w", err)
		p.failIngest(ctx, msg.IngestID, err)
		return err
	}

	failed := make(map[string]error, len(result.Failures))
	for _, f := range result.Failures {
		failed[f.EmailID] = f.Err
	}
	for _, m := range emails {
		status := db.EmailStatusSucceeded
		procErr := failed[m.ID]
		if procErr != nil {
			status = db.EmailStatusFailed
		}
		if err := db.RecordEmailResult(ctx, p.DB, msg.IngestID, m.ID, m.Subject, status, procErr); err != nil {
			logger.Error("Failed to record email result", "ingest", msg.IngestID, "email", m.ID, "err", err)
		}
	}

	if err := db.CompleteIngest(ctx, p.DB, msg.IngestID, result.Succeeded); err != nil {
		return err
	}

	logger.Info("Finished ingest",
		"id", msg.IngestID,
		"emails", result.Attempted,
		"succeeded", result.Succeeded,
		"failed", len(result.Failures),
		"people", result.Stats.People,
		"places", result.Stats.Places,
		"events", result.Stats.Events,
		"relationships", result.Stats.Relationships,
	)
	return nil
}

func (p *IngestProcessor) failIngest(ctx context.Context, id string, cause error) {
	if err := db.FailIngest(ctx, p.DB, id, cause); err != nil {
		logger.Error("Failed to mark ingest failed", "ingest", id, "err", err)
	}
}
