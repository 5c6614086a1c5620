package graph

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/knothq/mailgraph/internal/util"
	"github.com/knothq/mailgraph/pkg/ai"
	"github.com/knothq/mailgraph/pkg/common"
	"github.com/knothq/mailgraph/pkg/email"
	"github.com/knothq/mailgraph/pkg/logger"
	"github.com/knothq/mailgraph/pkg/store"
)

// EmailFailure records one email that could not be processed.
type EmailFailure struct {
	EmailID string
	Subject string
	Err     error
}

// CorpusResult summarizes a full corpus run.
type CorpusResult struct {
	Attempted int
	Succeeded int
	Failures  []EmailFailure
	Stats     MergeStats
}

// ProcessCorpus extracts facts from every email and merges them into the
// graph. Emails are processed with the configured parallelism; a failing
// email is recorded in the result and never aborts the rest of the corpus.
func (g *GraphClient) ProcessCorpus(
	ctx context.Context,
	emails []email.Email,
	aiClient ai.GraphAIClient,
	storeClient store.GraphStorage,
) (*CorpusResult, error) {
	result := &CorpusResult{
		Attempted: len(emails),
	}
	resultMu := sync.Mutex{}

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.parallelEmails)
	for _, mail := range emails {
		m := mail
		eg.Go(func() error {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			default:
				stats, err := g.processEmail(gCtx, m, aiClient, storeClient)
				resultMu.Lock()
				defer resultMu.Unlock()
				result.Stats.People += stats.People
				result.Stats.Places += stats.Places
				result.Stats.Events += stats.Events
				result.Stats.Relationships += stats.Relationships
				result.Stats.SkippedEdges += stats.SkippedEdges
				if err != nil {
					logger.Warn("Failed to process email",
						"id", m.ID,
						"subject", m.Subject,
						"error", err,
					)
					result.Failures = append(result.Failures, EmailFailure{
						EmailID: m.ID,
						Subject: m.Subject,
						Err:     err,
					})
					return nil
				}
				result.Succeeded++
				return nil
			}
		})
	}

	if err := eg.Wait(); err != nil {
		return result, err
	}
	return result, nil
}

func (g *GraphClient) processEmail(
	ctx context.Context,
	mail email.Email,
	aiClient ai.GraphAIClient,
	storeClient store.GraphStorage,
) (MergeStats, error) {
	if g.emailTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.emailTimeout)
		defer cancel()
	}

	extraction, err := util.RetryWithContext(ctx, g.maxRetries, func(ctx context.Context) (*common.Extraction, error) {
		return g.ExtractEmail(ctx, mail, aiClient)
	})
	if err != nil {
		return MergeStats{}, fmt.Errorf("extraction failed: %w", err)
	}

	stats, err := MergeExtraction(ctx, extraction, storeClient)
	if err != nil {
		return stats, fmt.Errorf("merge failed: %w", err)
	}
	return stats, nil
}
