package graph

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/knothq/mailgraph/pkg/common"
	"github.com/knothq/mailgraph/pkg/logger"
	"github.com/knothq/mailgraph/pkg/store"
)

var relTypeCleaner = regexp.MustCompile(`[^A-Z0-9]+`)

// NodeLabel maps an extracted entity kind to its graph label. Unrecognized
// kinds fall back to Entity, a label no upsert path populates, so edges
// referencing them never find an endpoint.
func NodeLabel(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "person":
		return "Person"
	case "place":
		return "Place"
	case "event":
		return "Event"
	default:
		return "Entity"
	}
}

// NormalizeRelType canonicalizes a model-reported relationship into a graph
// edge type: uppercased, with runs of anything outside A-Z0-9 collapsed to
// a single underscore. Types that would start with a digit are prefixed
// with an underscore to stay a valid edge identifier. Returns the empty
// string when nothing usable remains.
func NormalizeRelType(relType string) string {
	upper := strings.ToUpper(strings.TrimSpace(relType))
	cleaned := relTypeCleaner.ReplaceAllString(upper, "_")
	cleaned = strings.Trim(cleaned, "_")
	if cleaned != "" && cleaned[0] >= '0' && cleaned[0] <= '9' {
		cleaned = "_" + cleaned
	}
	return cleaned
}

// MergeStats reports what a merge pass wrote and what it skipped.
type MergeStats struct {
	People        int
	Places        int
	Events        int
	Relationships int
	SkippedEdges  int
}

// MergeExtraction merges one email's extracted facts into the graph.
// Nodes are merged before relationships so edges can resolve endpoints
// created by the same extraction. A failing fact is skipped and reported;
// it never aborts the remaining facts.
func MergeExtraction(
	ctx context.Context,
	extraction *common.Extraction,
	storeClient store.GraphStorage,
) (MergeStats, error) {
	var stats MergeStats
	var errs []error

	for _, person := range extraction.People {
		if err := storeClient.UpsertPerson(ctx, person); err != nil {
			errs = append(errs, fmt.Errorf("failed to merge person %q: %w", person.Name, err))
			continue
		}
		stats.People++
	}

	for _, place := range extraction.Places {
		if err := storeClient.UpsertPlace(ctx, place); err != nil {
			errs = append(errs, fmt.Errorf("failed to merge place %q: %w", place.Name, err))
			continue
		}
		stats.Places++
	}

	for _, event := range extraction.Events {
		id := EventKey(event.Name, event.Date, event.Location)
		if err := storeClient.UpsertEvent(ctx, id, event); err != nil {
			errs = append(errs, fmt.Errorf("failed to merge event %q: %w", id, err))
			continue
		}
		stats.Events++
	}

	for _, rel := range extraction.Relationships {
		relType := NormalizeRelType(rel.Relationship)
		if relType == "" {
			logger.Debug("Skipping relationship with unusable type",
				"source", rel.Source,
				"target", rel.Target,
				"type", rel.Relationship,
			)
			stats.SkippedEdges++
			continue
		}
		merged, err := storeClient.MergeRelationship(ctx, store.RelationshipMerge{
			SourceLabel: NodeLabel(rel.SourceType),
			SourceName:  rel.Source,
			TargetLabel: NodeLabel(rel.TargetType),
			TargetName:  rel.Target,
			Type:        relType,
			Context:     rel.Context,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to merge relationship %s-[%s]->%s: %w", rel.Source, relType, rel.Target, err))
			continue
		}
		if !merged {
			logger.Debug("Skipping relationship with unresolved endpoint",
				"source", rel.Source,
				"target", rel.Target,
				"type", relType,
			)
			stats.SkippedEdges++
			continue
		}
		stats.Relationships++
	}

	return stats, errors.Join(errs...)
}
