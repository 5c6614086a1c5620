package store

import (
	"context"

	"github.com/knothq/mailgraph/pkg/common"
)

// RelationshipMerge is a relationship fact with its endpoints already
// resolved to node labels and its edge type already normalized by the merge
// engine. The store merely executes it.
type RelationshipMerge struct {
	SourceLabel string
	SourceName  string
	TargetLabel string
	TargetName  string
	Type        string
	Context     string
}

// GraphStorage is the property-graph boundary of the merge engine. Every
// mutation is an idempotent conditional upsert: match-or-create on the
// identity key, with optional attributes coalesced on match so a present
// value is never overwritten by an absent one.
//
// Implementations must treat empty-string optional attributes as absent.
type GraphStorage interface {
	// InitSchema provisions uniqueness constraints and indexes. It must be
	// called once before any upsert; failure is fatal to the run.
	InitSchema(ctx context.Context) error

	// UpsertPerson match-or-creates a Person node by name.
	UpsertPerson(ctx context.Context, person common.Person) error

	// UpsertPlace match-or-creates a Place node by name.
	UpsertPlace(ctx context.Context, place common.Place) error

	// UpsertEvent match-or-creates an Event node by the derived identity key.
	UpsertEvent(ctx context.Context, id string, event common.Event) error

	// MergeRelationship merges a directed, typed edge between two existing
	// nodes. It reports false when either endpoint does not resolve; no
	// placeholder nodes are ever created.
	MergeRelationship(ctx context.Context, rel RelationshipMerge) (bool, error)

	// Close releases the underlying store handle.
	Close(ctx context.Context) error
}
