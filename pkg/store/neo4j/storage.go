package neo4j

import (
	"context"
	"fmt"
	"regexp"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/knothq/mailgraph/pkg/common"
	"github.com/knothq/mailgraph/pkg/store"
)

// GraphStore implements store.GraphStorage on Neo4j. All upserts are Cypher
// MERGE statements with ON CREATE / ON MATCH clauses, so repeated merges of
// the same facts are idempotent and optional attributes coalesce instead of
// being overwritten.
type GraphStore struct {
	client *Client
}

// NewGraphStore wraps an already-connected Client.
func NewGraphStore(client *Client) *GraphStore {
	return &GraphStore{client: client}
}

// NewGraphStoreFromEnv connects a Client from the NEO4J_* environment and
// wraps it.
func NewGraphStoreFromEnv(ctx context.Context) (*GraphStore, error) {
	client, err := NewClientFromEnv(ctx)
	if err != nil {
		return nil, err
	}
	return NewGraphStore(client), nil
}

var schemaStatements = []string{
	`CREATE CONSTRAINT person_name IF NOT EXISTS FOR (p:Person) REQUIRE p.name IS UNIQUE`,
	`CREATE CONSTRAINT place_name IF NOT EXISTS FOR (p:Place) REQUIRE p.name IS UNIQUE`,
	`CREATE CONSTRAINT event_id IF NOT EXISTS FOR (e:Event) REQUIRE e.id IS UNIQUE`,
	`CREATE INDEX person_org IF NOT EXISTS FOR (p:Person) ON (p.organization)`,
	`CREATE INDEX place_type IF NOT EXISTS FOR (p:Place) ON (p.type)`,
	`CREATE INDEX event_date IF NOT EXISTS FOR (e:Event) ON (e.date)`,
}

// InitSchema creates the uniqueness constraints and secondary indexes the
// merge semantics depend on.
func (s *GraphStore) InitSchema(ctx context.Context) error {
	session := s.newSession(ctx)
	defer session.Close(ctx)

	for _, stmt := range schemaStatements {
		res, err := session.Run(ctx, stmt, nil)
		if err != nil {
			return fmt.Errorf("failed to run schema statement: %w", err)
		}
		if _, err := res.Consume(ctx); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}

	return nil
}

// UpsertPerson match-or-creates a Person by name, coalescing role and
// organization on match.
func (s *GraphStore) UpsertPerson(ctx context.Context, person common.Person) error {
	query := `
MERGE (p:Person {name: $name})
ON CREATE SET p.role = $role,
              p.organization = $organization
ON MATCH SET p.role = COALESCE(p.role, $role),
             p.organization = COALESCE(p.organization, $organization)
RETURN p
`
	params := map[string]any{
		"name":         person.Name,
		"role":         nullable(person.Role),
		"organization": nullable(person.Organization),
	}

	return s.write(ctx, query, params)
}

// UpsertPlace match-or-creates a Place by name, coalescing type on match.
func (s *GraphStore) UpsertPlace(ctx context.Context, place common.Place) error {
	query := `
MERGE (p:Place {name: $name})
ON CREATE SET p.type = $type
ON MATCH SET p.type = COALESCE(p.type, $type)
RETURN p
`
	params := map[string]any{
		"name": place.Name,
		"type": nullable(place.Type),
	}

	return s.write(ctx, query, params)
}

// UpsertEvent match-or-creates an Event by the derived identity key,
// coalescing date and location on match.
func (s *GraphStore) UpsertEvent(ctx context.Context, id string, event common.Event) error {
	query := `
MERGE (e:Event {id: $id})
ON CREATE SET e.name = $name,
              e.date = $date,
              e.location = $location
ON MATCH SET e.date = COALESCE(e.date, $date),
             e.location = COALESCE(e.location, $location)
RETURN e
`
	params := map[string]any{
		"id":       id,
		"name":     event.Name,
		"date":     nullable(event.Date),
		"location": nullable(event.Location),
	}

	return s.write(ctx, query, params)
}

// identPattern is the only shape of label and edge type the store will
// interpolate into Cypher; labels and types cannot be query parameters.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// MergeRelationship merges a directed edge between two existing nodes,
// resolved by name under their labels. It reports false without error when
// either endpoint is missing.
func (s *GraphStore) MergeRelationship(ctx context.Context, rel store.RelationshipMerge) (bool, error) {
	if !identPattern.MatchString(rel.SourceLabel) || !identPattern.MatchString(rel.TargetLabel) {
		return false, fmt.Errorf("invalid node label %q/%q", rel.SourceLabel, rel.TargetLabel)
	}
	if !identPattern.MatchString(rel.Type) {
		return false, fmt.Errorf("invalid relationship type %q", rel.Type)
	}

	query := fmt.Sprintf(`
MATCH (source:%s {name: $sourceName})
MATCH (target:%s {name: $targetName})
MERGE (source)-[r:%s]->(target)
ON CREATE SET r.context = $context
ON MATCH SET r.context = COALESCE(r.context, $context)
RETURN r
`, rel.SourceLabel, rel.TargetLabel, rel.Type)

	params := map[string]any{
		"sourceName": rel.SourceName,
		"targetName": rel.TargetName,
		"context":    nullable(rel.Context),
	}

	session := s.newSession(ctx)
	defer session.Close(ctx)

	merged, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return false, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return false, err
		}
		return len(records) > 0, nil
	})
	if err != nil {
		return false, err
	}

	return merged.(bool), nil
}

// Close releases the underlying driver.
func (s *GraphStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

func (s *GraphStore) newSession(ctx context.Context) neo4j.SessionWithContext {
	return s.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.client.Database,
	})
}

func (s *GraphStore) write(ctx context.Context, query string, params map[string]any) error {
	session := s.newSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

// nullable maps the empty string to a Cypher null so COALESCE keeps an
// existing value instead of adopting an absent one.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
