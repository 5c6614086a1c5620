package memory

import (
	"context"
	"sync"

	"github.com/knothq/mailgraph/pkg/common"
	"github.com/knothq/mailgraph/pkg/store"
)

type edgeKey struct {
	sourceLabel string
	sourceName  string
	targetLabel string
	targetName  string
	relType     string
}

// GraphStore is an in-memory store.GraphStorage with the same match-or-create
// and coalesce-on-match semantics as the Neo4j backend. It backs the merge
// engine tests and dry runs; nothing is persisted.
type GraphStore struct {
	mu     sync.Mutex
	people map[string]common.Person
	places map[string]common.Place
	events map[string]common.Event
	edges  map[edgeKey]string
}

// NewGraphStore creates an empty in-memory graph.
func NewGraphStore() *GraphStore {
	return &GraphStore{
		people: make(map[string]common.Person),
		places: make(map[string]common.Place),
		events: make(map[string]common.Event),
		edges:  make(map[edgeKey]string),
	}
}

// InitSchema is a no-op; map keys are the uniqueness constraints here.
func (s *GraphStore) InitSchema(ctx context.Context) error {
	return nil
}

// UpsertPerson match-or-creates a Person by name.
func (s *GraphStore) UpsertPerson(ctx context.Context, person common.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.people[person.Name]
	if !ok {
		s.people[person.Name] = person
		return nil
	}
	existing.Role = coalesce(existing.Role, person.Role)
	existing.Organization = coalesce(existing.Organization, person.Organization)
	s.people[person.Name] = existing
	return nil
}

// UpsertPlace match-or-creates a Place by name.
func (s *GraphStore) UpsertPlace(ctx context.Context, place common.Place) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.places[place.Name]
	if !ok {
		s.places[place.Name] = place
		return nil
	}
	existing.Type = coalesce(existing.Type, place.Type)
	s.places[place.Name] = existing
	return nil
}

// UpsertEvent match-or-creates an Event by the derived identity key.
func (s *GraphStore) UpsertEvent(ctx context.Context, id string, event common.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.events[id]
	if !ok {
		s.events[id] = event
		return nil
	}
	existing.Date = coalesce(existing.Date, event.Date)
	existing.Location = coalesce(existing.Location, event.Location)
	s.events[id] = existing
	return nil
}

// MergeRelationship merges an edge when both endpoints resolve, coalescing
// the context attribute on match.
func (s *GraphStore) MergeRelationship(ctx context.Context, rel store.RelationshipMerge) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.resolves(rel.SourceLabel, rel.SourceName) || !s.resolves(rel.TargetLabel, rel.TargetName) {
		return false, nil
	}

	key := edgeKey{
		sourceLabel: rel.SourceLabel,
		sourceName:  rel.SourceName,
		targetLabel: rel.TargetLabel,
		targetName:  rel.TargetName,
		relType:     rel.Type,
	}
	existing, ok := s.edges[key]
	if !ok {
		s.edges[key] = rel.Context
		return true, nil
	}
	s.edges[key] = coalesce(existing, rel.Context)
	return true, nil
}

// Close is a no-op.
func (s *GraphStore) Close(ctx context.Context) error {
	return nil
}

// resolves matches the Neo4j lookup: by name under the label. Events are
// matched on name rather than the derived id, and no upsert path ever
// creates a generic Entity node, so Entity endpoints never resolve.
func (s *GraphStore) resolves(label string, name string) bool {
	switch label {
	case "Person":
		_, ok := s.people[name]
		return ok
	case "Place":
		_, ok := s.places[name]
		return ok
	case "Event":
		for _, e := range s.events {
			if e.Name == name {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Person returns the stored person fact, if any.
func (s *GraphStore) Person(name string) (common.Person, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.people[name]
	return p, ok
}

// Place returns the stored place fact, if any.
func (s *GraphStore) Place(name string) (common.Place, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.places[name]
	return p, ok
}

// Event returns the stored event fact by its derived identity key, if any.
func (s *GraphStore) Event(id string) (common.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	return e, ok
}

// EdgeContext returns the context stored for an edge, if the edge exists.
func (s *GraphStore) EdgeContext(rel store.RelationshipMerge) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.edges[edgeKey{
		sourceLabel: rel.SourceLabel,
		sourceName:  rel.SourceName,
		targetLabel: rel.TargetLabel,
		targetName:  rel.TargetName,
		relType:     rel.Type,
	}]
	return c, ok
}

// Counts reports how many nodes and edges the graph holds.
func (s *GraphStore) Counts() (people int, places int, events int, edges int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.people), len(s.places), len(s.events), len(s.edges)
}

func coalesce(existing string, incoming string) string {
	if existing != "" {
		return existing
	}
	return incoming
}
