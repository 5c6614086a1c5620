package graph

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/knothq/mailgraph/pkg/common"
	"github.com/knothq/mailgraph/pkg/store"
	"github.com/knothq/mailgraph/pkg/store/memory"
)

func TestNormalizeRelType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"works for", "WORKS_FOR"},
		{"WORKS_FOR", "WORKS_FOR"},
		{"attended", "ATTENDED"},
		{"reports-to", "REPORTS_TO"},
		{"  sent  email to ", "SENT_EMAIL_TO"},
		{"co-located (same floor)", "CO_LOCATED_SAME_FLOOR"},
		{"24th birthday", "_24TH_BIRTHDAY"},
		{"1:1 with", "_1_1_WITH"},
		{"???", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeRelType(tt.in); got != tt.want {
			t.Errorf("NormalizeRelType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNodeLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"person", "Person"},
		{"Person", "Person"},
		{"PLACE", "Place"},
		{"event", "Event"},
		{"organization", "Entity"},
		{"", "Entity"},
	}

	for _, tt := range tests {
		if got := NodeLabel(tt.in); got != tt.want {
			t.Errorf("NodeLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMergeExtraction(t *testing.T) {
	ctx := context.Background()

	extraction := &common.Extraction{
		People: []common.Person{
			{Name: "Jeff Dasovich", Role: "Director", Organization: "Enron"},
			{Name: "Susan Mara"},
		},
		Places: []common.Place{
			{Name: "Sacramento", Type: "city"},
		},
		Events: []common.Event{
			{Name: "PUC Hearing", Date: "2001-04-03", Location: "Sacramento"},
		},
		Relationships: []common.Relationship{
			{Source: "Jeff Dasovich", SourceType: "person", Relationship: "works for", Target: "Susan Mara", TargetType: "person", Context: "colleagues"},
			{Source: "Jeff Dasovich", SourceType: "person", Relationship: "attended", Target: "PUC Hearing", TargetType: "event"},
		},
	}

	graphStore := memory.NewGraphStore()
	stats, err := MergeExtraction(ctx, extraction, graphStore)
	if err != nil {
		t.Fatalf("MergeExtraction() error = %v", err)
	}
	if stats.People != 2 || stats.Places != 1 || stats.Events != 1 || stats.Relationships != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	person, ok := graphStore.Person("Jeff Dasovich")
	if !ok || person.Role != "Director" || person.Organization != "Enron" {
		t.Errorf("person not merged as expected: %+v (found %t)", person, ok)
	}
	if _, ok := graphStore.Event("PUC Hearing-2001-04-03-Sacramento"); !ok {
		t.Error("event not stored under derived identity key")
	}
	edgeCtx, ok := graphStore.EdgeContext(store.RelationshipMerge{
		SourceLabel: "Person", SourceName: "Jeff Dasovich",
		TargetLabel: "Person", TargetName: "Susan Mara",
		Type: "WORKS_FOR",
	})
	if !ok || edgeCtx != "colleagues" {
		t.Errorf("edge type not normalized or context lost: %q (found %t)", edgeCtx, ok)
	}
}

func TestMergeExtractionIdempotent(t *testing.T) {
	ctx := context.Background()

	extraction := &common.Extraction{
		People: []common.Person{{Name: "Ken Lay", Role: "CEO"}},
		Events: []common.Event{{Name: "All Hands", Date: "2001-08-14"}},
		Relationships: []common.Relationship{
			{Source: "Ken Lay", SourceType: "person", Relationship: "HOSTED", Target: "All Hands", TargetType: "event"},
		},
	}

	graphStore := memory.NewGraphStore()
	for i := 0; i < 2; i++ {
		if _, err := MergeExtraction(ctx, extraction, graphStore); err != nil {
			t.Fatalf("merge pass %d: %v", i+1, err)
		}
	}

	people, places, events, edges := graphStore.Counts()
	if people != 1 || places != 0 || events != 1 || edges != 1 {
		t.Errorf("second merge changed the graph: people=%d places=%d events=%d edges=%d",
			people, places, events, edges)
	}
}

func TestMergeExtractionEventIdentity(t *testing.T) {
	ctx := context.Background()
	graphStore := memory.NewGraphStore()

	newYork := &common.Extraction{
		Events: []common.Event{{Name: "M", Date: "2025-01-01", Location: "NY"}},
	}
	for i := 0; i < 2; i++ {
		if _, err := MergeExtraction(ctx, newYork, graphStore); err != nil {
			t.Fatal(err)
		}
	}
	if _, _, events, _ := graphStore.Counts(); events != 1 {
		t.Fatalf("identical event facts did not collapse, events=%d", events)
	}

	losAngeles := &common.Extraction{
		Events: []common.Event{{Name: "M", Date: "2025-01-01", Location: "LA"}},
	}
	if _, err := MergeExtraction(ctx, losAngeles, graphStore); err != nil {
		t.Fatal(err)
	}
	if _, _, events, _ := graphStore.Counts(); events != 2 {
		t.Errorf("changed location did not produce a distinct node, events=%d", events)
	}
}

func TestMergeExtractionDigitLeadingRelType(t *testing.T) {
	ctx := context.Background()
	graphStore := memory.NewGraphStore()

	extraction := &common.Extraction{
		People: []common.Person{{Name: "Mark Taylor"}},
		Events: []common.Event{{Name: "Party", Date: "2001-06-09"}},
		Relationships: []common.Relationship{
			{Source: "Mark Taylor", SourceType: "person", Relationship: "24th birthday", Target: "Party", TargetType: "event"},
		},
	}

	stats, err := MergeExtraction(ctx, extraction, graphStore)
	if err != nil {
		t.Fatalf("MergeExtraction() error = %v", err)
	}
	if stats.Relationships != 1 || stats.SkippedEdges != 0 {
		t.Fatalf("digit-leading relationship not merged: %+v", stats)
	}
	if _, ok := graphStore.EdgeContext(store.RelationshipMerge{
		SourceLabel: "Person", SourceName: "Mark Taylor",
		TargetLabel: "Event", TargetName: "Party",
		Type: "_24TH_BIRTHDAY",
	}); !ok {
		t.Error("edge not stored under underscore-prefixed type")
	}
}

func TestMergeExtractionCoalescesKnownAttributes(t *testing.T) {
	ctx := context.Background()
	graphStore := memory.NewGraphStore()

	first := &common.Extraction{
		People: []common.Person{{Name: "Louise Kitchen", Role: "President"}},
	}
	second := &common.Extraction{
		People: []common.Person{{Name: "Louise Kitchen", Role: "Trader", Organization: "Enron Online"}},
	}
	if _, err := MergeExtraction(ctx, first, graphStore); err != nil {
		t.Fatal(err)
	}
	if _, err := MergeExtraction(ctx, second, graphStore); err != nil {
		t.Fatal(err)
	}

	person, _ := graphStore.Person("Louise Kitchen")
	if person.Role != "President" {
		t.Errorf("known role overwritten: got %q", person.Role)
	}
	if person.Organization != "Enron Online" {
		t.Errorf("missing organization not filled: got %q", person.Organization)
	}
}

func TestMergeExtractionSkipsUnresolvedEndpoints(t *testing.T) {
	ctx := context.Background()
	graphStore := memory.NewGraphStore()

	extraction := &common.Extraction{
		People: []common.Person{{Name: "Greg Whalley"}},
		Relationships: []common.Relationship{
			// Target was never extracted as a node.
			{Source: "Greg Whalley", SourceType: "person", Relationship: "MET_WITH", Target: "Unknown Analyst", TargetType: "person"},
			// Unrecognized kind maps to the unpopulated Entity label.
			{Source: "Greg Whalley", SourceType: "person", Relationship: "WORKS_FOR", Target: "Enron", TargetType: "organization"},
			// Unusable relationship type.
			{Source: "Greg Whalley", SourceType: "person", Relationship: "???", Target: "Greg Whalley", TargetType: "person"},
		},
	}

	stats, err := MergeExtraction(ctx, extraction, graphStore)
	if err != nil {
		t.Fatalf("MergeExtraction() error = %v", err)
	}
	if stats.Relationships != 0 {
		t.Errorf("expected no merged relationships, got %d", stats.Relationships)
	}
	if stats.SkippedEdges != 3 {
		t.Errorf("expected 3 skipped edges, got %d", stats.SkippedEdges)
	}
	_, _, _, edges := graphStore.Counts()
	if edges != 0 {
		t.Errorf("expected empty edge set, got %d", edges)
	}
}

type flakyStore struct {
	*memory.GraphStore
	failPeople map[string]error
}

func (s *flakyStore) UpsertPerson(ctx context.Context, person common.Person) error {
	if err, ok := s.failPeople[person.Name]; ok {
		return err
	}
	return s.GraphStore.UpsertPerson(ctx, person)
}

func TestMergeExtractionIsolatesFactFailures(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("deadlock detected")
	graphStore := &flakyStore{
		GraphStore: memory.NewGraphStore(),
		failPeople: map[string]error{"Bad Actor": boom},
	}

	extraction := &common.Extraction{
		People: []common.Person{
			{Name: "Bad Actor"},
			{Name: "Sara Shackleton"},
		},
		Places: []common.Place{{Name: "Houston"}},
	}

	stats, err := MergeExtraction(ctx, extraction, graphStore)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Bad Actor") {
		t.Errorf("error does not name the failing fact: %v", err)
	}
	if stats.People != 1 || stats.Places != 1 {
		t.Errorf("later facts not merged after a failure: %+v", stats)
	}
	if _, ok := graphStore.Person("Sara Shackleton"); !ok {
		t.Error("subsequent person missing from graph")
	}
}
