package graph

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/knothq/mailgraph/pkg/ai"
	"github.com/knothq/mailgraph/pkg/email"
	"github.com/knothq/mailgraph/pkg/store/memory"
)

// stubAIClient answers every extraction request with a canned payload and
// fails any prompt containing one of the poisoned markers.
type stubAIClient struct {
	payload string
	failOn  string
	calls   atomic.Int64
}

func (s *stubAIClient) GenerateCompletionWithFormat(
	ctx context.Context,
	name string,
	description string,
	prompt string,
	out any,
	opts ...ai.GenerateOption,
) error {
	s.calls.Add(1)
	if s.failOn != "" && strings.Contains(prompt, s.failOn) {
		return errors.New("model refused")
	}
	return json.Unmarshal([]byte(s.payload), out)
}

func (s *stubAIClient) ResetMetrics()               {}
func (s *stubAIClient) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

func testEmails() []email.Email {
	return []email.Email{
		{
			ID:      "m1",
			Subject: "Meeting follow-up",
			Sender:  email.Address{Name: "Jeff Dasovich", Email: "jeff@enron.com"},
			Date:    "2001-04-03",
			Body:    "Thanks for attending the hearing.",
		},
		{
			ID:      "m2",
			Subject: "Schedule change",
			Sender:  email.Address{Name: "Susan Mara", Email: "susan@enron.com"},
			Date:    "2001-04-04",
			Body:    "Moving the hearing to Thursday.",
		},
	}
}

const stubExtraction = `{
	"people": [{"name": "Jeff Dasovich", "role": "Director", "organization": ""}],
	"places": [],
	"events": [{"name": "PUC Hearing", "date": "2001-04-03", "location": ""}],
	"relationships": [{
		"source": "Jeff Dasovich", "sourceType": "person",
		"relationship": "attended",
		"target": "PUC Hearing", "targetType": "event",
		"context": ""
	}]
}`

func TestProcessCorpus(t *testing.T) {
	client, err := NewGraphClient(NewGraphClientParams{ParallelEmails: 2})
	if err != nil {
		t.Fatal(err)
	}
	aiClient := &stubAIClient{payload: stubExtraction}
	graphStore := memory.NewGraphStore()

	result, err := client.ProcessCorpus(context.Background(), testEmails(), aiClient, graphStore)
	if err != nil {
		t.Fatalf("ProcessCorpus() error = %v", err)
	}
	if result.Attempted != 2 || result.Succeeded != 2 || len(result.Failures) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	// Both emails report the same facts; the graph must hold them once.
	people, _, events, edges := graphStore.Counts()
	if people != 1 || events != 1 || edges != 1 {
		t.Errorf("duplicate facts not merged: people=%d events=%d edges=%d", people, events, edges)
	}
}

func TestProcessCorpusIsolatesEmailFailures(t *testing.T) {
	client, err := NewGraphClient(NewGraphClientParams{MaxRetries: 2})
	if err != nil {
		t.Fatal(err)
	}
	aiClient := &stubAIClient{payload: stubExtraction, failOn: "Schedule change"}
	graphStore := memory.NewGraphStore()

	result, err := client.ProcessCorpus(context.Background(), testEmails(), aiClient, graphStore)
	if err != nil {
		t.Fatalf("ProcessCorpus() error = %v", err)
	}
	if result.Succeeded != 1 {
		t.Errorf("expected 1 success, got %d", result.Succeeded)
	}
	if len(result.Failures) != 1 || result.Failures[0].EmailID != "m2" {
		t.Fatalf("expected m2 recorded as failure, got %+v", result.Failures)
	}

	// The poisoned email is retried up to the limit, the good one is not.
	if got := aiClient.calls.Load(); got != 3 {
		t.Errorf("expected 3 extraction attempts, got %d", got)
	}

	people, _, _, _ := graphStore.Counts()
	if people != 1 {
		t.Errorf("successful email not merged, people=%d", people)
	}
}

func TestProcessCorpusEmptyInput(t *testing.T) {
	client, err := NewGraphClient(NewGraphClientParams{})
	if err != nil {
		t.Fatal(err)
	}
	result, err := client.ProcessCorpus(context.Background(), nil, &stubAIClient{payload: stubExtraction}, memory.NewGraphStore())
	if err != nil {
		t.Fatalf("ProcessCorpus() error = %v", err)
	}
	if result.Attempted != 0 || result.Succeeded != 0 || len(result.Failures) != 0 {
		t.Errorf("unexpected result for empty corpus: %+v", result)
	}
}
