package ollama

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"

	"github.com/knothq/mailgraph/pkg/ai"
)

// GraphOllamaClient implements ai.GraphAIClient against a locally-hosted
// Ollama server. Concurrent requests are bounded by a weighted semaphore so
// a small local model is not overwhelmed.
type GraphOllamaClient struct {
	extractionModel string

	reqLock *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	Client *api.Client
}

// NewGraphOllamaClientParams configures a GraphOllamaClient.
type NewGraphOllamaClientParams struct {
	ExtractionModel string

	BaseURL string
	ApiKey  string

	MaxConcurrentRequests int64
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so original request isn't modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewGraphOllamaClient creates a client talking to the Ollama server at
// BaseURL (or the default when empty).
func NewGraphOllamaClient(params NewGraphOllamaClientParams) (*GraphOllamaClient, error) {
	var (
		u   *url.URL
		err error
	)

	if params.BaseURL != "" {
		u, err = url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
	}

	httpClient := &http.Client{
		Transport: &headerTransport{
			headers: map[string]string{
				"Authorization": "Bearer " + params.ApiKey,
			},
			rt: http.DefaultTransport,
		},
	}

	maxConcurrent := params.MaxConcurrentRequests
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	return &GraphOllamaClient{
		extractionModel: params.ExtractionModel,

		reqLock: semaphore.NewWeighted(maxConcurrent),

		Client: api.NewClient(u, httpClient),
	}, nil
}

func (c *GraphOllamaClient) modifyMetrics(delta ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics.InputTokens += delta.InputTokens
	c.metrics.OutputTokens += delta.OutputTokens
	c.metrics.TotalTokens += delta.TotalTokens
	c.metrics.DurationMs += delta.DurationMs
}

// ResetMetrics clears the accumulated usage metrics.
func (c *GraphOllamaClient) ResetMetrics() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics = ai.ModelMetrics{}
}

// GetMetrics returns the usage metrics accumulated since the last reset.
func (c *GraphOllamaClient) GetMetrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	return c.metrics
}
