package openai

import (
	"sync"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/knothq/mailgraph/pkg/ai"
)

// GraphOpenAIClient implements ai.GraphAIClient against any
// OpenAI-compatible chat completion endpoint.
//
// A GraphOpenAIClient should be created using NewGraphOpenAIClient.
type GraphOpenAIClient struct {
	extractionModel string

	chatURL string
	chatKey string

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	ChatClient *openai.Client
}

// NewGraphOpenAIClientParams configures a GraphOpenAIClient.
//
// ExtractionModel is the model used for schema-constrained structured
// output. ChatURL may be empty for the default OpenAI endpoint.
type NewGraphOpenAIClientParams struct {
	ExtractionModel string

	ChatURL string
	ChatKey string
}

// NewGraphOpenAIClient creates a client configured with the provided
// parameters.
func NewGraphOpenAIClient(params NewGraphOpenAIClientParams) *GraphOpenAIClient {
	return &GraphOpenAIClient{
		extractionModel: params.ExtractionModel,

		chatURL: params.ChatURL,
		chatKey: params.ChatKey,

		ChatClient: newOpenaiClient(params.ChatURL, params.ChatKey),
	}
}

func newOpenaiClient(baseURL string, apiKey string) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)

	return &client
}

func (c *GraphOpenAIClient) modifyMetrics(delta ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics.InputTokens += delta.InputTokens
	c.metrics.OutputTokens += delta.OutputTokens
	c.metrics.TotalTokens += delta.TotalTokens
	c.metrics.DurationMs += delta.DurationMs
}

// ResetMetrics clears the accumulated usage metrics.
func (c *GraphOpenAIClient) ResetMetrics() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics = ai.ModelMetrics{}
}

// GetMetrics returns the usage metrics accumulated since the last reset.
func (c *GraphOpenAIClient) GetMetrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	return c.metrics
}
