package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"

	"github.com/ollama/ollama/api"
	"github.com/pkoukk/tiktoken-go"

	"github.com/knothq/mailgraph/pkg/ai"
)

// GenerateCompletionWithFormat enforces a JSON schema reflected from out and
// unmarshals the reply into it. The extraction model is used unless
// overridden.
func (c *GraphOllamaClient) GenerateCompletionWithFormat(
	ctx context.Context,
	name string,
	description string,
	prompt string,
	out any,
	opts ...ai.GenerateOption,
) error {
	if out == nil {
		return errors.New("out must be a non-nil pointer")
	}
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.New("out must be a non-nil pointer")
	}

	if err := c.reqLock.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.reqLock.Release(1)

	schemaObj := ai.GenerateSchema(out)
	formatBytes, err := json.Marshal(schemaObj)
	if err != nil {
		return err
	}
	var format json.RawMessage = formatBytes

	options := ai.GenerateOptions{
		Model:       c.extractionModel,
		Temperature: 0.1,
	}
	for _, o := range opts {
		o(&options)
	}

	msgs := make([]api.Message, 0, len(options.SystemPrompts)+1)
	for _, sp := range options.SystemPrompts {
		msgs = append(msgs, api.Message{Role: "system", Content: sp})
	}
	msgs = append(msgs, api.Message{Role: "user", Content: prompt})

	stream := false
	req := &api.ChatRequest{
		Model:    options.Model,
		Messages: msgs,
		Stream:   &stream,
		Format:   format,
		Options:  map[string]any{"temperature": options.Temperature},
	}

	if err := sizeContextWindow(req, prompt); err != nil {
		return err
	}

	var final api.ChatResponse
	if err := c.Client.Chat(ctx, req, func(cr api.ChatResponse) error {
		final.Message.Content += cr.Message.Content
		if cr.Done {
			final.Done = true
			final.Metrics = cr.Metrics
		}
		return nil
	}); err != nil {
		return err
	}

	c.modifyMetrics(ai.ModelMetrics{
		InputTokens:  final.Metrics.PromptEvalCount,
		OutputTokens: final.Metrics.EvalCount,
		TotalTokens:  final.Metrics.PromptEvalCount + final.Metrics.EvalCount,
		DurationMs:   final.Metrics.TotalDuration.Milliseconds(),
	})

	return ai.UnmarshalFlexible(final.Message.Content, out)
}

// sizeContextWindow raises num_ctx past the default when the prompt alone
// would not fit, leaving headroom for the reply.
func sizeContextWindow(req *api.ChatRequest, prompt string) error {
	enc, err := tiktoken.GetEncoding("o200k_base")
	if err != nil {
		return err
	}

	tokens := 200 + len(enc.Encode(prompt, nil, nil))
	if tokens > 4096 {
		req.Options["num_ctx"] = tokens
	}
	return nil
}
