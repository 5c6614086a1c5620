package graph

import "time"

// GraphClient drives the extraction and merge pipeline for an email corpus.
// It manages token budgeting, per-email parallelism, and retry policy.
//
// A GraphClient should be created using NewGraphClient.
type GraphClient struct {
	tokenEncoder    string
	parallelEmails  int
	maxRetries      int
	maxPromptTokens int
	emailTimeout    time.Duration
}

// NewGraphClientParams defines the configuration parameters for creating
// a new GraphClient.
//
// TokenEncoder specifies the tiktoken encoding used for prompt budgeting.
// ParallelEmails controls how many emails can be processed in parallel.
// MaxPromptTokens caps the email body tokens included in an extraction
// prompt; zero disables truncation.
// EmailTimeout bounds the end-to-end processing of a single email; zero
// disables the per-email deadline.
type NewGraphClientParams struct {
	TokenEncoder    string
	ParallelEmails  int
	MaxRetries      int
	MaxPromptTokens int
	EmailTimeout    time.Duration
}

// NewGraphClient creates and returns a new GraphClient configured with
// the provided parameters.
//
// Example:
//
//	params := graph.NewGraphClientParams{
//		TokenEncoder:   "o200k_base",
//		ParallelEmails: 4,
//		MaxRetries:     3,
//	}
//	client, err := graph.NewGraphClient(params)
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Returns a pointer to GraphClient and an error if initialization fails.
func NewGraphClient(params NewGraphClientParams) (*GraphClient, error) {
	encoder := params.TokenEncoder
	if encoder == "" {
		encoder = "o200k_base"
	}
	parallel := params.ParallelEmails
	if parallel <= 0 {
		parallel = 1
	}
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	g := &GraphClient{
		tokenEncoder:    encoder,
		parallelEmails:  parallel,
		maxRetries:      maxRetries,
		maxPromptTokens: params.MaxPromptTokens,
		emailTimeout:    params.EmailTimeout,
	}

	return g, nil
}
