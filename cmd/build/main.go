package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/knothq/mailgraph/internal/util"
	"github.com/knothq/mailgraph/pkg/ai"
	oai "github.com/knothq/mailgraph/pkg/ai/ollama"
	gai "github.com/knothq/mailgraph/pkg/ai/openai"
	"github.com/knothq/mailgraph/pkg/email"
	"github.com/knothq/mailgraph/pkg/graph"
	"github.com/knothq/mailgraph/pkg/logger"
	"github.com/knothq/mailgraph/pkg/logger/console"
	"github.com/knothq/mailgraph/pkg/store/neo4j"
)

// build reads a corpus file, extracts facts from every email and merges
// them into the graph, without going through the upload queue.
func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	if len(os.Args) < 2 {
		logger.Fatal("Usage: build <corpus-file>")
	}
	corpusPath := os.Args[1]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	raw, err := os.ReadFile(corpusPath)
	if err != nil {
		logger.Fatal("Failed to read corpus file", "path", corpusPath, "err", err)
	}

	emails := email.Parse(string(raw))
	if len(emails) == 0 {
		logger.Fatal("Corpus contains no emails", "path", corpusPath)
	}
	logger.Info("Parsed corpus", "path", corpusPath, "emails", len(emails))

	graphStore, err := neo4j.NewGraphStoreFromEnv(ctx)
	if err != nil {
		logger.Fatal("Unable to connect to Neo4j", "err", err)
	}
	defer graphStore.Close(context.Background())
	if err := graphStore.InitSchema(ctx); err != nil {
		logger.Fatal("Failed to initialize graph schema", "err", err)
	}

	aiClient := newAIClientFromEnv()

	graphClient, err := graph.NewGraphClient(graph.NewGraphClientParams{
		TokenEncoder:    util.GetEnvString("TOKEN_ENCODER", "o200k_base"),
		ParallelEmails:  int(util.GetEnvNumeric("PARALLEL_EMAILS", 1)),
		MaxRetries:      int(util.GetEnvNumeric("MAX_RETRIES", 3)),
		MaxPromptTokens: int(util.GetEnvNumeric("MAX_PROMPT_TOKENS", 0)),
		EmailTimeout:    time.Duration(util.GetEnvNumeric("EMAIL_TIMEOUT_SECONDS", 0)) * time.Second,
	})
	if err != nil {
		logger.Fatal("Failed to create graph client", "err", err)
	}

	start := time.Now()
	result, err := graphClient.ProcessCorpus(ctx, emails, aiClient, graphStore)
	if err != nil {
		logger.Fatal("Corpus processing aborted", "err", err)
	}

	for _, failure := range result.Failures {
		logger.Warn("Email failed",
			"id", failure.EmailID,
			"subject", failure.Subject,
			"err", failure.Err,
		)
	}

	metrics := aiClient.GetMetrics()
	logger.Info("Finished building graph",
		"emails", result.Attempted,
		"succeeded", result.Succeeded,
		"failed", len(result.Failures),
		"people", result.Stats.People,
		"places", result.Stats.Places,
		"events", result.Stats.Events,
		"relationships", result.Stats.Relationships,
		"skipped_edges", result.Stats.SkippedEdges,
		"total_tokens", metrics.TotalTokens,
		"duration", time.Since(start).Round(time.Second).String(),
	)

	if result.Succeeded == 0 {
		os.Exit(1)
	}
}

func newAIClientFromEnv() ai.GraphAIClient {
	adapter := util.GetEnv("AI_ADAPTER")

	switch adapter {
	case "ollama":
		client, err := oai.NewGraphOllamaClient(oai.NewGraphOllamaClientParams{
			ExtractionModel: util.GetEnv("AI_CHAT_EXTRACT_MODEL"),

			BaseURL: util.GetEnv("AI_CHAT_URL"),
			ApiKey:  util.GetEnv("AI_CHAT_KEY"),

			MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 1)),
		})
		if err != nil {
			logger.Fatal("Could not create Ollama client", "err", err)
		}
		return client
	default:
		return gai.NewGraphOpenAIClient(gai.NewGraphOpenAIClientParams{
			ExtractionModel: util.GetEnv("AI_CHAT_EXTRACT_MODEL"),

			ChatURL: util.GetEnv("AI_CHAT_URL"),
			ChatKey: util.GetEnv("AI_CHAT_KEY"),
		})
	}
}
