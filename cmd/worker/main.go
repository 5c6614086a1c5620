package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/knothq/mailgraph/internal/queue"
	"github.com/knothq/mailgraph/internal/storage"
	"github.com/knothq/mailgraph/internal/util"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/knothq/mailgraph/pkg/ai"
	oai "github.com/knothq/mailgraph/pkg/ai/ollama"
	gai "github.com/knothq/mailgraph/pkg/ai/openai"
	"github.com/knothq/mailgraph/pkg/graph"
	"github.com/knothq/mailgraph/pkg/logger"
	"github.com/knothq/mailgraph/pkg/logger/console"
	"github.com/knothq/mailgraph/pkg/store/neo4j"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	// Init blob storage
	blobs, err := storage.NewFromEnv(ctx)
	if err != nil {
		logger.Fatal("Failed to set up blob storage", "err", err)
	}

	// GraphAiClient
	aiClient := newAIClientFromEnv()

	// Init pgx client
	pgConn, err := pgxpool.New(ctx, util.GetEnv("DATABASE_URL"))
	if err != nil {
		logger.Fatal("Unable to connect to database", "err", err)
	}
	defer pgConn.Close()

	// Init neo4j graph store
	graphStore, err := neo4j.NewGraphStoreFromEnv(ctx)
	if err != nil {
		logger.Fatal("Unable to connect to Neo4j", "err", err)
	}
	defer graphStore.Close(context.Background())
	if err := graphStore.InitSchema(ctx); err != nil {
		logger.Fatal("Failed to initialize graph schema", "err", err)
	}

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

	processor := &queue.IngestProcessor{
		DB:    pgConn,
		Blobs: blobs,
		Graph: graphClient,
		AI:    aiClient,
		Store: graphStore,
	}

	// Init rabbitmq
	conn := queue.Init()
	defer conn.Close()

	// Init rabbitmq queues if not exist
	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	logger.Info("Listening for messages")

	// Single consumer channel with prefetch=1 so only one corpus is
	// processed at a time
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	err = consumerCh.Qos(1, 0, true)
	if err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	msgs, err := consumerCh.Consume(
		queue.IngestQueue,
		"ingest_consumer",
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		logger.Fatal("Failed to start consuming", "queue", queue.IngestQueue, "err", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("Stopping message processor")
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.Info("Message channel closed")
					return
				}
				startTime := time.Now()
				logger.Info("Received message", "queue", queue.IngestQueue)

				processingErr := processor.Handle(ctx, msg.Body)

				// On error send to retry or dead-letter, otherwise ack
				if processingErr != nil {
					logger.Error("Error processing message", "queue", queue.IngestQueue, "err", processingErr)
					handleProcessingError(consumerCh, msg)
				} else {
					if err := msg.Ack(false); err != nil {
						logger.Error("Failed to ack message", "err", err)
					}
					logger.Info("Message processed successfully", "queue", queue.IngestQueue)
				}

				metrics := aiClient.GetMetrics()
				aiDuration := time.Duration(metrics.DurationMs) * time.Millisecond
				aiHours := int(aiDuration.Hours())
				aiMinutes := int(aiDuration.Minutes()) % 60
				aiSeconds := int(aiDuration.Seconds()) % 60
				logger.Info(
					"AI Metrics",
					"input_tokens", metrics.InputTokens,
					"output_tokens", metrics.OutputTokens,
					"total_tokens", metrics.TotalTokens,
					"duration", fmt.Sprintf("%02d:%02d:%02d", aiHours, aiMinutes, aiSeconds),
				)

				processingDuration := time.Since(startTime)
				hours := int(processingDuration.Hours())
				minutes := int(processingDuration.Minutes()) % 60
				seconds := int(processingDuration.Seconds()) % 60
				logger.Info(
					"Processing time",
					"duration", fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds),
				)
				logger.Info("Waiting for next message")
				aiClient.ResetMetrics()
			}
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, exiting...")
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

func handleProcessingError(ch *amqp.Channel, msg amqp.Delivery) {
	retries := 0
	if val, ok := msg.Headers["x-retries"]; ok {
		if v, ok := val.(int32); ok {
			retries = int(v)
		}
	}

	// After the retry budget is spent, park the message in the DLQ
	if retries >= queue.MaxDeliveryRetries {
		logger.Info("Sending message to DLQ", "dlq", queue.IngestDLQ)
		pubErr := ch.Publish(
			"",
			queue.IngestDLQ,
			false,
			false,
			amqp.Publishing{
				ContentType: "application/json",
				Body:        msg.Body,
				Headers:     msg.Headers,
			},
		)
		if pubErr != nil {
			logger.Error("Failed to publish to DLQ", "dlq", queue.IngestDLQ, "err", pubErr)
			msg.Nack(false, true)
			return
		}
		msg.Ack(false)
		return
	}

	headers := msg.Headers
	if headers == nil {
		headers = amqp.Table{}
	}
	headers["x-retries"] = int32(retries + 1)

	pubErr := ch.Publish(
		"",
		queue.IngestRetryQueue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         msg.Body,
			Headers:      headers,
			DeliveryMode: amqp.Persistent,
		},
	)
	if pubErr != nil {
		logger.Error("Failed to publish to retry queue", "queue", queue.IngestRetryQueue, "err", pubErr)
		msg.Nack(false, true)
		return
	}
	msg.Ack(false)
}
