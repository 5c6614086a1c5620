package queue

import (
	"fmt"
	"time"

	"github.com/knothq/mailgraph/internal/util"
	"github.com/knothq/mailgraph/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

// IngestQueue is the work queue for uploaded corpora. Failed deliveries
// park in the retry queue and dead-letter back after the TTL; messages
// that exhaust their retries end up in the DLQ.
const (
	IngestQueue      = "ingest_queue"
	IngestRetryQueue = IngestQueue + "_retry"
	IngestDLQ        = IngestQueue + "_dlq"

	MaxDeliveryRetries = 10
)

func Init() *amqp091.Connection {
	user := util.GetEnv("RABBITMQ_USER")
	pass := util.GetEnv("RABBITMQ_PASSWORD")
	host := util.GetEnv("RABBITMQ_HOST")
	port := util.GetEnv("RABBITMQ_PORT")

	connURL := fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		user,
		pass,
		host,
		port,
	)

	conn, err := amqp091.Dial(connURL)
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", "err", err)
	}

	return conn
}

func SetupQueues(ch *amqp091.Channel) error {
	_, err := ch.QueueDeclare(
		IngestQueue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to declare %s: %w", IngestQueue, err)
	}

	_, err = ch.QueueDeclare(
		IngestDLQ,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare %s: %w", IngestDLQ, err)
	}

	_, err = ch.QueueDeclare(
		IngestRetryQueue,
		true,
		false,
		false,
		false,
		amqp091.Table{
			"x-message-ttl":             int32(10000),
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": IngestQueue,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to declare %s: %w", IngestRetryQueue, err)
	}

	return nil
}

func PublishFIFO(ch *amqp091.Channel, queueName string, data []byte) error {
	q, err := ch.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         data,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	}

	err = ch.Publish(
		"",
		q.Name,
		false,
		false,
		publishing,
	)
	if err != nil {
		return err
	}

	return nil
}
