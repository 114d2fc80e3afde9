// Package kafka provides Kafka producer and consumer clients backed by
// segmentio/kafka-go. The producer serialises events as JSON; the consumer
// drains a topic into a MessageHandler.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/catalog/pkg/config"
	"github.com/segmentio/kafka-go"
)

// Message is the part of a Kafka message the handlers care about.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
}

// Origin identifies the message in logs as topic/partition@offset.
func (m Message) Origin() string {
	return fmt.Sprintf("%s/%d@%d", m.Topic, m.Partition, m.Offset)
}

// MessageHandler is a callback invoked for each Kafka message. Returning an
// error stops the drain.
type MessageHandler func(ctx context.Context, msg Message) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer reads a topic from the beginning and dispatches every message to
// a MessageHandler.
type Consumer struct {
	reader      messageReader
	logger      *slog.Logger
	handler     MessageHandler
	joinTimeout time.Duration
}

// NewConsumer creates a Consumer for the given topic and handler. Offsets are
// never committed: an index build is a full rebuild and reads the whole topic
// each time.
func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})

	join := cfg.JoinTimeout
	if join <= 0 {
		join = time.Minute
	}
	return &Consumer{
		reader:      r,
		logger:      slog.Default().With("component", "kafka-consumer", "topic", topic),
		handler:     handler,
		joinTimeout: join,
	}
}

// Drain fetches messages until none arrives for idle, then returns nil. Until
// the first message arrives the wait is the longer join timeout, which covers
// the consumer group rebalance. It returns ctx.Err() on cancellation and the
// handler's error if it fails.
func (c *Consumer) Drain(ctx context.Context, idle time.Duration) error {
	c.logger.Info("draining topic", "idle_timeout", idle, "join_timeout", c.joinTimeout)
	var count int
	for {
		wait := idle
		if count == 0 && c.joinTimeout > wait {
			wait = c.joinTimeout
		}
		fetchCtx, cancel := context.WithTimeout(ctx, wait)
		msg, err := c.reader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				if count == 0 {
					c.logger.Warn("no messages received before join timeout", "join_timeout", wait)
				}
				c.logger.Info("topic drained", "messages", count)
				return nil
			}
			return fmt.Errorf("fetching message: %w", err)
		}
		count++
		c.logger.Debug("message received",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
			"value_size", len(msg.Value),
		)
		m := Message{
			Topic:     msg.Topic,
			Partition: msg.Partition,
			Offset:    msg.Offset,
			Key:       msg.Key,
			Value:     msg.Value,
		}
		if err := c.handler(ctx, m); err != nil {
			return err
		}
	}
}

// Close closes the underlying Kafka reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
