package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload any) error
	Close() error
}

var ErrUnknownTopic = errors.New("unknown topic")

// batchTimeout bounds how long a synchronous write waits for more messages
// to join its batch. kafka-go defaults to one second.
const batchTimeout = 10 * time.Millisecond

type KafkaPublisher struct {
	writers map[string]*kafka.Writer
}

// NewKafkaPublisher keeps one writer per topic.
func NewKafkaPublisher(brokers []string, topics ...string) *KafkaPublisher {
	writers := make(map[string]*kafka.Writer, len(topics))
	for _, t := range topics {
		writers[t] = &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  t,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
			WriteTimeout:           5 * time.Second,
			BatchTimeout:           batchTimeout,
		}
	}
	return &KafkaPublisher{writers: writers}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic, key string, payload any) error {
	w, ok := p.writers[topic]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("kafka: marshal %s: %w", topic, err)
	}
	if err := w.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: data, Time: time.Now().UTC()}); err != nil {
		return fmt.Errorf("kafka: write %s: %w", topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	var errs []error
	for _, w := range p.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Noop drops every event. Used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(context.Context, string, string, any) error { return nil }
func (Noop) Close() error                                       { return nil }
