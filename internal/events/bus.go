package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Publisher publishes domain events to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, data any) error
}

// Config selects the transport. An empty broker list keeps events in process.
type Config struct {
	KafkaBrokers  []string
	ConsumerGroup string
}

// Bus is a watermill publisher/subscriber pair.
type Bus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     watermill.LoggerAdapter
}

// NewBus builds a Kafka-backed bus when brokers are configured, otherwise an
// in-memory gochannel bus.
func NewBus(cfg Config, logger watermill.LoggerAdapter) (*Bus, error) {
	if len(cfg.KafkaBrokers) == 0 {
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, logger)
		return &Bus{publisher: ch, subscriber: ch, logger: logger}, nil
	}

	pub, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   cfg.KafkaBrokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create kafka publisher: %w", err)
	}

	sub, err := kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:               cfg.KafkaBrokers,
		Unmarshaler:           kafka.DefaultMarshaler{},
		ConsumerGroup:         cfg.ConsumerGroup,
		OverwriteSaramaConfig: kafka.DefaultSaramaSubscriberConfig(),
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, fmt.Errorf("create kafka subscriber: %w", err)
	}

	return &Bus{publisher: pub, subscriber: sub, logger: logger}, nil
}

// Publish wraps data in an Envelope and publishes it on topic.
func (b *Bus) Publish(ctx context.Context, topic string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}

	env := Envelope{
		ID:        watermill.NewUUID(),
		Type:      topic,
		Timestamp: time.Now().UTC(),
		Source:    source,
		Data:      raw,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	msg := message.NewMessage(env.ID, payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", topic)
	msg.Metadata.Set("source", source)

	if err := b.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Subscriber exposes the subscribing side for router handlers.
func (b *Bus) Subscriber() message.Subscriber {
	return b.subscriber
}

// Logger returns the watermill logger the bus was built with.
func (b *Bus) Logger() watermill.LoggerAdapter {
	return b.logger
}

// Close closes both sides of the bus.
func (b *Bus) Close() error {
	pubErr := b.publisher.Close()
	if b.subscriber != nil && any(b.subscriber) != any(b.publisher) {
		if err := b.subscriber.Close(); err != nil {
			return err
		}
	}
	return pubErr
}
