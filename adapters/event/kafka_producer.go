package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/khoahotran/personal-site/internal/config"
	"github.com/khoahotran/personal-site/internal/domain"
	"github.com/khoahotran/personal-site/pkg/logger"
)

const DefaultContentTopic = "content_changed"

type KafkaProducerClient struct {
	ContentWriter *kafka.Writer
	log           logger.Logger
}

func NewKafkaProducerClient(cfg config.Config, log logger.Logger) (*KafkaProducerClient, error) {
	brokers := cfg.Kafka.Brokers
	if len(brokers) == 0 {
		return nil, fmt.Errorf("config Kafka brokers not found")
	}
	topic := cfg.Kafka.ContentTopic
	if topic == "" {
		topic = DefaultContentTopic
	}

	// writer 'content_changed', keyed by collection so one collection stays ordered
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}

	log.Info("Initialize Kafka Producer successfully.", zap.String("topic", topic), zap.Strings("brokers", brokers))
	return &KafkaProducerClient{ContentWriter: writer, log: log}, nil
}

// PublishContentChange writes one change event. Callers treat failures as
// non-fatal: the public cache still expires on its own TTL.
func (c *KafkaProducerClient) PublishContentChange(ctx context.Context, change domain.ContentChange) error {
	msg, err := EncodeContentChange(change)
	if err != nil {
		return err
	}
	if err := c.ContentWriter.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s %s: %w", change.Collection, change.Action, err)
	}
	c.log.Debug("content change published",
		zap.String("collection", change.Collection),
		zap.String("action", string(change.Action)),
		zap.Strings("ids", change.IDs),
	)
	return nil
}

func (c *KafkaProducerClient) Close() {
	if c.ContentWriter != nil {
		if err := c.ContentWriter.Close(); err != nil {
			c.log.Warn("closing Kafka writer", zap.Error(err))
		}
	}
	c.log.Info("Closed Kafka Producer")
}

func EncodeContentChange(change domain.ContentChange) (kafka.Message, error) {
	value, err := json.Marshal(change)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(change.Collection),
		Value: value,
		Time:  change.At,
	}, nil
}

func DecodeContentChange(msg kafka.Message) (domain.ContentChange, error) {
	var change domain.ContentChange
	if err := json.Unmarshal(msg.Value, &change); err != nil {
		return change, err
	}
	if change.Collection == "" {
		change.Collection = string(msg.Key)
	}
	if change.Collection == "" {
		return change, fmt.Errorf("content change without collection")
	}
	return change, nil
}
