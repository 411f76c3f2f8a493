package event

import (
	"context"
	"errors"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/khoahotran/personal-site/internal/config"
	"github.com/khoahotran/personal-site/internal/domain"
	"github.com/khoahotran/personal-site/pkg/logger"
)

// ChangeHandler reacts to one content change. A returned error leaves the
// message uncommitted so the group redelivers it after a restart.
type ChangeHandler func(ctx context.Context, change domain.ContentChange) error

type ContentChangeConsumer struct {
	reader *kafka.Reader
	log    logger.Logger
}

func NewContentChangeConsumer(cfg config.Config, log logger.Logger) *ContentChangeConsumer {
	topic := cfg.Kafka.ContentTopic
	if topic == "" {
		topic = DefaultContentTopic
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    topic,
		GroupID:  cfg.Kafka.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &ContentChangeConsumer{reader: reader, log: log.With(zap.String("topic", topic))}
}

// Run consumes until ctx is cancelled.
func (c *ContentChangeConsumer) Run(ctx context.Context, handle ChangeHandler) error {
	c.log.Info("Worker listening for content changes")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			c.log.Error("Failed to read message from Kafka", err)
			continue
		}

		change, err := DecodeContentChange(msg)
		if err != nil {
			c.log.Warn("Failed to decode content change, skipping", zap.String("key", string(msg.Key)), zap.Error(err))
			c.commit(ctx, msg)
			continue
		}

		if err := handle(ctx, change); err != nil {
			c.log.Error("Failed to process content change", err,
				zap.String("collection", change.Collection),
				zap.String("action", string(change.Action)),
			)
			continue
		}
		c.commit(ctx, msg)
	}
}

func (c *ContentChangeConsumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.log.Error("Failed to commit message", err, zap.Int64("offset", msg.Offset))
	}
}

func (c *ContentChangeConsumer) Close() error {
	return c.reader.Close()
}
