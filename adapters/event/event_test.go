package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoahotran/personal-site/internal/config"
	"github.com/khoahotran/personal-site/internal/domain"
	"github.com/khoahotran/personal-site/pkg/logger"
)

func TestContentChangeCodec(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	in := domain.ContentChange{
		Collection: domain.CollectionPosts,
		Action:     domain.ActionPublished,
		IDs:        []string{"p1", "p2"},
		At:         at,
	}

	msg, err := EncodeContentChange(in)
	require.NoError(t, err)
	assert.Equal(t, "posts", string(msg.Key))
	assert.Equal(t, at, msg.Time)

	out, err := DecodeContentChange(msg)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeContentChange(t *testing.T) {
	change, err := DecodeContentChange(kafka.Message{Key: []byte("projects"), Value: []byte(`{"action":"deleted"}`)})
	require.NoError(t, err)
	assert.Equal(t, "projects", change.Collection, "collection falls back to the message key")

	_, err = DecodeContentChange(kafka.Message{Value: []byte(`{"action":"deleted"}`)})
	assert.Error(t, err)

	_, err = DecodeContentChange(kafka.Message{Value: []byte(`not json`)})
	assert.Error(t, err)
}

func TestProducerNeedsBrokers(t *testing.T) {
	_, err := NewKafkaProducerClient(config.Config{}, logger.NewNopLogger())
	assert.Error(t, err)

	var cfg config.Config
	cfg.Kafka.Brokers = []string{"localhost:9092"}
	p, err := NewKafkaProducerClient(cfg, logger.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, DefaultContentTopic, p.ContentWriter.Topic)
	p.Close()
}

func TestFanoutJoinsErrors(t *testing.T) {
	var seen []string
	ok := PublisherFunc(func(_ context.Context, c domain.ContentChange) error {
		seen = append(seen, c.Collection)
		return nil
	})
	boom := errors.New("broker down")
	failing := PublisherFunc(func(context.Context, domain.ContentChange) error { return boom })

	err := Fanout{failing, nil, ok}.PublishContentChange(context.Background(), domain.ContentChange{Collection: "posts"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"posts"}, seen, "later publishers still run")
}
