package persistence

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type card struct {
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
}

func TestMemoryViewCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryViewCache(time.Minute)

	var got []card
	ok, err := c.Get(ctx, "experiences", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	want := []card{{Title: "Engineer", Tags: []string{"go"}}}
	require.NoError(t, c.Set(ctx, "experiences", want))
	require.NoError(t, c.Set(ctx, "posts:feed", "xml"))

	ok, err = c.Get(ctx, "experiences", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)

	require.NoError(t, c.DeletePrefix(ctx, "posts"))
	var feed string
	ok, _ = c.Get(ctx, "posts:feed", &feed)
	assert.False(t, ok)
	ok, _ = c.Get(ctx, "experiences", &got)
	assert.True(t, ok, "other collections survive")
}

func TestLayeredWithoutRedis(t *testing.T) {
	ctx := context.Background()
	l := NewLayeredViewCache(NewMemoryViewCache(time.Minute), nil)

	require.NoError(t, l.Set(ctx, "hero", card{Title: "Khoa"}))
	var got card
	ok, err := l.Get(ctx, "hero", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Khoa", got.Title)

	require.NoError(t, l.DeletePrefix(ctx, "hero"))
	ok, _ = l.Get(ctx, "hero", &got)
	assert.False(t, ok)
}

type RedisIntegrationSuite struct {
	suite.Suite
	rdb *redis.Client
}

func TestRedisIntegration(t *testing.T) {
	if os.Getenv("E2E_TESTS") == "" {
		t.Skip("Skipping Redis integration tests. Set E2E_TESTS=1 to run.")
	}
	suite.Run(t, new(RedisIntegrationSuite))
}

func (s *RedisIntegrationSuite) SetupSuite() {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	s.rdb = redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	s.Require().NoError(s.rdb.Ping(context.Background()).Err())
}

func (s *RedisIntegrationSuite) TearDownSuite() {
	s.rdb.FlushDB(context.Background())
	s.rdb.Close()
}

func (s *RedisIntegrationSuite) TestViewCacheRoundTripAndInvalidate() {
	ctx := context.Background()
	c := NewRedisViewCache(s.rdb, time.Minute)

	s.Require().NoError(c.Set(ctx, "projects", []card{{Title: "Site"}}))
	s.Require().NoError(c.Set(ctx, "projects:featured", []card{}))

	var got []card
	ok, err := c.Get(ctx, "projects", &got)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal("Site", got[0].Title)

	s.Require().NoError(c.DeletePrefix(ctx, "projects"))
	ok, err = c.Get(ctx, "projects", &got)
	s.NoError(err)
	s.False(ok)
}

func (s *RedisIntegrationSuite) TestTokenStore() {
	ctx := context.Background()
	st := NewRedisTokenStore(s.rdb, "sess-1", time.Minute)

	tok, err := st.Load(ctx)
	s.Require().NoError(err)
	s.Empty(tok)

	s.Require().NoError(st.Save(ctx, "jwt"))
	tok, _ = st.Load(ctx)
	s.Equal("jwt", tok)

	s.Require().NoError(st.Clear(ctx))
	tok, _ = st.Load(ctx)
	s.Empty(tok)
}
