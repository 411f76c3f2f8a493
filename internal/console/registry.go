package console

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/khoahotran/personal-site/internal/session"
	"github.com/khoahotran/personal-site/pkg/logger"
)

// TokenStoreFactory returns the token store backing one browser session.
type TokenStoreFactory func(sessionID string) session.TokenStore

// Registry keeps one Console per browser session. Idle consoles expire after
// the session TTL and are closed on eviction; the token store outlives them,
// so a returning browser gets a fresh console with its token.
type Registry struct {
	deps   Deps
	tokens TokenStoreFactory
	log    logger.Logger

	mu       sync.Mutex
	consoles *cache.Cache
	ttl      time.Duration
}

func NewRegistry(d Deps, tokens TokenStoreFactory) *Registry {
	ttl := d.Config.Session.TTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	log := d.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	r := &Registry{
		deps:     d,
		tokens:   tokens,
		log:      log,
		consoles: cache.New(ttl, 10*time.Minute),
		ttl:      ttl,
	}
	r.consoles.OnEvicted(func(id string, v any) {
		if c, ok := v.(*Console); ok {
			c.Close()
			r.log.Debug("console evicted", zap.String("console", id))
		}
	})
	return r
}

// Open returns the console for id, creating it when id is empty or unknown.
// The returned id is the one the caller should keep in its cookie.
func (r *Registry) Open(ctx context.Context, id string) (*Console, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id != "" {
		if v, ok := r.consoles.Get(id); ok {
			r.consoles.Set(id, v, r.ttl)
			return v.(*Console), nil
		}
	}
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	d := r.deps
	d.Tokens = r.tokens(id)
	c, err := New(ctx, id, d)
	if err != nil {
		return nil, err
	}
	r.consoles.Set(id, c, r.ttl)
	r.log.Info("console opened", zap.String("console", id))
	return c, nil
}

func (r *Registry) Get(id string) (*Console, bool) {
	v, ok := r.consoles.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*Console), true
}

// Drop closes and forgets the console, as after a logout.
func (r *Registry) Drop(id string) {
	r.consoles.Delete(id)
}

func (r *Registry) Len() int {
	return r.consoles.ItemCount()
}
