package llm

import (
	"context"
	"encoding/json"

	"github.com/dshills/sherpa/internal/cache"
)

// Cached wraps a Client with the on-disk response cache. Only successful
// responses are stored.
type Cached struct {
	next  Client
	store *cache.Cache
}

// NewCached returns next unchanged when the cache is nil or disabled.
func NewCached(next Client, store *cache.Cache) Client {
	if store == nil || !store.Enabled() {
		return next
	}
	return &Cached{next: next, store: store}
}

func (c *Cached) Name() string  { return c.next.Name() }
func (c *Cached) Model() string { return c.next.Model() }

func (c *Cached) Complete(ctx context.Context, prompt string) (string, error) {
	key := cache.BuildCacheKey(c.next.Name(), c.next.Model(), "complete:"+prompt)
	return c.lookup(key, func() (string, error) {
		return c.next.Complete(ctx, prompt)
	})
}

func (c *Cached) Chat(ctx context.Context, messages []Message) (string, error) {
	payload, err := json.Marshal(messages)
	if err != nil {
		return c.next.Chat(ctx, messages)
	}
	key := cache.BuildCacheKey(c.next.Name(), c.next.Model(), "chat:"+string(payload))
	return c.lookup(key, func() (string, error) {
		return c.next.Chat(ctx, messages)
	})
}

func (c *Cached) lookup(key string, fetch func() (string, error)) (string, error) {
	if v, ok := c.store.Get(key); ok {
		return v, nil
	}
	v, err := fetch()
	if err != nil {
		return "", err
	}
	_ = c.store.Put(key, v) // write failures are not fatal
	return v, nil
}
