package siteconfig

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/counselcms/server/internal/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Cache memoizes the configuration document. Concurrent loads after a miss
// share a single repository call. A ttl of zero keeps the value until
// Invalidate is called.
type Cache struct {
	repo Repository
	ttl  time.Duration
	now  func() time.Time

	group singleflight.Group

	mu       sync.RWMutex
	value    *SiteConfig
	loadedAt time.Time
	gen      uint64
}

func NewCache(repo Repository, ttl time.Duration) *Cache {
	return &Cache{repo: repo, ttl: ttl, now: time.Now}
}

// Get returns the cached configuration, loading it on first use. A missing
// document yields Default(). The returned value is a copy.
func (c *Cache) Get(ctx context.Context) (SiteConfig, error) {
	if cfg, ok := c.cached(); ok {
		metrics.ConfigCacheLookups.WithLabelValues("hit").Inc()
		return cfg, nil
	}
	metrics.ConfigCacheLookups.WithLabelValues("miss").Inc()

	v, err, _ := c.group.Do("site-config", func() (any, error) {
		if cfg, ok := c.cached(); ok {
			return cfg, nil
		}
		c.mu.RLock()
		gen := c.gen
		c.mu.RUnlock()

		loaded, err := c.load(context.WithoutCancel(ctx))
		if err != nil {
			return SiteConfig{}, err
		}

		c.mu.Lock()
		// An Invalidate during the load means the loaded value may be stale.
		if c.gen == gen {
			c.value = &loaded
			c.loadedAt = c.now()
		}
		c.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return SiteConfig{}, err
	}
	return clone(v.(SiteConfig)), nil
}

// Invalidate drops the cached value so the next Get reloads it.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.value = nil
	c.gen++
	c.mu.Unlock()
	c.group.Forget("site-config")
}

func (c *Cache) cached() (SiteConfig, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.value == nil {
		return SiteConfig{}, false
	}
	if c.ttl > 0 && c.now().Sub(c.loadedAt) >= c.ttl {
		return SiteConfig{}, false
	}
	return clone(*c.value), true
}

func (c *Cache) load(ctx context.Context) (SiteConfig, error) {
	cfg, err := c.repo.Get(ctx)
	if errors.Is(err, ErrNotFound) {
		zerolog.Ctx(ctx).Debug().Msg("site configuration missing, using defaults")
		return Default(), nil
	}
	if err != nil {
		return SiteConfig{}, err
	}
	return *cfg, nil
}

func clone(cfg SiteConfig) SiteConfig {
	out := cfg
	out.Navigation = cloneNav(cfg.Navigation)
	out.Social = append([]SocialLink(nil), cfg.Social...)
	out.Contact.OfficeHours = append([]string(nil), cfg.Contact.OfficeHours...)
	return out
}

func cloneNav(items []NavItem) []NavItem {
	if items == nil {
		return nil
	}
	out := make([]NavItem, len(items))
	for i, item := range items {
		out[i] = item
		out[i].Children = cloneNav(item.Children)
	}
	return out
}
