package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/gatekeeper/logging"
	"github.com/dev-mohitbeniwal/gatekeeper/metrics"
)

// Start runs the expiry sweep every SweepInterval until ctx ends or Stop is
// called. A zero interval disables the sweep.
func (c *PrivilegeCache) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		if c.cfg.SweepInterval <= 0 {
			close(c.done)
			return
		}
		go c.run(ctx)
	})
}

// Stop ends the sweep started by Start and waits for it to exit.
func (c *PrivilegeCache) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
	c.startOnce.Do(func() { close(c.done) })
	<-c.done
}

func (c *PrivilegeCache) run(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := c.Sweep(); removed > 0 {
				logger.Debug("Swept expired privilege cache entries", zap.Int("removed", removed))
			}
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Sweep removes expired entries and empty tenant shards that no caller is
// using. Each removal holds the entry lock only for that key, so queries are
// never stalled by a sweep.
func (c *PrivilegeCache) Sweep() int {
	c.mu.RLock()
	snapshot := make(map[string]*shard, len(c.shards))
	for tenantID, s := range c.shards {
		snapshot[tenantID] = s
	}
	c.mu.RUnlock()

	now := c.cfg.Now()
	removed := 0
	for tenantID, s := range snapshot {
		removed += sweepEntries(s.groups, now, c.cfg.GroupTTL)
		removed += sweepEntries(s.users, now, c.cfg.UserTTL)

		if s.len() == 0 && s.inUse.Load() == 0 {
			c.mu.Lock()
			if current, ok := c.shards[tenantID]; ok && current == s && s.len() == 0 && s.inUse.Load() == 0 {
				delete(c.shards, tenantID)
			}
			c.mu.Unlock()
		}
	}

	if removed > 0 {
		metrics.CacheEvictions.WithLabelValues("expired").Add(float64(removed))
	}
	return removed
}

func sweepEntries(entries *lru.Cache[string, *entry], now time.Time, ttl time.Duration) int {
	removed := 0
	for _, key := range entries.Keys() {
		e, ok := entries.Peek(key)
		if !ok || now.Sub(e.loadedAt) < ttl {
			continue
		}
		if entries.Remove(key) {
			removed++
		}
	}
	return removed
}
