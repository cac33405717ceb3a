// pdp/cache/privilege_cache.go

package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	gk_errors "github.com/dev-mohitbeniwal/gatekeeper/errors"
	logger "github.com/dev-mohitbeniwal/gatekeeper/logging"
	"github.com/dev-mohitbeniwal/gatekeeper/metrics"
	"github.com/dev-mohitbeniwal/gatekeeper/model"
)

const (
	DefaultTTL             = 5 * time.Minute
	DefaultSweepInterval   = time.Minute
	DefaultMaxGroupEntries = 100
	DefaultMaxUserEntries  = 1000
	DefaultLoadTimeout     = 5 * time.Second
)

// Loader reads privilege grants from the durable store.
type Loader interface {
	LoadGroupPrivileges(ctx context.Context, tenantID, groupID string) ([]model.Grant, error)
	LoadUserPrivileges(ctx context.Context, tenantID, userID string) ([]model.Grant, error)
}

type Config struct {
	GroupTTL        time.Duration
	UserTTL         time.Duration
	SweepInterval   time.Duration
	MaxGroupEntries int
	MaxUserEntries  int
	LoadTimeout     time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

func (c Config) withDefaults() Config {
	if c.GroupTTL <= 0 {
		c.GroupTTL = DefaultTTL
	}
	if c.UserTTL <= 0 {
		c.UserTTL = DefaultTTL
	}
	if c.MaxGroupEntries <= 0 {
		c.MaxGroupEntries = DefaultMaxGroupEntries
	}
	if c.MaxUserEntries <= 0 {
		c.MaxUserEntries = DefaultMaxUserEntries
	}
	if c.LoadTimeout <= 0 {
		c.LoadTimeout = DefaultLoadTimeout
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

type entry struct {
	index    model.PrivilegeIndex
	loadedAt time.Time
}

// shard holds one tenant's entries. A flush replaces the shard, and the
// generation keeps loads started against the old shard from being shared
// with callers that arrive after the flush. A sweep never drops a shard
// while callers are still using it.
type shard struct {
	generation uint64
	groups     *lru.Cache[string, *entry]
	users      *lru.Cache[string, *entry]
	inUse      atomic.Int64
}

func (s *shard) entries(kind model.PrincipalKind) *lru.Cache[string, *entry] {
	if kind == model.PrincipalGroup {
		return s.groups
	}
	return s.users
}

func (s *shard) len() int {
	return s.groups.Len() + s.users.Len()
}

// PrivilegeCache answers privilege queries per (tenant, principal) from
// memory, filling itself from the Loader on a miss.
type PrivilegeCache struct {
	loader Loader
	cfg    Config

	mu          sync.RWMutex
	shards      map[string]*shard
	generations atomic.Uint64

	loads singleflight.Group

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

func NewPrivilegeCache(loader Loader, cfg Config) *PrivilegeCache {
	return &PrivilegeCache{
		loader: loader,
		cfg:    cfg.withDefaults(),
		shards: make(map[string]*shard),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// HasPrivilege reports whether the principal holds key on dataID. A cold
// (tenant, principal) pair is loaded synchronously before answering. An
// error means the answer is unknown and the request must fail.
func (c *PrivilegeCache) HasPrivilege(ctx context.Context, tenantID string, principal model.Principal, key, dataID string) (bool, error) {
	index, err := c.index(ctx, tenantID, principal)
	if err != nil {
		return false, err
	}
	return index.Contains(key, dataID), nil
}

// Load repopulates the entry for the principal regardless of its age.
func (c *PrivilegeCache) Load(ctx context.Context, tenantID string, principal model.Principal) error {
	if err := validate(tenantID, principal); err != nil {
		return err
	}
	s := c.acquire(tenantID)
	_, err := c.fill(ctx, tenantID, s, principal)
	return err
}

// Flush drops every cached entry of the tenant. Queries issued after Flush
// returns always load fresh data.
func (c *PrivilegeCache) Flush(tenantID string) {
	c.mu.Lock()
	delete(c.shards, tenantID)
	c.mu.Unlock()

	metrics.CacheFlushes.Inc()
	logger.Debug("Privilege cache flushed", zap.String("tenantID", tenantID))
}

// Len returns the number of cached entries for the tenant.
func (c *PrivilegeCache) Len(tenantID string) int {
	c.mu.RLock()
	s, ok := c.shards[tenantID]
	c.mu.RUnlock()
	if !ok {
		return 0
	}
	return s.len()
}

func validate(tenantID string, principal model.Principal) error {
	if tenantID == "" {
		return gk_errors.ErrTenantRequired
	}
	if principal.ID == "" {
		return gk_errors.ErrPrincipalRequired
	}
	return nil
}

func (c *PrivilegeCache) ttl(kind model.PrincipalKind) time.Duration {
	if kind == model.PrincipalGroup {
		return c.cfg.GroupTTL
	}
	return c.cfg.UserTTL
}

// acquire returns the tenant's shard, creating it if needed, and marks it in
// use. The mark is taken under the shard map lock, so Sweep cannot drop the
// shard in between. Every acquire is paired with a release.
func (c *PrivilegeCache) acquire(tenantID string) *shard {
	c.mu.RLock()
	s, ok := c.shards[tenantID]
	if ok {
		s.inUse.Add(1)
	}
	c.mu.RUnlock()
	if ok {
		return s
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok = c.shards[tenantID]; !ok {
		s = c.newShard()
		c.shards[tenantID] = s
	}
	s.inUse.Add(1)
	return s
}

func (s *shard) release() {
	s.inUse.Add(-1)
}

func (c *PrivilegeCache) newShard() *shard {
	// lru.New only fails for non-positive sizes, which withDefaults rules out.
	groups, _ := lru.New[string, *entry](c.cfg.MaxGroupEntries)
	users, _ := lru.New[string, *entry](c.cfg.MaxUserEntries)
	return &shard{
		generation: c.generations.Add(1),
		groups:     groups,
		users:      users,
	}
}

func (c *PrivilegeCache) index(ctx context.Context, tenantID string, principal model.Principal) (model.PrivilegeIndex, error) {
	if err := validate(tenantID, principal); err != nil {
		return nil, err
	}

	s := c.acquire(tenantID)
	kind := principal.Kind.String()
	if e, ok := s.entries(principal.Kind).Get(principal.ID); ok {
		if c.cfg.Now().Sub(e.loadedAt) < c.ttl(principal.Kind) {
			s.release()
			metrics.CacheLookups.WithLabelValues(kind, "hit").Inc()
			return e.index, nil
		}
		metrics.CacheLookups.WithLabelValues(kind, "expired").Inc()
	} else {
		metrics.CacheLookups.WithLabelValues(kind, "miss").Inc()
	}

	return c.fill(ctx, tenantID, s, principal)
}

// fill loads the principal's grants into s and releases the caller's hold on
// s once the shared load has finished. Concurrent fills of the same key share
// one store call; the caller may stop waiting when ctx ends while the load
// itself runs on under LoadTimeout.
func (c *PrivilegeCache) fill(ctx context.Context, tenantID string, s *shard, principal model.Principal) (model.PrivilegeIndex, error) {
	key := fmt.Sprintf("%d/%s/%s", s.generation, principal.Kind, principal.ID)

	ch := c.loads.DoChan(key, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.LoadTimeout)
		defer cancel()

		start := time.Now()
		grants, err := c.load(loadCtx, tenantID, principal)
		if err != nil {
			metrics.CacheLoads.WithLabelValues(principal.Kind.String(), "error").Inc()
			logger.Error("Failed to load privileges",
				zap.Error(err),
				zap.String("tenantID", tenantID),
				zap.Stringer("principal", principal))
			return nil, fmt.Errorf("%w: loading %s privileges: %w", gk_errors.ErrStoreUnavailable, principal.Kind, err)
		}

		index := model.NewPrivilegeIndex(grants)
		if s.entries(principal.Kind).Add(principal.ID, &entry{index: index, loadedAt: c.cfg.Now()}) {
			metrics.CacheEvictions.WithLabelValues("capacity").Inc()
		}
		metrics.CacheLoads.WithLabelValues(principal.Kind.String(), "ok").Inc()
		logger.Debug("Privileges loaded",
			zap.String("tenantID", tenantID),
			zap.Stringer("principal", principal),
			zap.Int("grants", index.Size()),
			zap.Duration("duration", time.Since(start)))
		return index, nil
	})

	select {
	case res := <-ch:
		s.release()
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(model.PrivilegeIndex), nil
	case <-ctx.Done():
		go func() {
			<-ch
			s.release()
		}()
		return nil, ctx.Err()
	}
}

func (c *PrivilegeCache) load(ctx context.Context, tenantID string, principal model.Principal) ([]model.Grant, error) {
	switch principal.Kind {
	case model.PrincipalGroup:
		return c.loader.LoadGroupPrivileges(ctx, tenantID, principal.ID)
	case model.PrincipalUser:
		return c.loader.LoadUserPrivileges(ctx, tenantID, principal.ID)
	default:
		return nil, fmt.Errorf("unsupported principal kind %s", principal.Kind)
	}
}
