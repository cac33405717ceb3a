// metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gatekeeper",
		Subsystem: "privilege_cache",
		Name:      "lookups_total",
		Help:      "Privilege cache lookups by principal kind and result (hit, miss, expired).",
	}, []string{"kind", "result"})

	CacheLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gatekeeper",
		Subsystem: "privilege_cache",
		Name:      "loads_total",
		Help:      "Privilege store loads by principal kind and outcome.",
	}, []string{"kind", "outcome"})

	CacheEvictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gatekeeper",
		Subsystem: "privilege_cache",
		Name:      "evictions_total",
		Help:      "Privilege cache entries removed, by reason (capacity, expired).",
	}, []string{"reason"})

	CacheFlushes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gatekeeper",
		Subsystem: "privilege_cache",
		Name:      "flushes_total",
		Help:      "Tenant-wide privilege cache flushes.",
	})

	TokenEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gatekeeper",
		Subsystem: "access_token",
		Name:      "events_total",
		Help:      "Access token lifecycle events (issued, rejected, invalidated, expired, authenticated).",
	}, []string{"event"})

	Decisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gatekeeper",
		Subsystem: "authorization",
		Name:      "decisions_total",
		Help:      "Authorization decisions by outcome.",
	}, []string{"outcome"})
)
