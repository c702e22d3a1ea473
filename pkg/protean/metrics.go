package protean

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dispatchHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "protean",
		Subsystem: "dispatch",
		Name:      "cache_hits_total",
		Help:      "Dispatches served from the method cache.",
	}, []string{"protocol"})

	dispatchMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "protean",
		Subsystem: "dispatch",
		Name:      "cache_misses_total",
		Help:      "Dispatches that fell through to full resolution.",
	}, []string{"protocol"})

	resolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "protean",
		Subsystem: "dispatch",
		Name:      "resolutions_total",
		Help:      "Successful implementation resolutions.",
	}, []string{"protocol"})

	cachePromotions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "protean",
		Subsystem: "cache",
		Name:      "promotions_total",
		Help:      "Method caches promoted to the packed representation.",
	}, []string{"protocol"})

	cacheRebuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "protean",
		Subsystem: "cache",
		Name:      "rebuilds_total",
		Help:      "Wholesale cache invalidations triggered by Extend.",
	}, []string{"protocol"})

	ambiguousPicks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "protean",
		Subsystem: "resolve",
		Name:      "ambiguous_preference_total",
		Help:      "Resolutions that picked between mutually unrelated candidates.",
	}, []string{"protocol"})
)

// stats mirrors the prometheus counters with in-process atomics so
// Runtime.Stats works without scraping a registry.
type stats struct {
	hits        atomic.Uint64
	misses      atomic.Uint64
	resolutions atomic.Uint64
	promotions  atomic.Uint64
	rebuilds    atomic.Uint64
	ambiguities atomic.Uint64
}

func (s *stats) hit(protocol string) {
	s.hits.Add(1)
	dispatchHits.WithLabelValues(protocol).Inc()
}

func (s *stats) miss(protocol string) {
	s.misses.Add(1)
	dispatchMisses.WithLabelValues(protocol).Inc()
}

func (s *stats) resolution(protocol string) {
	s.resolutions.Add(1)
	resolutionsTotal.WithLabelValues(protocol).Inc()
}

func (s *stats) promotion(protocol string) {
	s.promotions.Add(1)
	cachePromotions.WithLabelValues(protocol).Inc()
}

func (s *stats) rebuild(protocol string) {
	s.rebuilds.Add(1)
	cacheRebuilds.WithLabelValues(protocol).Inc()
}

func (s *stats) ambiguous(protocol string) {
	s.ambiguities.Add(1)
	ambiguousPicks.WithLabelValues(protocol).Inc()
}

// Stats is a point-in-time snapshot of the runtime's dispatch counters.
type Stats struct {
	CacheHits            uint64
	CacheMisses          uint64
	Resolutions          uint64
	CachePromotions      uint64
	CacheRebuilds        uint64
	AmbiguousPreferences uint64
}

// Stats returns the runtime's dispatch counters.
func (rt *Runtime) Stats() Stats {
	return Stats{
		CacheHits:            rt.stats.hits.Load(),
		CacheMisses:          rt.stats.misses.Load(),
		Resolutions:          rt.stats.resolutions.Load(),
		CachePromotions:      rt.stats.promotions.Load(),
		CacheRebuilds:        rt.stats.rebuilds.Load(),
		AmbiguousPreferences: rt.stats.ambiguities.Load(),
	}
}
