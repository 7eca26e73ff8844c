package webcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var cacheHits = promauto.NewCounter(prometheus.CounterOpts{
	Name: "redtape_webcache_hits",
	Help: "Number of page requests served from cache",
})

var cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
	Name: "redtape_webcache_misses",
	Help: "Number of page requests requiring a fresh fetch",
})

var fetchErrors = promauto.NewCounter(prometheus.CounterOpts{
	Name: "redtape_webcache_fetch_errors",
	Help: "Number of fetch attempts that failed",
})
