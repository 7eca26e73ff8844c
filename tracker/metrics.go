package tracker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var trackedCalls = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "redtape_tracker_calls",
	Help: "Number of tracked operation invocations",
}, []string{"op"})

var replaysServed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "redtape_tracker_replays",
	Help: "Number of history replays served",
})
