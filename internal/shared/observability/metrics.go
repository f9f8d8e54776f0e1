package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ResolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "implementor_resolve_seconds",
		Help:    "Time spent resolving the outstanding methods of one source unit.",
		Buckets: prometheus.DefBuckets,
	})

	OutstandingMethods = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "implementor_outstanding_methods",
		Help:    "Number of outstanding methods found per resolution.",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
	})

	AncestorsLocated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "implementor_ancestors_located_total",
		Help: "Ancestor files located, by autoload strategy.",
	}, []string{"strategy"})

	AncestorsUnresolved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "implementor_ancestors_unresolved_total",
		Help: "Ancestors skipped because no backing file could be located.",
	})

	HierarchyCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "implementor_hierarchy_cycles_total",
		Help: "Ancestor references skipped because they were already on the walk path.",
	})

	AutoloadRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "implementor_autoload_refresh_total",
		Help: "Autoload table refreshes, by result.",
	}, []string{"result"})

	AutoloadRefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "implementor_autoload_refresh_seconds",
		Help:    "Time spent rebuilding the autoload table.",
		Buckets: prometheus.DefBuckets,
	})

	AutoloadEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "implementor_autoload_entries",
		Help: "Entries in the active autoload table, by kind.",
	}, []string{"kind"})

	ManifestErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "implementor_manifest_errors_total",
		Help: "Package manifests that could not be read or parsed.",
	})

	ConfigReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "implementor_config_reloads_total",
		Help: "Configuration reloads triggered by file changes, by result.",
	}, []string{"result"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "implementor_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)
