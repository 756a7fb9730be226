package sheetsync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// rowsSynced counts successful data-row writes by mode (append/update).
	rowsSynced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registration_rows_synced_total",
			Help: "Successful registration row writes to the sheet sink",
		},
		[]string{"mode"},
	)

	// syncFailures counts failed sink operations by stage.
	syncFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registration_sync_failures_total",
			Help: "Failed sink operations",
		},
		[]string{"stage"},
	)

	// watcherRestarts counts change-feed supervisor restarts.
	watcherRestarts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "change_feed_restarts_total",
			Help: "Change feed watcher restarts after transport failures",
		},
		[]string{"watcher"},
	)

	// resyncRuns counts event-scoped resyncs by result.
	resyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_resync_runs_total",
			Help: "Event-scoped sheet rebuilds",
		},
		[]string{"result"},
	)
)
