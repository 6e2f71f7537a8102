// Package metrics exposes Prometheus counters and gauges for the
// pipeline's per-stage outcomes: how many records each stage decoded,
// dropped, flagged, or emitted.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "ajoaikadata"

var (
	MessagesDecodedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_decoded_total",
		Help:      "Total EKE messages successfully decoded, by msg_type.",
	}, []string{"msg_type"})

	MessagesDecodeErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_decode_errors_total",
		Help:      "Total raw rows dropped due to a decode failure.",
	})

	MessagesDedupedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_deduped_total",
		Help:      "Total decoded messages suppressed as exact duplicates.",
	})

	MessagesDiscardedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_discarded_total",
		Help:      "Total messages flagged discard by the reorder stage.",
	})

	MessagesIncompleteTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_incomplete_total",
		Help:      "Total balise telegrams released incomplete (unpaired half or unresolved direction).",
	})

	EventsEmittedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_emitted_total",
		Help:      "Total events emitted by the event detector, by event_type.",
	}, []string{"event_type"})

	StationEventsEmittedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "station_events_emitted_total",
		Help:      "Total station-visit records emitted by the station aggregator.",
	})

	StagingMergeErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "staging_merge_errors_total",
		Help:      "Total staging copy/merge failures, by target table.",
	}, []string{"target"})
)

func init() {
	prometheus.MustRegister(
		MessagesDecodedTotal,
		MessagesDecodeErrorsTotal,
		MessagesDedupedTotal,
		MessagesDiscardedTotal,
		MessagesIncompleteTotal,
		EventsEmittedTotal,
		StationEventsEmittedTotal,
		StagingMergeErrorsTotal,
	)
}
