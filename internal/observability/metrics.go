// Package observability holds the Prometheus collectors shared by the CLI,
// the API server and the worker.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	planGenerations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitplan",
		Subsystem: "plan",
		Name:      "generations_total",
		Help:      "Plan generation attempts by result (ok, api_error, invalid).",
	}, []string{"result"})
	extractions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitplan",
		Name:      "extractions_total",
		Help:      "Generated text extractions by the response shape that matched.",
	}, []string{"shape"})
	storeSaves = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitplan",
		Subsystem: "store",
		Name:      "saves_total",
		Help:      "Full rewrites of a backing file by result.",
	}, []string{"store", "result"})
	storeSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitplan",
		Subsystem: "store",
		Name:      "skipped_lines_total",
		Help:      "Corrupt record lines skipped while loading.",
	}, []string{"store"})
)

func init() {
	prometheus.MustRegister(planGenerations, extractions, storeSaves, storeSkipped)
}

// RecordGeneration counts one plan generation attempt.
func RecordGeneration(result string) {
	planGenerations.WithLabelValues(result).Inc()
}

// RecordExtraction counts which response shape produced the plan text.
func RecordExtraction(shape string) {
	extractions.WithLabelValues(shape).Inc()
}

// RecordStoreSave counts a save of the named store.
func RecordStoreSave(store string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	storeSaves.WithLabelValues(store, result).Inc()
}

// RecordSkippedLine counts a corrupt line dropped on load.
func RecordSkippedLine(store string) {
	storeSkipped.WithLabelValues(store).Inc()
}
