package metrics

import (
    "sync"

    "github.com/prometheus/client_golang/prometheus"
)

var (
    once sync.Once

    StudyStageLatency = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: "macropull",
            Subsystem: "study",
            Name:      "stage_latency_seconds",
            Help:      "Latency of study pipeline stages",
            Buckets:   prometheus.DefBuckets,
        },
        []string{"stage"},
    )

    StudyErrors = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "macropull",
            Subsystem: "study",
            Name:      "errors_total",
            Help:      "Errors by study pipeline stage",
        },
        []string{"stage"},
    )

    StudyRuns = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "macropull",
            Subsystem: "study",
            Name:      "runs_total",
            Help:      "Completed pipeline runs by outcome",
        },
        []string{"outcome"},
    )
)

func Register() {
    once.Do(func() {
        prometheus.MustRegister(StudyStageLatency, StudyErrors, StudyRuns)
    })
}
