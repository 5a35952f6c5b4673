// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)

var (
	LevelOfCare = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_level_of_care_total",
			Help: "Classifications by level of care",
		},
		[]string{"level_of_care"},
	)

	FlagsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_flags_detected_total",
			Help: "Symptom flags raised by the extractor",
		},
		[]string{"flag"},
	)

	LocateDistance = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "triage_locate_distance_km",
			Help:    "Distance to the nearest facility in km",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 50, 100, 250, 500, 1000},
		},
		[]string{"severity"},
	)

	RegistryFacilities = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "triage_registry_facilities",
			Help: "Facilities in the loaded registry snapshot",
		},
	)

	RegistryLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_registry_loads_total",
			Help: "Registry load attempts by source and outcome",
		},
		[]string{"source", "status"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_notifications_total",
			Help: "Dispatch notifications by channel and outcome",
		},
		[]string{"channel", "status"},
	)
)
