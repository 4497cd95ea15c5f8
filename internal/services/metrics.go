package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PipelineMetrics holds the stage and inference collectors. A nil *PipelineMetrics is valid and
// records nothing.
type PipelineMetrics struct {
	stagesCompleted  *prometheus.CounterVec
	stagesFailed     *prometheus.CounterVec
	stageDuration    *prometheus.HistogramVec
	stagesActive     *prometheus.GaugeVec
	inferenceAttempt *prometheus.CounterVec
	queueRejected    *prometheus.CounterVec
}

func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	factory := promauto.With(reg)
	return &PipelineMetrics{
		stagesCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_stages_completed_total",
			Help: "Total number of assessment stages completed",
		}, []string{"stage"}),
		stagesFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_stages_failed_total",
			Help: "Total number of assessment stages that panicked or errored",
		}, []string{"stage"}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "assessment_stage_duration_seconds",
			Help:    "Duration of assessment stages in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}, []string{"stage"}),
		stagesActive: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "assessment_stages_active",
			Help: "Number of assessment stages currently running",
		}, []string{"stage"}),
		inferenceAttempt: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "inference_attempts_total",
			Help: "Scorer calls by scorer and outcome",
		}, []string{"scorer", "outcome"}),
		queueRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_stage_queue_rejected_total",
			Help: "Stage jobs refused because the worker queue was full",
		}, []string{"stage"}),
	}
}

func (m *PipelineMetrics) StageStarted(stage string) {
	if m == nil {
		return
	}
	m.stagesActive.WithLabelValues(stage).Inc()
}

func (m *PipelineMetrics) StageFinished(stage string, started time.Time, failed bool) {
	if m == nil {
		return
	}
	m.stagesActive.WithLabelValues(stage).Dec()
	m.stageDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
	if failed {
		m.stagesFailed.WithLabelValues(stage).Inc()
		return
	}
	m.stagesCompleted.WithLabelValues(stage).Inc()
}

func (m *PipelineMetrics) ObserveAttempt(scorer, outcome string) {
	if m == nil {
		return
	}
	m.inferenceAttempt.WithLabelValues(scorer, outcome).Inc()
}

func (m *PipelineMetrics) QueueRejected(stage string) {
	if m == nil {
		return
	}
	m.queueRejected.WithLabelValues(stage).Inc()
}
