package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "sitebuilder"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration *prom.HistogramVec
	buildDuration prom.Histogram
	stageResults  *prom.CounterVec
	buildOutcome  *prom.CounterVec
	contentNodes  *prom.GaugeVec
	plannedPages  *prom.GaugeVec
	redirects     prom.Gauge
	triggers      *prom.CounterVec
}

// NewPrometheusRecorder constructs the metrics and registers them on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
		contentNodes: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "content_nodes",
			Help:      "Published content nodes by category in the last build",
		}, []string{"category"}),
		plannedPages: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "planned_pages",
			Help:      "Pages planned in the last build by kind",
		}, []string{"kind"}),
		redirects: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "redirects",
			Help:      "Redirects planned in the last build",
		}),
		triggers: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_triggers_total",
			Help:      "Builds requested by trigger reason",
		}, []string{"reason"}),
	}
	reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.stageResults, pr.buildOutcome,
		pr.contentNodes, pr.plannedPages, pr.redirects, pr.triggers)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) {
	if p == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) SetContentNodes(category string, n int) {
	if p == nil {
		return
	}
	p.contentNodes.WithLabelValues(category).Set(float64(n))
}

func (p *PrometheusRecorder) SetPlannedPages(kind string, n int) {
	if p == nil {
		return
	}
	p.plannedPages.WithLabelValues(kind).Set(float64(n))
}

func (p *PrometheusRecorder) SetRedirects(n int) {
	if p == nil {
		return
	}
	p.redirects.Set(float64(n))
}

func (p *PrometheusRecorder) IncBuildTrigger(reason string) {
	if p == nil {
		return
	}
	p.triggers.WithLabelValues(reason).Inc()
}
