package build

import (
	"log/slog"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
)

// Observer receives callbacks around stage execution and build lifecycle.
type Observer interface {
	OnStageStart(stage StageName)
	OnStageComplete(stage StageName, duration time.Duration, result StageResult)
	OnBuildComplete(report *Report)
}

// NoopObserver is a no-op implementation.
type NoopObserver struct{}

func (NoopObserver) OnStageStart(StageName)                                {}
func (NoopObserver) OnStageComplete(StageName, time.Duration, StageResult) {}
func (NoopObserver) OnBuildComplete(*Report)                               {}

// RecorderObserver adapts metrics.Recorder into an Observer.
type RecorderObserver struct{ Recorder metrics.Recorder }

func (r RecorderObserver) OnStageStart(StageName) {}

func (r RecorderObserver) OnStageComplete(stage StageName, d time.Duration, _ StageResult) {
	if r.Recorder != nil {
		r.Recorder.ObserveStageDuration(string(stage), d)
	}
}

func (r RecorderObserver) OnBuildComplete(report *Report) {
	if r.Recorder == nil {
		return
	}
	r.Recorder.ObserveBuildDuration(report.Duration())
	r.Recorder.IncBuildOutcome(metrics.BuildOutcomeLabel(report.Outcome))
	for category, n := range report.Nodes {
		r.Recorder.SetContentNodes(category, n)
	}
	r.Recorder.SetPlannedPages("detail", report.DetailPages)
	r.Recorder.SetPlannedPages("listing", report.ListingPages)
	r.Recorder.SetRedirects(report.Redirects)
}

// LogObserver logs stage transitions with slog.
type LogObserver struct{ BuildID string }

func (l LogObserver) OnStageStart(stage StageName) {
	slog.Debug("Stage started", logfields.BuildID(l.BuildID), logfields.Stage(string(stage)))
}

func (l LogObserver) OnStageComplete(stage StageName, d time.Duration, result StageResult) {
	slog.Debug("Stage complete",
		logfields.BuildID(l.BuildID),
		logfields.Stage(string(stage)),
		logfields.DurationMS(float64(d.Microseconds())/1000),
		slog.String("result", string(result)))
}

func (l LogObserver) OnBuildComplete(report *Report) {
	slog.Info("Build complete",
		logfields.BuildID(report.BuildID),
		slog.String("outcome", string(report.Outcome)),
		logfields.Pages(report.DetailPages+report.ListingPages),
		logfields.Redirects(report.Redirects),
		logfields.DurationMS(float64(report.Duration().Microseconds())/1000))
}

// multiObserver fans callbacks out in order.
type multiObserver []Observer

func (m multiObserver) OnStageStart(stage StageName) {
	for _, o := range m {
		o.OnStageStart(stage)
	}
}

func (m multiObserver) OnStageComplete(stage StageName, d time.Duration, result StageResult) {
	for _, o := range m {
		o.OnStageComplete(stage, d, result)
	}
}

func (m multiObserver) OnBuildComplete(report *Report) {
	for _, o := range m {
		o.OnBuildComplete(report)
	}
}
