package build

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/emit"
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/observability"
	"git.home.luguber.info/inful/sitebuilder/internal/plan"
)

// Request describes one build.
type Request struct {
	// OutputDir overrides output.directory when set.
	OutputDir string
	// DryRun stops after planning: nothing is emitted and no report is written.
	DryRun bool
	// Trigger records why the build ran (cli, watch, schedule).
	Trigger string
}

// Result is the outcome of a build. Plan is nil when planning failed.
type Result struct {
	Report *Report
	Plan   *plan.Plan
}

// EmitterFactory creates the emitter for an output directory.
type EmitterFactory func(dir string, clean bool) (plan.Emitter, error)

// Service runs builds for one configuration.
type Service struct {
	cfg        *config.Config
	recorder   metrics.Recorder
	observers  []Observer
	newEmitter EmitterFactory
}

// NewService creates a build service writing through the file emitter.
func NewService(cfg *config.Config) *Service {
	return &Service{
		cfg:      cfg,
		recorder: metrics.NoopRecorder{},
		newEmitter: func(dir string, clean bool) (plan.Emitter, error) {
			return emit.NewFileEmitter(dir, clean)
		},
	}
}

// WithRecorder sets the metrics recorder.
func (s *Service) WithRecorder(r metrics.Recorder) *Service {
	if r != nil {
		s.recorder = r
	}
	return s
}

// WithObserver adds a build observer.
func (s *Service) WithObserver(o Observer) *Service {
	s.observers = append(s.observers, o)
	return s
}

// WithEmitterFactory replaces the emitter used for non dry-run builds.
func (s *Service) WithEmitterFactory(f EmitterFactory) *Service {
	s.newEmitter = f
	return s
}

// Config returns the configuration builds run with.
func (s *Service) Config() *config.Config { return s.cfg }

// Pipeline returns the stages a request runs.
func (s *Service) Pipeline(req Request) *Pipeline {
	return NewPipeline().
		Add(StageLoadContent, stageLoadContent).
		Add(StageDeriveFields, stageDeriveFields).
		Add(StagePlan, stagePlan).
		AddIf(!req.DryRun, StageEmit, stageEmit).
		AddIf(!req.DryRun && s.cfg.Build.FeedEnabled(), StageFeed, stageFeed)
}

// Run executes a build. The returned Result always carries the report; err is
// the first fatal stage error.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Trigger == "" {
		req.Trigger = "cli"
	}
	outDir := req.OutputDir
	if outDir == "" {
		outDir = s.cfg.Output.Directory
	}

	report := NewReport(uuid.NewString(), req.Trigger)
	report.OutputDir = outDir
	if len(s.cfg.Content.Sources) > 0 {
		report.ContentRevision = ContentRevision(s.cfg.Content.Sources[0].Path)
	}

	obs := append(multiObserver{LogObserver{BuildID: report.BuildID}, RecorderObserver{Recorder: s.recorder}}, s.observers...)
	st := &State{
		Config:    s.cfg,
		Request:   req,
		OutputDir: outDir,
		Report:    report,
		Recorder:  s.recorder,
		Observer:  obs,
	}

	slog.Info("Build started",
		logfields.BuildID(report.BuildID),
		slog.String("trigger", req.Trigger),
		slog.Bool("dry_run", req.DryRun))

	ctx = observability.WithTrigger(observability.WithBuildID(ctx, report.BuildID), req.Trigger)
	err := s.run(ctx, st, req)

	report.Finish()
	report.DeriveOutcome()
	obs.OnBuildComplete(report)

	if !req.DryRun && st.Emitter != nil {
		if perr := report.Persist(outDir); perr != nil {
			slog.Warn("Failed to persist build report", logfields.Path(outDir), logfields.Error(perr))
		}
	}
	return &Result{Report: report, Plan: st.Plan}, err
}

func (s *Service) run(ctx context.Context, st *State, req Request) error {
	defs := s.Pipeline(req).Build()

	// Planning completes before the emitter exists so a failed plan leaves
	// the output directory untouched.
	split := len(defs)
	for i, d := range defs {
		if d.Name == StageEmit {
			split = i
			break
		}
	}
	if err := RunStages(ctx, st, defs[:split]); err != nil {
		return err
	}
	if split == len(defs) {
		return nil
	}

	em, err := s.newEmitter(st.OutputDir, s.cfg.Output.Clean)
	if err != nil {
		ce := ferrors.WrapError(err, ferrors.CategoryFileSystem, "prepare output directory").
			WithContext("path", st.OutputDir).
			Fatal().
			Build()
		se := NewFatalStageError(StageEmit, ce)
		st.Report.StageErrorKinds[StageEmit] = se.Kind
		st.Report.AddIssue(IssueEmitFailure, StageEmit, SeverityError, se.Error(), false, se)
		return se
	}
	st.Emitter = em
	return RunStages(ctx, st, defs[split:])
}
