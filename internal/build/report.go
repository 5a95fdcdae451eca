package build

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/version"
)

// ReportFile is the name of the persisted JSON report.
const ReportFile = "build-report.json"

// Outcome is the typed enumeration of final build result states.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeWarning  Outcome = "warning"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// IssueCode enumerates machine-parseable issue identifiers. Codes are only
// ever appended.
type IssueCode string

const (
	IssueContentLoad       IssueCode = "CONTENT_LOAD"
	IssueEmptyContentSet   IssueCode = "EMPTY_CONTENT_SET"
	IssueSlugCollision     IssueCode = "SLUG_COLLISION"
	IssueRedirectConflict  IssueCode = "REDIRECT_CONFLICT"
	IssueEmitFailure       IssueCode = "EMIT_FAILURE"
	IssueFeedFailure       IssueCode = "FEED_FAILURE"
	IssueCanceled          IssueCode = "BUILD_CANCELED"
	IssueGenericStageError IssueCode = "GENERIC_STAGE_ERROR"
)

// IssueSeverity represents normalized severity levels.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a structured entry describing a discrete problem encountered.
type Issue struct {
	Code      IssueCode     `json:"code"`
	Stage     StageName     `json:"stage"`
	Severity  IssueSeverity `json:"severity"`
	Message   string        `json:"message"`
	Transient bool          `json:"transient"`
}

// StageCount aggregates counts of outcomes for a stage.
type StageCount struct {
	Success  int `json:"success"`
	Warning  int `json:"warning"`
	Fatal    int `json:"fatal"`
	Canceled int `json:"canceled"`
}

// Report captures the result of one build.
type Report struct {
	SchemaVersion   int
	BuildID         string
	Trigger         string
	ContentRevision string
	Start           time.Time
	End             time.Time
	Errors          []error
	Warnings        []error
	StageDurations  map[string]time.Duration
	StageErrorKinds map[StageName]StageErrorKind
	StageCounts     map[StageName]StageCount
	Outcome         Outcome
	Issues          []Issue

	// Nodes counts published nodes per category.
	Nodes        map[string]int
	DetailPages  int
	ListingPages int
	Redirects    int
	// GenericPages lists the slugs of generic pages; they are derived but
	// routed by the renderer, not planned.
	GenericPages []string
	PlanDigest   string
	FeedPath     string
	OutputDir    string
	Version      string
}

// NewReport constructs a report for a build starting now.
func NewReport(buildID, trigger string) *Report {
	return &Report{
		SchemaVersion:   1,
		BuildID:         buildID,
		Trigger:         trigger,
		Start:           time.Now(),
		StageDurations:  make(map[string]time.Duration),
		StageErrorKinds: make(map[StageName]StageErrorKind),
		StageCounts:     make(map[StageName]StageCount),
		Nodes:           make(map[string]int),
		Version:         version.Version,
	}
}

// AddIssue appends a structured issue and mirrors severity into Errors/Warnings slices.
func (r *Report) AddIssue(code IssueCode, stage StageName, severity IssueSeverity, msg string, transient bool, err error) {
	r.Issues = append(r.Issues, Issue{Code: code, Stage: stage, Severity: severity, Message: msg, Transient: transient})
	if err != nil {
		switch severity {
		case SeverityError:
			r.Errors = append(r.Errors, err)
		case SeverityWarning:
			r.Warnings = append(r.Warnings, err)
		}
	}
}

// Warn records a non-fatal issue without aborting the stage.
func (r *Report) Warn(code IssueCode, stage StageName, err error) {
	r.AddIssue(code, stage, SeverityWarning, err.Error(), false, err)
}

// Finish sets the end time of the report.
func (r *Report) Finish() { r.End = time.Now() }

// Duration returns the build duration, or the time elapsed so far.
func (r *Report) Duration() time.Duration {
	if r.End.IsZero() {
		return time.Since(r.Start)
	}
	return r.End.Sub(r.Start)
}

// RecordStageResult updates counters and emits metrics (if recorder non-nil).
func (r *Report) RecordStageResult(stage StageName, res StageResult, recorder metrics.Recorder) {
	sc := r.StageCounts[stage]
	var label metrics.ResultLabel
	switch res {
	case StageResultSuccess:
		sc.Success++
		label = metrics.ResultSuccess
	case StageResultWarning:
		sc.Warning++
		label = metrics.ResultWarning
	case StageResultFatal:
		sc.Fatal++
		label = metrics.ResultFatal
	case StageResultCanceled:
		sc.Canceled++
		label = metrics.ResultCanceled
	case StageResultSkipped:
		return
	}
	r.StageCounts[stage] = sc
	if recorder != nil {
		recorder.IncStageResult(string(stage), label)
	}
}

// DeriveOutcome sets the Outcome field based on recorded errors/warnings.
func (r *Report) DeriveOutcome() {
	if len(r.Errors) > 0 {
		for _, e := range r.Errors {
			var se *StageError
			if errors.As(e, &se) && se.Kind == StageErrorCanceled {
				r.Outcome = OutcomeCanceled
				return
			}
		}
		r.Outcome = OutcomeFailed
		return
	}
	if len(r.Warnings) > 0 {
		r.Outcome = OutcomeWarning
		return
	}
	r.Outcome = OutcomeSuccess
}

// Summary returns a human-readable single-line summary.
func (r *Report) Summary() string {
	return fmt.Sprintf("build=%s nodes=%d pages=%d listing=%d redirects=%d duration=%s errors=%d warnings=%d outcome=%s",
		r.BuildID, r.totalNodes(), r.DetailPages, r.ListingPages, r.Redirects,
		r.Duration().Truncate(time.Millisecond), len(r.Errors), len(r.Warnings), r.Outcome)
}

func (r *Report) totalNodes() int {
	n := 0
	for _, c := range r.Nodes {
		n += c
	}
	return n
}

// Persist writes the report atomically into root.
func (r *Report) Persist(root string) error {
	if r.End.IsZero() {
		r.Finish()
		r.DeriveOutcome()
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return fmt.Errorf("ensure root for report: %w", err)
	}
	jb, err := json.MarshalIndent(r.Serializable(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report json: %w", err)
	}
	jsonPath := filepath.Join(root, ReportFile)
	tmp := jsonPath + ".tmp"
	if err := os.WriteFile(tmp, jb, 0o600); err != nil {
		return fmt.Errorf("write temp report json: %w", err)
	}
	if err := os.Rename(tmp, jsonPath); err != nil {
		return fmt.Errorf("atomic rename json: %w", err)
	}
	return nil
}

// Serializable returns a copy with errors converted to strings for JSON output.
func (r *Report) Serializable() *ReportSerializable {
	stageCounts := make(map[string]StageCount, len(r.StageCounts))
	for k, v := range r.StageCounts {
		stageCounts[string(k)] = v
	}
	sek := make(map[string]string, len(r.StageErrorKinds))
	for k, v := range r.StageErrorKinds {
		sek[string(k)] = string(v)
	}
	durations := make(map[string]float64, len(r.StageDurations))
	for k, v := range r.StageDurations {
		durations[k] = float64(v.Microseconds()) / 1000
	}
	issues := r.Issues
	if issues == nil {
		issues = []Issue{}
	}
	generic := r.GenericPages
	if generic == nil {
		generic = []string{}
	}

	s := &ReportSerializable{
		SchemaVersion:    r.SchemaVersion,
		BuildID:          r.BuildID,
		Trigger:          r.Trigger,
		ContentRevision:  r.ContentRevision,
		Start:            r.Start,
		End:              r.End,
		Errors:           make([]string, len(r.Errors)),
		Warnings:         make([]string, len(r.Warnings)),
		StageDurationsMS: durations,
		StageErrorKinds:  sek,
		StageCounts:      stageCounts,
		Outcome:          string(r.Outcome),
		Issues:           issues,
		Nodes:            r.Nodes,
		DetailPages:      r.DetailPages,
		ListingPages:     r.ListingPages,
		Redirects:        r.Redirects,
		GenericPages:     generic,
		PlanDigest:       r.PlanDigest,
		FeedPath:         r.FeedPath,
		OutputDir:        r.OutputDir,
		Version:          r.Version,
	}
	for i, e := range r.Errors {
		s.Errors[i] = e.Error()
	}
	for i, w := range r.Warnings {
		s.Warnings[i] = w.Error()
	}
	return s
}

// ReportSerializable mirrors Report with string errors for JSON output.
type ReportSerializable struct {
	SchemaVersion    int                   `json:"schema_version"`
	BuildID          string                `json:"build_id"`
	Trigger          string                `json:"trigger,omitempty"`
	ContentRevision  string                `json:"content_revision,omitempty"`
	Start            time.Time             `json:"start"`
	End              time.Time             `json:"end"`
	Errors           []string              `json:"errors"`
	Warnings         []string              `json:"warnings"`
	StageDurationsMS map[string]float64    `json:"stage_durations_ms"`
	StageErrorKinds  map[string]string     `json:"stage_error_kinds"`
	StageCounts      map[string]StageCount `json:"stage_counts"`
	Outcome          string                `json:"outcome"`
	Issues           []Issue               `json:"issues"`
	Nodes            map[string]int        `json:"nodes"`
	DetailPages      int                   `json:"detail_pages"`
	ListingPages     int                   `json:"listing_pages"`
	Redirects        int                   `json:"redirects"`
	GenericPages     []string              `json:"generic_pages"`
	PlanDigest       string                `json:"plan_digest,omitempty"`
	FeedPath         string                `json:"feed_path,omitempty"`
	OutputDir        string                `json:"output_dir,omitempty"`
	Version          string                `json:"version,omitempty"`
}
