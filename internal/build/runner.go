package build

import (
	"context"
	"errors"
	"fmt"
	"time"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/observability"
	"git.home.luguber.info/inful/sitebuilder/internal/plan"
)

// StageOutcome is the classified result of one stage run.
type StageOutcome struct {
	Stage     StageName
	Error     *StageError
	Result    StageResult
	IssueCode IssueCode
	Severity  IssueSeverity
	Transient bool
	Abort     bool
}

// RunStages executes stages in order, recording timing and stopping on first fatal error.
func RunStages(ctx context.Context, st *State, stages []StageDef) error {
	obs := st.observer()
	for _, def := range stages {
		select {
		case <-ctx.Done():
			se := NewCanceledStageError(def.Name, ctx.Err())
			st.Report.StageErrorKinds[def.Name] = se.Kind
			st.Report.AddIssue(IssueCanceled, def.Name, SeverityError, se.Error(), false, se)
			st.Report.RecordStageResult(def.Name, StageResultCanceled, st.Recorder)
			obs.OnStageComplete(def.Name, 0, StageResultCanceled)
			return se
		default:
		}

		obs.OnStageStart(def.Name)

		t0 := time.Now()
		err := def.Fn(observability.WithStage(ctx, string(def.Name)), st)
		dur := time.Since(t0)

		st.Report.StageDurations[string(def.Name)] = dur

		out := ClassifyStageResult(def.Name, err)
		if out.Error != nil {
			st.Report.StageErrorKinds[def.Name] = out.Error.Kind
			st.Report.AddIssue(out.IssueCode, out.Stage, out.Severity, out.Error.Error(), out.Transient, out.Error)
		}

		st.Report.RecordStageResult(def.Name, out.Result, st.Recorder)
		obs.OnStageComplete(def.Name, dur, out.Result)

		if out.Abort {
			if out.Error != nil {
				return out.Error
			}
			return fmt.Errorf("stage %s aborted", def.Name)
		}
	}
	return nil
}

// ClassifyStageResult maps a stage error to its report outcome. Errors that
// are not StageErrors are fatal; context cancellation is always canceled.
func ClassifyStageResult(stage StageName, err error) StageOutcome {
	if err == nil {
		return StageOutcome{Stage: stage, Result: StageResultSuccess}
	}

	var se *StageError
	if !errors.As(err, &se) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			se = NewCanceledStageError(stage, err)
		} else {
			se = NewFatalStageError(stage, err)
		}
	}

	if se.Kind == StageErrorCanceled {
		return StageOutcome{
			Stage:     stage,
			Error:     se,
			Result:    StageResultCanceled,
			IssueCode: IssueCanceled,
			Severity:  SeverityError,
			Abort:     true,
		}
	}

	out := StageOutcome{
		Stage:     stage,
		Error:     se,
		IssueCode: classifyIssueCode(se),
		Transient: se.Transient(),
	}
	switch se.Kind {
	case StageErrorWarning:
		out.Result = StageResultWarning
		out.Severity = SeverityWarning
	default:
		out.Result = StageResultFatal
		out.Severity = SeverityError
		out.Abort = true
	}
	return out
}

func classifyIssueCode(se *StageError) IssueCode {
	switch {
	case errors.Is(se.Err, plan.ErrEmptyContentSet):
		return IssueEmptyContentSet
	case errors.Is(se.Err, ErrSlugCollision):
		return IssueSlugCollision
	}
	switch se.Stage {
	case StageLoadContent:
		return IssueContentLoad
	case StageEmit:
		return IssueEmitFailure
	case StageFeed:
		return IssueFeedFailure
	case StageDeriveFields, StagePlan:
		if ferrors.HasCategory(se.Err, ferrors.CategoryContent) {
			return IssueContentLoad
		}
	}
	return IssueGenericStageError
}
