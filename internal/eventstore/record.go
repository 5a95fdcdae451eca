package eventstore

import (
	"context"
	"errors"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
)

// RecordBuild appends the lifecycle events of a finished build and returns
// them in append order.
func RecordBuild(ctx context.Context, s Store, r *build.Report) ([]Event, error) {
	events := make([]Event, 0, 3)

	started, err := NewBuildStarted(r.BuildID, r.Start, BuildStartedPayload{
		Trigger:         r.Trigger,
		ContentRevision: r.ContentRevision,
	})
	if err != nil {
		return nil, err
	}
	events = append(events, started)

	if r.PlanDigest != "" {
		planned, err := NewPlanGenerated(r.BuildID, r.Start, PlanGeneratedPayload{
			Digest:       r.PlanDigest,
			Nodes:        r.Nodes,
			DetailPages:  r.DetailPages,
			ListingPages: r.ListingPages,
			Redirects:    r.Redirects,
		})
		if err != nil {
			return nil, err
		}
		events = append(events, planned)
	}

	var final Event
	switch r.Outcome {
	case build.OutcomeFailed, build.OutcomeCanceled:
		p := BuildFailedPayload{Outcome: string(r.Outcome), DurationMS: r.Duration().Milliseconds()}
		if len(r.Errors) > 0 {
			p.Error = r.Errors[0].Error()
			var se *build.StageError
			if errors.As(r.Errors[0], &se) {
				p.Stage = string(se.Stage)
			}
		}
		final, err = NewBuildFailed(r.BuildID, r.End, p)
	default:
		final, err = NewBuildCompleted(r.BuildID, r.End, BuildCompletedPayload{
			Outcome:    string(r.Outcome),
			DurationMS: r.Duration().Milliseconds(),
			OutputDir:  r.OutputDir,
			Warnings:   len(r.Warnings),
		})
	}
	if err != nil {
		return nil, err
	}
	events = append(events, final)

	if err := s.Append(ctx, events...); err != nil {
		return nil, err
	}
	return events, nil
}
