package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
)

type countingRecorder struct {
	metrics.NoopRecorder
	stageResults map[string]int
	outcomes     map[metrics.BuildOutcomeLabel]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{stageResults: map[string]int{}, outcomes: map[metrics.BuildOutcomeLabel]int{}}
}

func (c *countingRecorder) IncStageResult(stage string, result metrics.ResultLabel) {
	c.stageResults[stage+":"+string(result)]++
}

func (c *countingRecorder) IncBuildOutcome(o metrics.BuildOutcomeLabel) { c.outcomes[o]++ }

func newTestState(rec metrics.Recorder) *State {
	return &State{Report: NewReport("test", "test"), Recorder: rec}
}

func TestRunStages_WarningContinuesFatalAborts(t *testing.T) {
	rec := newCountingRecorder()
	st := newTestState(rec)
	var ran []StageName

	stages := NewPipeline().
		Add(StageLoadContent, func(context.Context, *State) error {
			ran = append(ran, StageLoadContent)
			return nil
		}).
		Add(StageFeed, func(context.Context, *State) error {
			ran = append(ran, StageFeed)
			return NewWarnStageError(StageFeed, errors.New("no site url"))
		}).
		Add(StagePlan, func(context.Context, *State) error {
			ran = append(ran, StagePlan)
			return errors.New("boom")
		}).
		Add(StageEmit, func(context.Context, *State) error {
			ran = append(ran, StageEmit)
			return nil
		}).
		Build()

	err := RunStages(t.Context(), st, stages)
	require.Error(t, err)

	var se *StageError
	require.ErrorAs(t, err, &se)
	require.Equal(t, StageErrorFatal, se.Kind)
	require.Equal(t, StagePlan, se.Stage)

	require.Equal(t, []StageName{StageLoadContent, StageFeed, StagePlan}, ran)
	require.Len(t, st.Report.Warnings, 1)
	require.Len(t, st.Report.Errors, 1)
	require.Equal(t, 1, rec.stageResults["feed:warning"])
	require.Equal(t, 1, rec.stageResults["plan:fatal"])

	st.Report.DeriveOutcome()
	require.Equal(t, OutcomeFailed, st.Report.Outcome)
}

func TestRunStages_CanceledBeforeStage(t *testing.T) {
	st := newTestState(nil)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	called := false
	err := RunStages(ctx, st, NewPipeline().Add(StagePlan, func(context.Context, *State) error {
		called = true
		return nil
	}).Build())

	require.ErrorIs(t, err, context.Canceled)
	require.False(t, called)
	st.Report.DeriveOutcome()
	require.Equal(t, OutcomeCanceled, st.Report.Outcome)
	require.Equal(t, IssueCanceled, st.Report.Issues[0].Code)
}

func TestClassifyStageResult(t *testing.T) {
	require.Equal(t, StageResultSuccess, ClassifyStageResult(StagePlan, nil).Result)

	out := ClassifyStageResult(StageEmit, errors.New("disk"))
	require.Equal(t, StageResultFatal, out.Result)
	require.Equal(t, IssueEmitFailure, out.IssueCode)
	require.True(t, out.Abort)

	out = ClassifyStageResult(StageLoadContent, context.DeadlineExceeded)
	require.Equal(t, StageResultCanceled, out.Result)

	out = ClassifyStageResult(StageFeed, NewWarnStageError(StageFeed, errors.New("x")))
	require.Equal(t, StageResultWarning, out.Result)
	require.False(t, out.Abort)
	require.Equal(t, IssueFeedFailure, out.IssueCode)
}

func TestReport_PersistAndSerialize(t *testing.T) {
	r := NewReport("id-1", "watch")
	r.Nodes["blog"] = 3
	r.StageDurations[string(StagePlan)] = 1500 * time.Microsecond
	r.Warn(IssueRedirectConflict, StagePlan, errors.New("shadowed"))

	dir := t.TempDir()
	require.NoError(t, r.Persist(dir))
	require.Equal(t, OutcomeWarning, r.Outcome)

	data, err := os.ReadFile(filepath.Join(dir, ReportFile))
	require.NoError(t, err)
	require.Contains(t, string(data), `"build_id": "id-1"`)
	require.Contains(t, string(data), `"plan": 1.5`)
	require.Contains(t, r.Summary(), "outcome=warning")
}

func TestRecorderObserver(t *testing.T) {
	rec := newCountingRecorder()
	r := NewReport("id", "cli")
	r.Outcome = OutcomeSuccess
	r.Finish()
	RecorderObserver{Recorder: rec}.OnBuildComplete(r)
	require.Equal(t, 1, rec.outcomes[metrics.BuildOutcomeSuccess])
}

func TestContentRevision(t *testing.T) {
	dir := t.TempDir()
	require.Empty(t, ContentRevision(dir))

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	require.Empty(t, ContentRevision(dir))

	sub := filepath.Join(dir, "content", "blog")
	require.NoError(t, os.MkdirAll(sub, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "a.md"), []byte("# a\n"), 0o600))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("content/blog/a.md")
	require.NoError(t, err)
	hash, err := wt.Commit("add post", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	require.Equal(t, hash.String(), ContentRevision(sub))
}
