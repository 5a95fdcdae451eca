package eventstore

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

const testBuildID = "build-123"

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestEventStoreAppendAndRetrieve(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()

	e := Event{
		BuildID:  testBuildID,
		Type:     "TestEvent",
		Payload:  []byte(`{"test":"data"}`),
		Metadata: map[string]string{"key": "value"},
	}
	require.NoError(t, store.Append(ctx, e))

	events, err := store.ByBuild(ctx, testBuildID)
	require.NoError(t, err)
	require.Len(t, events, 1)

	got := events[0]
	require.Equal(t, testBuildID, got.BuildID)
	require.Equal(t, "TestEvent", got.Type)
	require.JSONEq(t, `{"test":"data"}`, string(got.Payload))
	require.Equal(t, "value", got.Metadata["key"])
	require.Positive(t, got.Seq)
	require.False(t, got.At.IsZero(), "zero timestamps are stamped on append")

	var decoded map[string]string
	require.NoError(t, got.Decode(&decoded))
	require.Equal(t, "data", decoded["test"])
}

func TestEventStoreBetween(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		e, err := NewBuildStarted(id, base.Add(time.Duration(i)*time.Hour), BuildStartedPayload{Trigger: "cli"})
		require.NoError(t, err)
		require.NoError(t, store.Append(ctx, e))
	}

	events, err := store.Between(ctx, base.Add(30*time.Minute), base.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "b", events[0].BuildID)
	require.Equal(t, base.Add(time.Hour), events[0].At.UTC())

	all, err := store.Between(ctx, time.Time{}, base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestEventStorePrune(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()

	for _, id := range []string{"old", "mid", "new"} {
		started, err := NewBuildStarted(id, time.Now(), BuildStartedPayload{Trigger: "cli"})
		require.NoError(t, err)
		done, err := NewBuildCompleted(id, time.Now(), BuildCompletedPayload{Outcome: "success"})
		require.NoError(t, err)
		require.NoError(t, store.Append(ctx, started, done))
	}

	removed, err := store.Prune(ctx, 2)
	require.NoError(t, err)
	require.EqualValues(t, 2, removed)

	old, err := store.ByBuild(ctx, "old")
	require.NoError(t, err)
	require.Empty(t, old)
	kept, err := store.ByBuild(ctx, "new")
	require.NoError(t, err)
	require.Len(t, kept, 2)
}

func TestEventStoreClosedReturnsClassifiedError(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	err = store.Append(t.Context(), Event{BuildID: testBuildID, Type: "X", Payload: []byte("{}")})
	require.Error(t, err)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryEventStore))
}

func TestEventDecodeError(t *testing.T) {
	var v BuildStartedPayload
	err := Event{BuildID: "b", Type: TypeBuildStarted, Payload: []byte("{")}.Decode(&v)
	require.Error(t, err)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryEventStore))
}

func successReport() *build.Report {
	r := build.NewReport(testBuildID, "watch")
	r.ContentRevision = "abc123"
	r.PlanDigest = "digest"
	r.Nodes["blog"] = 9
	r.DetailPages = 10
	r.ListingPages = 2
	r.Redirects = 2
	r.OutputDir = "/srv/public"
	r.Finish()
	r.DeriveOutcome()
	return r
}

func TestRecordBuildAndProjection(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()

	recorded, err := RecordBuild(ctx, store, successReport())
	require.NoError(t, err)
	require.Len(t, recorded, 3)

	failed := build.NewReport("build-456", "schedule")
	failed.Start = failed.Start.Add(time.Second)
	failed.AddIssue(build.IssueEmptyContentSet, build.StagePlan, build.SeverityError, "empty",
		false, build.NewFatalStageError(build.StagePlan, errors.New("there are no posts")))
	failed.Finish()
	failed.DeriveOutcome()
	_, err = RecordBuild(ctx, store, failed)
	require.NoError(t, err)

	events, err := store.ByBuild(ctx, testBuildID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.Equal(t, TypePlanGenerated, events[1].Type)

	proj := NewBuildHistoryProjection(store, 10)
	require.NoError(t, proj.Rebuild(ctx))

	history := proj.History()
	require.Len(t, history, 2)
	require.Equal(t, "build-456", history[0].BuildID)
	require.Equal(t, "failed", history[0].Status)
	require.Equal(t, "plan", history[0].ErrorStage)

	ok, found := proj.Build(testBuildID)
	require.True(t, found)
	require.Equal(t, "success", ok.Status)
	require.Equal(t, "watch", ok.Trigger)
	require.Equal(t, "abc123", ok.ContentRevision)
	require.Equal(t, 10, ok.DetailPages)
	require.Equal(t, 9, ok.Nodes["blog"])
	require.NotNil(t, ok.CompletedAt)

	require.Equal(t, "build-456", proj.LastCompleted().BuildID)
	require.False(t, proj.LastSync().IsZero())
}

func TestProjectionBoundedHistory(t *testing.T) {
	proj := NewBuildHistoryProjection(newStore(t), 2)
	base := time.Now()
	for i, id := range []string{"one", "two", "three"} {
		at := base.Add(time.Duration(i) * time.Minute)
		started, err := NewBuildStarted(id, at, BuildStartedPayload{Trigger: "cli"})
		require.NoError(t, err)
		done, err := NewBuildCompleted(id, at.Add(time.Second), BuildCompletedPayload{Outcome: "success"})
		require.NoError(t, err)
		proj.Apply(started)
		proj.Apply(done)
	}

	history := proj.History()
	require.Len(t, history, 2)
	require.Equal(t, "three", history[0].BuildID)
	_, found := proj.Build("one")
	require.False(t, found)
}
