package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/retry"
)

type fakeConn struct {
	subject    string
	data       []byte
	publishErr error
	flushErr   error
	closed     bool

	publishes     int
	flushFailures int
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	f.subject = subject
	f.data = data
	f.publishes++
	return f.publishErr
}

func (f *fakeConn) FlushWithContext(context.Context) error {
	if f.flushFailures > 0 {
		f.flushFailures--
		return errors.New("flush timeout")
	}
	return f.flushErr
}

func (f *fakeConn) Close() { f.closed = true }

func report() *build.Report {
	r := build.NewReport("b-1", "watch")
	r.PlanDigest = "d"
	r.DetailPages = 4
	r.Redirects = 1
	r.Finish()
	r.DeriveOutcome()
	return r
}

func TestPublisher_Publish(t *testing.T) {
	fc := &fakeConn{}
	p := &Publisher{conn: fc, subject: "sitebuilder.builds"}

	require.NoError(t, p.Publish(t.Context(), FromReport(report())))
	require.Equal(t, "sitebuilder.builds", fc.subject)

	var got BuildNotification
	require.NoError(t, json.Unmarshal(fc.data, &got))
	require.Equal(t, "b-1", got.BuildID)
	require.Equal(t, "success", got.Outcome)
	require.Equal(t, 4, got.DetailPages)

	require.NoError(t, p.Close())
	require.True(t, fc.closed)
}

func TestPublisher_ErrorsAreClassified(t *testing.T) {
	p := &Publisher{conn: &fakeConn{publishErr: errors.New("no responders")}, subject: "s"}
	err := p.Publish(t.Context(), BuildNotification{})
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryNotify))
	ce, ok := ferrors.AsClassified(err)
	require.True(t, ok)
	require.True(t, ce.CanRetry())

	p = &Publisher{conn: &fakeConn{flushErr: context.DeadlineExceeded}, subject: "s"}
	require.ErrorIs(t, p.Publish(t.Context(), BuildNotification{}), context.DeadlineExceeded)
}

func TestFromReport_CarriesFirstError(t *testing.T) {
	r := build.NewReport("b-2", "cli")
	r.AddIssue(build.IssueEmitFailure, build.StageEmit, build.SeverityError, "disk", false, errors.New("disk full"))
	r.Finish()
	r.DeriveOutcome()

	n := FromReport(r)
	require.Equal(t, "failed", n.Outcome)
	require.Equal(t, "disk full", n.Error)
}

func TestObserver(t *testing.T) {
	_, err := NewObserver(nil)
	require.ErrorIs(t, err, ErrNoPublisher)

	fc := &fakeConn{}
	o, err := NewObserver(&Publisher{conn: fc, subject: "s"})
	require.NoError(t, err)
	o.OnBuildComplete(report())
	require.NotEmpty(t, fc.data)

	var _ build.Observer = o
}

func TestObserver_RetriesTransientFailures(t *testing.T) {
	fc := &fakeConn{flushFailures: 2}
	o, err := NewObserver(&Publisher{conn: fc, subject: "s"})
	require.NoError(t, err)
	o.WithRetry(retry.NewPolicy(retry.BackoffFixed, time.Millisecond, time.Millisecond, 3))

	o.OnBuildComplete(report())
	require.Equal(t, 3, fc.publishes)
	require.Zero(t, fc.flushFailures)

	fc = &fakeConn{flushFailures: 10}
	o, err = NewObserver(&Publisher{conn: fc, subject: "s"})
	require.NoError(t, err)
	o.WithRetry(retry.NewPolicy(retry.BackoffFixed, time.Millisecond, time.Millisecond, 1))
	o.OnBuildComplete(report())
	require.Equal(t, 2, fc.publishes)
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect("nats://127.0.0.1:1", "s")
	require.Error(t, err)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryNotify))
}
