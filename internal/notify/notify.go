// Package notify publishes build results to NATS.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/retry"
)

const publishTimeout = 5 * time.Second

// BuildNotification is the message published after every build.
type BuildNotification struct {
	BuildID         string    `json:"build_id"`
	Outcome         string    `json:"outcome"`
	Trigger         string    `json:"trigger,omitempty"`
	ContentRevision string    `json:"content_revision,omitempty"`
	PlanDigest      string    `json:"plan_digest,omitempty"`
	DetailPages     int       `json:"detail_pages"`
	ListingPages    int       `json:"listing_pages"`
	Redirects       int       `json:"redirects"`
	DurationMS      int64     `json:"duration_ms"`
	Error           string    `json:"error,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// FromReport builds the notification for a finished build.
func FromReport(r *build.Report) BuildNotification {
	n := BuildNotification{
		BuildID:         r.BuildID,
		Outcome:         string(r.Outcome),
		Trigger:         r.Trigger,
		ContentRevision: r.ContentRevision,
		PlanDigest:      r.PlanDigest,
		DetailPages:     r.DetailPages,
		ListingPages:    r.ListingPages,
		Redirects:       r.Redirects,
		DurationMS:      r.Duration().Milliseconds(),
		Timestamp:       r.End,
	}
	if len(r.Errors) > 0 {
		n.Error = r.Errors[0].Error()
	}
	return n
}

// conn is the subset of *nats.Conn the publisher uses.
type conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// Publisher sends build notifications to one subject.
type Publisher struct {
	conn    conn
	subject string
}

// Connect dials the NATS server at url.
func Connect(url, subject string) (*Publisher, error) {
	nc, err := nats.Connect(url, nats.Name("sitebuilder"), nats.Timeout(publishTimeout))
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryNotify, "failed to connect to NATS").
			WithContext("url", url).
			Build()
	}
	slog.Info("NATS notifications enabled", slog.String("url", url), slog.String("subject", subject))
	return &Publisher{conn: nc, subject: subject}, nil
}

// Publish sends n and waits for the server to acknowledge the flush.
func (p *Publisher) Publish(ctx context.Context, n BuildNotification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryNotify, "failed to marshal notification").Build()
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryNotify, "failed to publish notification").
			WithContext("subject", p.subject).
			Retryable().
			Build()
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryNotify, "failed to flush notification").
			WithContext("subject", p.subject).
			Retryable().
			Build()
	}
	slog.Debug("Published build notification", logfields.BuildID(n.BuildID), slog.String("subject", p.subject))
	return nil
}

// Close closes the connection.
func (p *Publisher) Close() error {
	if p == nil || p.conn == nil {
		return nil
	}
	p.conn.Close()
	return nil
}

// Sender delivers build notifications. *Publisher is the NATS implementation.
type Sender interface {
	Publish(ctx context.Context, n BuildNotification) error
	Close() error
}

// ErrNoPublisher is returned by Observer when constructed without a publisher.
var ErrNoPublisher = errors.New("notify: no publisher")

// Observer publishes a notification when a build completes.
type Observer struct {
	build.NoopObserver
	publisher Sender
	policy    retry.Policy
}

// NewObserver wraps p as a build observer retrying with retry.DefaultPolicy.
func NewObserver(p Sender) (*Observer, error) {
	if p == nil {
		return nil, ErrNoPublisher
	}
	return &Observer{publisher: p, policy: retry.DefaultPolicy()}, nil
}

// WithRetry replaces the retry policy for transient publish failures.
func (o *Observer) WithRetry(p retry.Policy) *Observer {
	o.policy = p
	return o
}

// OnBuildComplete publishes the report. Failures are logged; a notification
// never fails a build.
func (o *Observer) OnBuildComplete(r *build.Report) {
	timeout := publishTimeout*time.Duration(o.policy.MaxRetries+1) + o.policy.Budget()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	n := FromReport(r)
	err := o.policy.Do(ctx, "publish build notification", func(ctx context.Context) error {
		return o.publisher.Publish(ctx, n)
	})
	if err != nil {
		slog.Warn("Build notification failed", logfields.BuildID(r.BuildID), logfields.Error(err))
	}
}
