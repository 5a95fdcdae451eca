package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, BackoffLinear, p.Mode)
	assert.Equal(t, 500*time.Millisecond, p.Initial)
	assert.Equal(t, 5*time.Second, p.Max)
	assert.Equal(t, 2, p.MaxRetries)
	require.NoError(t, p.Validate())
}

func TestNewPolicyOverrides(t *testing.T) {
	p := NewPolicy(BackoffFixed, 5*time.Second, 2*time.Second, 5)
	assert.Equal(t, 2*time.Second, p.Initial, "initial clamped to max")
	assert.Equal(t, 2*time.Second, p.Max)
	assert.Equal(t, BackoffFixed, p.Mode)
	assert.Equal(t, 5, p.MaxRetries)

	p = NewPolicy("bogus", 0, 0, -1)
	assert.Equal(t, DefaultPolicy(), p)
}

func TestDelayModes(t *testing.T) {
	ms := time.Millisecond
	fixed := NewPolicy(BackoffFixed, 100*ms, 500*ms, 3)
	linear := NewPolicy(BackoffLinear, 100*ms, 250*ms, 5)
	exp := NewPolicy(BackoffExponential, 50*ms, 160*ms, 5)

	cases := []struct {
		name    string
		p       Policy
		attempt int
		want    time.Duration
	}{
		{"fixed 1", fixed, 1, 100 * ms},
		{"fixed 3", fixed, 3, 100 * ms},
		{"linear 1", linear, 1, 100 * ms},
		{"linear 2", linear, 2, 200 * ms},
		{"linear capped", linear, 3, 250 * ms},
		{"exp 1", exp, 1, 50 * ms},
		{"exp 2", exp, 2, 100 * ms},
		{"exp capped", exp, 3, 160 * ms},
		{"exp overflow", exp, 80, 160 * ms},
		{"zero attempt", linear, 0, 0},
		{"negative attempt", linear, -1, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.p.Delay(tc.attempt))
		})
	}
	assert.Equal(t, 100*ms+200*ms+250*ms+250*ms+250*ms, linear.Budget())
}

func TestValidate(t *testing.T) {
	require.Error(t, Policy{Mode: BackoffLinear, Initial: 0, Max: time.Second, MaxRetries: 1}.Validate())
	require.Error(t, Policy{Mode: BackoffLinear, Initial: time.Second, Max: 0, MaxRetries: 1}.Validate())
	require.Error(t, Policy{Mode: BackoffLinear, Initial: time.Second, Max: time.Second, MaxRetries: -1}.Validate())
}

func transient() error {
	return ferrors.NotifyError("flush failed").Retryable().Build()
}

func TestDo_RetriesRetryableErrors(t *testing.T) {
	p := NewPolicy(BackoffFixed, time.Millisecond, time.Millisecond, 3)
	calls := 0
	err := p.Do(t.Context(), "publish", func(context.Context) error {
		calls++
		if calls < 3 {
			return transient()
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_GivesUpAfterMaxRetries(t *testing.T) {
	p := NewPolicy(BackoffFixed, time.Millisecond, time.Millisecond, 2)
	calls := 0
	err := p.Do(t.Context(), "publish", func(context.Context) error {
		calls++
		return transient()
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	p := NewPolicy(BackoffFixed, time.Millisecond, time.Millisecond, 5)
	permanent := errors.New("bad payload")
	calls := 0
	err := p.Do(t.Context(), "publish", func(context.Context) error {
		calls++
		return permanent
	})
	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDo_StopsWhenContextDone(t *testing.T) {
	p := NewPolicy(BackoffFixed, time.Hour, time.Hour, 5)
	ctx, cancel := context.WithCancel(t.Context())
	calls := 0
	err := p.Do(ctx, "publish", func(context.Context) error {
		calls++
		cancel()
		return transient()
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
