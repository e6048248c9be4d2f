package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/codemesh-labs/routing-core/pkg/clock"
	"github.com/codemesh-labs/routing-core/pkg/corerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func ok(ctx context.Context) (interface{}, error)  { return "ok", nil }
func fail(ctx context.Context) (interface{}, error) { return nil, errors.New("boom") }

// TestBreakerTripAndRecover implements spec.md 8 scenario 1 verbatim,
// using a FakeClock instead of real sleeps for determinism.
func TestBreakerTripAndRecover(t *testing.T) {
	defer goleak.VerifyNone(t)

	fc := clock.NewFakeClock(time.Unix(0, 0))
	b := New("scenario1", Config{
		FailureThreshold:    2,
		RecoveryTimeout:     500 * time.Millisecond,
		SuccessThreshold:    1,
		HalfOpenMaxRequests: 1,
	}, fc, nil, nil)
	defer b.Shutdown()

	ctx := context.Background()

	_, err := b.Call(ctx, fail)
	require.Error(t, err)
	_, err = b.Call(ctx, fail)
	require.Error(t, err)

	assert.Equal(t, StateOpen, b.State())

	fc.Advance(400 * time.Millisecond)
	_, err = b.Call(ctx, ok)
	require.Error(t, err)
	assert.Equal(t, corerrors.KindCircuitOpen, corerrors.KindOf(err))
	assert.EqualValues(t, 1, b.Metrics().Rejected)

	fc.Advance(600 * time.Millisecond)
	result, err := b.Call(ctx, ok)
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, StateClosed, b.State())
	assert.EqualValues(t, 1, b.Metrics().CircuitClosedCount)
}

func TestBreaker_MetricsTotalInvariant(t *testing.T) {
	defer goleak.VerifyNone(t)
	fc := clock.NewFakeClock(time.Unix(0, 0))
	b := New("invariant", Config{
		FailureThreshold: 3, RecoveryTimeout: time.Second, SuccessThreshold: 1, HalfOpenMaxRequests: 1,
	}, fc, nil, nil)
	defer b.Shutdown()

	ctx := context.Background()
	_, _ = b.Call(ctx, ok)
	_, _ = b.Call(ctx, fail)
	_, _ = b.Call(ctx, fail)
	_, _ = b.Call(ctx, fail) // opens here
	_, _ = b.Call(ctx, ok)   // rejected, circuit open

	m := b.Metrics()
	assert.EqualValues(t, m.Total, m.Successful+m.Failed+m.Rejected, "every admission attempt is counted, admitted or not")
	assert.GreaterOrEqual(t, m.Rejected, uint64(1))
}

func TestBreaker_HalfOpenAdmitsBoundedConcurrency(t *testing.T) {
	defer goleak.VerifyNone(t)
	fc := clock.NewFakeClock(time.Unix(0, 0))
	b := New("halfopen", Config{
		FailureThreshold: 1, RecoveryTimeout: 100 * time.Millisecond, SuccessThreshold: 5, HalfOpenMaxRequests: 1,
	}, fc, nil, nil)
	defer b.Shutdown()

	ctx := context.Background()
	_, _ = b.Call(ctx, fail)
	assert.Equal(t, StateOpen, b.State())

	fc.Advance(200 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, b.State())

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_, _ = b.Call(ctx, func(ctx context.Context) (interface{}, error) {
			close(started)
			<-release
			return "slow", nil
		})
	}()
	<-started

	_, err := b.Call(ctx, ok)
	require.Error(t, err)
	assert.Equal(t, corerrors.KindCircuitOpen, corerrors.KindOf(err))

	close(release)
	time.Sleep(50 * time.Millisecond) // let the in-flight call's record land
}

func TestBreaker_CallIsCancellable(t *testing.T) {
	defer goleak.VerifyNone(t)
	b := New("cancel", DefaultConfig(), nil, nil, nil)
	defer b.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Call(ctx, ok)
	require.Error(t, err)
	assert.Equal(t, corerrors.KindTimeout, corerrors.KindOf(err))
}

func TestSnapshotStore_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewSnapshotStore(dir)

	offset := 5 * time.Second
	snap := Snapshot{
		State:               StateOpen,
		OpenedAtOffset:       &offset,
		TotalRequests:        10,
		SuccessfulRequests:   6,
		FailedRequests:       4,
		CircuitOpenedCount:   1,
		ConsecutiveFailures:  4,
		SavedAt:              time.Unix(1000, 0),
	}
	require.NoError(t, store.Save("p1", snap))

	loaded, ok, err := store.Load("p1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StateOpen, loaded.State)
	assert.EqualValues(t, 10, loaded.TotalRequests)
	require.NotNil(t, loaded.OpenedAtOffset)
	assert.InDelta(t, offset.Seconds(), loaded.OpenedAtOffset.Seconds(), 0.001)
}

func TestSnapshotStore_UnknownStateDeserializesToClosed(t *testing.T) {
	assert.Equal(t, StateClosed, normalizeState("bogus"))
	assert.Equal(t, StateClosed, normalizeState(""))
}

func TestManager_LazilyCreatesAndReusesBreakers(t *testing.T) {
	m := NewManager(DefaultConfig(), nil, nil, nil)
	defer m.Shutdown()

	a := m.Get("openai")
	b := m.Get("openai")
	assert.Same(t, a, b)

	c := m.Get("anthropic")
	assert.NotSame(t, a, c)
	assert.Len(t, m.All(), 2)
}
