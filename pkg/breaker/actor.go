package breaker

import (
	"time"

	"github.com/codemesh-labs/routing-core/pkg/clock"
	"github.com/codemesh-labs/routing-core/pkg/observability"
)

// snapshotMinInterval bounds how often a non-transition snapshot write
// happens, per spec.md 4.1: "at most once per 30s otherwise".
const snapshotMinInterval = 30 * time.Second

// actor owns all mutable breaker state. It is never touched outside its
// own goroutine (run), so none of its fields need synchronization.
type actor struct {
	id     string
	cfg    Config
	clock  clock.Clock
	store  *SnapshotStore
	logger observability.Logger

	state    State
	openedAt time.Time // zero value means "never opened"

	consecutiveFailures uint32
	halfOpenSuccesses   uint32
	halfOpenInFlight    uint32

	metrics Metrics

	lastSnapshotWrite time.Time
}

func (a *actor) run(inbox <-chan message, done chan<- struct{}) {
	defer close(done)
	for msg := range inbox {
		switch m := msg.(type) {
		case admitMsg:
			m.reply <- a.admit()
		case recordMsg:
			a.record(m.success, m.halfOpenSlot)
		case stateMsg:
			a.applyLazyTransition()
			m.reply <- a.state
		case metricsMsg:
			m.reply <- a.metrics
		case shutdownMsg:
			return
		}
	}
}

// applyLazyTransition moves Open->HalfOpen once the recovery timeout has
// elapsed, per spec.md 4.1: evaluated on every can_call/state query.
func (a *actor) applyLazyTransition() {
	if a.state != StateOpen || a.openedAt.IsZero() {
		return
	}
	if a.clock.Now().Sub(a.openedAt) >= a.cfg.RecoveryTimeout {
		a.state = StateHalfOpen
		a.halfOpenSuccesses = 0
		a.halfOpenInFlight = 0
		a.saveSnapshot(a.clock.Now())
	}
}

func (a *actor) admit() admitResult {
	a.applyLazyTransition()

	a.metrics.Total++

	switch a.state {
	case StateClosed:
		return admitResult{allowed: true, state: a.state}
	case StateHalfOpen:
		if a.halfOpenInFlight < a.cfg.HalfOpenMaxRequests {
			a.halfOpenInFlight++
			return admitResult{allowed: true, halfOpenSlot: true, state: a.state}
		}
		a.metrics.Rejected++
		return admitResult{allowed: false, state: a.state}
	default: // StateOpen
		a.metrics.Rejected++
		return admitResult{allowed: false, state: a.state}
	}
}

func (a *actor) record(success bool, halfOpenSlot bool) {
	now := a.clock.Now()

	if halfOpenSlot && a.halfOpenInFlight > 0 {
		a.halfOpenInFlight--
	}

	if success {
		a.metrics.Successful++
		a.metrics.LastSuccess = now
		a.metrics.ConsecutiveFailures = 0
		a.consecutiveFailures = 0

		if a.state == StateHalfOpen {
			a.halfOpenSuccesses++
			if a.halfOpenSuccesses >= a.cfg.SuccessThreshold {
				a.transitionToClosed(now)
				return
			}
		}
		a.maybeSnapshot(now)
		return
	}

	a.metrics.Failed++
	a.metrics.LastFailure = now
	a.consecutiveFailures++
	a.metrics.ConsecutiveFailures = a.consecutiveFailures

	switch a.state {
	case StateClosed:
		if a.consecutiveFailures >= a.cfg.FailureThreshold {
			a.transitionToOpen(now)
			return
		}
	case StateHalfOpen:
		a.transitionToOpen(now)
		return
	}
	a.maybeSnapshot(now)
}

func (a *actor) transitionToOpen(now time.Time) {
	a.state = StateOpen
	a.openedAt = now
	a.halfOpenSuccesses = 0
	a.halfOpenInFlight = 0
	a.metrics.CircuitOpenedCount++
	a.saveSnapshot(now)
}

func (a *actor) transitionToClosed(now time.Time) {
	a.state = StateClosed
	a.openedAt = time.Time{}
	a.consecutiveFailures = 0
	a.metrics.ConsecutiveFailures = 0
	a.halfOpenSuccesses = 0
	a.halfOpenInFlight = 0
	a.metrics.CircuitClosedCount++
	a.saveSnapshot(now)
}

func (a *actor) maybeSnapshot(now time.Time) {
	if !a.cfg.PersistenceEnabled || a.store == nil {
		return
	}
	if a.lastSnapshotWrite.IsZero() || now.Sub(a.lastSnapshotWrite) >= snapshotMinInterval {
		a.saveSnapshot(now)
	}
}

func (a *actor) saveSnapshot(now time.Time) {
	if !a.cfg.PersistenceEnabled || a.store == nil {
		return
	}
	snap := Snapshot{
		State:              a.state,
		TotalRequests:      a.metrics.Total,
		SuccessfulRequests: a.metrics.Successful,
		FailedRequests:     a.metrics.Failed,
		RejectedRequests:   a.metrics.Rejected,
		ConsecutiveFailures: a.consecutiveFailures,
		CircuitOpenedCount: a.metrics.CircuitOpenedCount,
		CircuitClosedCount: a.metrics.CircuitClosedCount,
		SavedAt:            now,
	}
	if a.state == StateOpen && !a.openedAt.IsZero() {
		offset := now.Sub(a.openedAt)
		snap.OpenedAtOffset = &offset
	}
	if err := a.store.Save(a.id, snap); err != nil {
		a.logger.Warn("breaker: failed to write snapshot", map[string]interface{}{
			"id": a.id, "error": err.Error(),
		})
		return
	}
	a.lastSnapshotWrite = now
}

func (a *actor) loadSnapshot() {
	snap, ok, err := a.store.Load(a.id)
	if err != nil {
		a.logger.Warn("breaker: failed to load snapshot", map[string]interface{}{
			"id": a.id, "error": err.Error(),
		})
		return
	}
	if !ok {
		return
	}

	a.state = snap.State
	a.metrics.Total = snap.TotalRequests
	a.metrics.Successful = snap.SuccessfulRequests
	a.metrics.Failed = snap.FailedRequests
	a.metrics.Rejected = snap.RejectedRequests
	a.metrics.CircuitOpenedCount = snap.CircuitOpenedCount
	a.metrics.CircuitClosedCount = snap.CircuitClosedCount
	a.consecutiveFailures = snap.ConsecutiveFailures
	a.metrics.ConsecutiveFailures = snap.ConsecutiveFailures

	if a.state == StateOpen && snap.OpenedAtOffset != nil {
		// opened_at is reconstructed by subtracting the elapsed-since-open
		// (captured at save time) plus the wall-clock gap since the save,
		// from now — never producing a future instant.
		wallGap := a.clock.Now().Sub(snap.SavedAt)
		if wallGap < 0 {
			wallGap = 0
		}
		a.openedAt = a.clock.Now().Add(-(*snap.OpenedAtOffset + wallGap))
	}
}
