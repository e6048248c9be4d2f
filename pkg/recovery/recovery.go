// Package recovery implements the Recovery Manager of spec.md 4.6: a
// single-owner actor (per spec.md 9's mandatory REDESIGN FLAG) that
// selects between system events and a periodic tick, attempting
// policy-driven recovery of registered subsystems with exponential
// backoff.
//
// Grounded in pkg/retry/retry.go's ExponentialBackoff for the backoff
// math and in the teacher's config-table idiom
// (DefaultCircuitBreakerConfigs) for DefaultRecoveryPolicies.
package recovery

import (
	"strings"
	"time"
)

// State is a subsystem's recovery lifecycle state.
type State string

const (
	StateHealthy    State = "healthy"
	StateRecovering State = "recovering"
	StateExhausted  State = "exhausted"
)

// Strategy is how check_and_recover reacts to a subsystem needing
// recovery, per spec.md 4.6.
type Strategy string

const (
	StrategyRestart Strategy = "restart"
	StrategySkip    Strategy = "skip"
	StrategyAlert   Strategy = "alert"
	StrategyRespawn Strategy = "respawn"
)

// Policy configures recovery for one subsystem id.
type Policy struct {
	Strategy   Strategy
	MaxRetries int
	BaseDelay  time.Duration
	Multiplier float64
	MaxDelay   time.Duration
}

// backoff computes min(base*multiplier^n, max), per spec.md 4.6,
// grounded in pkg/retry/retry.go's ExponentialBackoff.NextDelay (sans
// jitter, since recovery scheduling must be deterministic for
// check_and_recover's elapsed-time comparison).
func (p Policy) backoff(retryCount int) time.Duration {
	mult := p.Multiplier
	if mult <= 1.0 {
		mult = 2.0
	}
	delay := float64(p.BaseDelay)
	for i := 0; i < retryCount; i++ {
		delay *= mult
	}
	d := time.Duration(delay)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// DefaultRecoveryPolicies ships a built-in policy table, mirroring the
// teacher's DefaultCircuitBreakerConfigs/DefaultBulkheadConfigs named-
// table idiom.
func DefaultRecoveryPolicies() map[string]Policy {
	return map[string]Policy{
		"default": {
			Strategy:   StrategyRestart,
			MaxRetries: 5,
			BaseDelay:  time.Second,
			Multiplier: 2.0,
			MaxDelay:   time.Minute,
		},
	}
}

// recoveryState is the mutable per-subsystem tracking record. It is
// only ever touched by the actor goroutine.
type recoveryState struct {
	State         State
	CurrentRetry  int
	LastAttempt   time.Time
	LastError     string
	LastRespawnAt time.Time
}

func splitSubsystemID(id string) (providerType, providerID string) {
	if idx := strings.IndexByte(id, ':'); idx >= 0 {
		return id[:idx], id[idx+1:]
	}
	return id, ""
}
