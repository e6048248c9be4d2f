package recovery

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/codemesh-labs/routing-core/pkg/clock"
	"github.com/codemesh-labs/routing-core/pkg/events"
	"github.com/codemesh-labs/routing-core/pkg/observability"
)

// backgroundCtx is used for event-bus publishes issued from inside the
// actor goroutine, which has no request-scoped context of its own.
var backgroundCtx = context.Background()

// inboxCapacity matches the core's ~100-capacity actor mailbox
// convention (spec.md 9).
const inboxCapacity = 100

type message interface{}

type registerMsg struct {
	id    string
	reply chan struct{}
}

type unregisterMsg struct {
	id    string
	reply chan struct{}
}

type triggerMsg struct {
	id    string
	reply chan struct{}
}

type resetMsg struct {
	id    string
	reply chan struct{}
}

type checkAndRecoverMsg struct {
	id    string
	reply chan struct{}
}

type getStateMsg struct {
	id    string
	reply chan stateReply
}

type stateReply struct {
	state   State
	retries int
	ok      bool
}

type getStatesMsg struct {
	reply chan map[string]State
}

type startLoopMsg struct {
	interval time.Duration
	reply    chan struct{}
}

type stopLoopMsg struct {
	reply chan struct{}
}

type isRunningMsg struct {
	reply chan bool
}

type shutdownMsg struct{}

// Manager is the Recovery Manager of spec.md 4.6, implemented as a
// single-owner actor per spec.md 9's mandatory REDESIGN FLAG: all
// per-subsystem state lives exclusively inside run's goroutine and is
// reached only through the bounded inbox. Restart and Respawn
// strategies publish onto the shared system event bus
// (pkg/events.Bus), the same bus subsystem owners subscribe to.
type Manager struct {
	inbox chan message
	done  chan struct{}
}

// NewManager starts the actor goroutine and returns a handle to it. A
// nil clk defaults to the real wall clock; a nil logger becomes a
// no-op. The actor always subscribes to bus (if non-nil) at creation;
// incoming events are only acted upon once the loop is started via
// Start.
func NewManager(policies map[string]Policy, clk clock.Clock, bus events.Bus, logger observability.Logger) *Manager {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	def := policies["default"]
	if def.MaxRetries == 0 && def.BaseDelay == 0 {
		def = DefaultRecoveryPolicies()["default"]
	}

	var sub <-chan events.SystemEvent
	if bus != nil {
		sub = bus.Subscribe()
	}

	m := &Manager{
		inbox: make(chan message, inboxCapacity),
		done:  make(chan struct{}),
	}
	a := &recoveryActor{
		states:        make(map[string]*recoveryState),
		policies:      policies,
		defaultPolicy: def,
		clock:         clk,
		bus:           bus,
		logger:        logger,
		sub:           sub,
	}
	go a.run(m.inbox, m.done)
	return m
}

// recoveryActor owns all mutable recovery state; it is never touched
// outside its own goroutine (run).
type recoveryActor struct {
	states        map[string]*recoveryState
	policies      map[string]Policy
	defaultPolicy Policy

	clock  clock.Clock
	bus    events.Bus
	logger observability.Logger

	sub     <-chan events.SystemEvent
	ticker  *time.Ticker
	running bool
}

func (a *recoveryActor) run(inbox <-chan message, done chan<- struct{}) {
	defer close(done)

	// The ticker is created stopped; startLoopMsg resets it to the loop
	// interval and stopLoopMsg stops it again, so the ticker case below
	// only fires while the loop is running.
	a.ticker = time.NewTicker(time.Hour)
	a.ticker.Stop()
	defer a.ticker.Stop()

	for {
		select {
		case msg, ok := <-inbox:
			if !ok {
				return
			}
			if _, isShutdown := msg.(shutdownMsg); isShutdown {
				return
			}
			a.handle(msg)
		case evt, ok := <-a.sub:
			if !ok {
				a.sub = nil
				continue
			}
			if a.running {
				a.handleEvent(evt)
			}
		case <-tickerChan(a.ticker):
			if a.running {
				a.tick()
			}
		}
	}
}

// tickerChan returns t's channel, or nil if t is nil. A nil channel
// read blocks forever, so this safely disables the ticker case when no
// ticker has been created.
func tickerChan(t *time.Ticker) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

func (a *recoveryActor) handle(msg message) {
	switch m := msg.(type) {
	case registerMsg:
		a.register(m.id)
		m.reply <- struct{}{}
	case unregisterMsg:
		delete(a.states, m.id)
		m.reply <- struct{}{}
	case triggerMsg:
		a.trigger(m.id)
		m.reply <- struct{}{}
	case resetMsg:
		a.states[m.id] = &recoveryState{State: StateHealthy}
		m.reply <- struct{}{}
	case checkAndRecoverMsg:
		a.checkAndRecover(m.id)
		m.reply <- struct{}{}
	case getStateMsg:
		s, ok := a.states[m.id]
		if !ok {
			m.reply <- stateReply{}
			return
		}
		m.reply <- stateReply{state: s.State, retries: s.CurrentRetry, ok: true}
	case getStatesMsg:
		out := make(map[string]State, len(a.states))
		for id, s := range a.states {
			out[id] = s.State
		}
		m.reply <- out
	case startLoopMsg:
		a.running = true
		a.ticker.Reset(m.interval)
		m.reply <- struct{}{}
	case stopLoopMsg:
		a.running = false
		a.ticker.Stop()
		m.reply <- struct{}{}
	case isRunningMsg:
		m.reply <- a.running
	}
}

func (a *recoveryActor) register(id string) {
	if _, ok := a.states[id]; !ok {
		a.states[id] = &recoveryState{State: StateHealthy}
	}
}

func (a *recoveryActor) trigger(id string) {
	s, ok := a.states[id]
	if !ok {
		s = &recoveryState{}
		a.states[id] = s
	}
	s.State = StateRecovering
}

func (a *recoveryActor) handleEvent(evt events.SystemEvent) {
	if evt.Kind == events.KindSubsystemHealthCheck {
		a.trigger(evt.SubsystemID)
		a.checkAndRecover(evt.SubsystemID)
	}
}

func (a *recoveryActor) tick() {
	for id := range a.states {
		a.checkAndRecover(id)
	}
}

func (a *recoveryActor) policyFor(id string) Policy {
	if p, ok := a.policies[id]; ok {
		return p
	}
	return a.defaultPolicy
}

// shouldAttemptRecovery implements spec.md 4.6's should_attempt_recovery:
// state is Recovering, elapsed since last attempt is at least the
// policy's backoff for the current retry count, and retries remain.
func (a *recoveryActor) shouldAttemptRecovery(s *recoveryState, p Policy, now time.Time) bool {
	if s.State != StateRecovering {
		return false
	}
	if p.MaxRetries > 0 && s.CurrentRetry >= p.MaxRetries {
		return false
	}
	if s.LastAttempt.IsZero() {
		return true
	}
	return now.Sub(s.LastAttempt) >= p.backoff(s.CurrentRetry)
}

// checkAndRecover implements spec.md 4.6's check_and_recover(id).
func (a *recoveryActor) checkAndRecover(id string) {
	s, ok := a.states[id]
	if !ok {
		return
	}
	p := a.policyFor(id)
	now := a.clock.Now()

	if !a.shouldAttemptRecovery(s, p, now) {
		return
	}

	s.LastAttempt = now
	s.CurrentRetry++
	if p.MaxRetries > 0 && s.CurrentRetry >= p.MaxRetries {
		s.State = StateExhausted
	}

	a.applyStrategy(p.Strategy, id, s, now)
}

func (a *recoveryActor) applyStrategy(strategy Strategy, id string, s *recoveryState, now time.Time) {
	retryCount := s.CurrentRetry
	switch strategy {
	case StrategyRestart:
		providerType, providerID := splitSubsystemID(id)
		if a.bus != nil {
			a.bus.Publish(backgroundCtx, events.ProviderRestart(providerType, providerID))
		}
	case StrategySkip:
		a.logger.Info("recovery: skip strategy, no action taken", map[string]interface{}{"id": id, "retry": retryCount})
	case StrategyAlert:
		a.logger.Error("recovery: alert strategy, manual intervention required", map[string]interface{}{"id": id, "retry": retryCount})
	case StrategyRespawn:
		// Respawn is the most disruptive strategy, so it escalates its
		// own spacing independently of the policy's own backoff, via
		// cenkalti/backoff/v4: the respawn event only fires once the
		// escalation delay for the current retry count has actually
		// elapsed since the last respawn, so retries don't fire the
		// respawn event every check_and_recover tick.
		escalation := respawnEscalationDelay(retryCount)
		if !s.LastRespawnAt.IsZero() && now.Sub(s.LastRespawnAt) < escalation {
			a.logger.Warn("recovery: respawn strategy escalating, holding off", map[string]interface{}{
				"id": id, "retry": retryCount, "escalation_delay": escalation.String(),
			})
			return
		}
		s.LastRespawnAt = now
		a.logger.Warn("recovery: respawn strategy firing", map[string]interface{}{
			"id": id, "retry": retryCount, "escalation_delay": escalation.String(),
		})
		if a.bus != nil {
			a.bus.Publish(backgroundCtx, events.Respawn())
		}
	}
}

// respawnEscalationDelay reports the minimum spacing between respawn
// events for a given retry count, using the same exponential-backoff
// shape as pkg/recovery.Policy.backoff but via the ecosystem's
// cenkalti/backoff/v4, grounded in the teacher's go.mod dependency on
// that library.
func respawnEscalationDelay(retryCount int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 5 * time.Minute
	b.Multiplier = 2.0
	b.RandomizationFactor = 0

	var delay time.Duration
	for i := 0; i <= retryCount; i++ {
		delay = b.NextBackOff()
	}
	return delay
}

// RegisterSubsystem starts tracking id as Healthy.
func (m *Manager) RegisterSubsystem(id string) {
	reply := make(chan struct{}, 1)
	m.inbox <- registerMsg{id: id, reply: reply}
	<-reply
}

// UnregisterSubsystem stops tracking id.
func (m *Manager) UnregisterSubsystem(id string) {
	reply := make(chan struct{}, 1)
	m.inbox <- unregisterMsg{id: id, reply: reply}
	<-reply
}

// TriggerRecovery marks id as needing recovery (Recovering), as if its
// next health check had just failed.
func (m *Manager) TriggerRecovery(id string) {
	reply := make(chan struct{}, 1)
	m.inbox <- triggerMsg{id: id, reply: reply}
	<-reply
}

// ResetRecoveryState clears id back to Healthy with a fresh retry
// budget, per spec.md 4.6.
func (m *Manager) ResetRecoveryState(id string) {
	reply := make(chan struct{}, 1)
	m.inbox <- resetMsg{id: id, reply: reply}
	<-reply
}

// CheckAndRecover implements spec.md 4.6's check_and_recover(id).
func (m *Manager) CheckAndRecover(id string) {
	reply := make(chan struct{}, 1)
	m.inbox <- checkAndRecoverMsg{id: id, reply: reply}
	<-reply
}

// GetRecoveryState returns a copy of id's state, if tracked.
func (m *Manager) GetRecoveryState(id string) (State, int, bool) {
	reply := make(chan stateReply, 1)
	m.inbox <- getStateMsg{id: id, reply: reply}
	r := <-reply
	return r.state, r.retries, r.ok
}

// GetRecoveryStates returns every tracked subsystem's state.
func (m *Manager) GetRecoveryStates() map[string]State {
	reply := make(chan map[string]State, 1)
	m.inbox <- getStatesMsg{reply: reply}
	return <-reply
}

// Shutdown stops the actor goroutine and waits for it to exit.
func (m *Manager) Shutdown() {
	m.inbox <- shutdownMsg{}
	<-m.done
}
