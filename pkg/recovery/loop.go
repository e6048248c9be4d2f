package recovery

import "time"

// Loop is a handle onto the Recovery Manager actor's built-in periodic
// tick and event-bus subscription (per spec.md 4.6's "single
// background task"). Start and Stop only toggle whether the actor acts
// on ticks/events; they never spawn a second goroutine, keeping the
// actor the sole owner of all recovery state per spec.md 9.
type Loop struct {
	manager  *Manager
	interval time.Duration
}

// NewLoop creates a Loop over manager. healthCheckInterval governs how
// often the actor re-evaluates every registered subsystem when no
// SubsystemHealthCheck event has arrived; <=0 defaults to 30s.
func NewLoop(manager *Manager, healthCheckInterval time.Duration) *Loop {
	if healthCheckInterval <= 0 {
		healthCheckInterval = 30 * time.Second
	}
	return &Loop{manager: manager, interval: healthCheckInterval}
}

// Start enables the actor's ticker and event handling.
func (l *Loop) Start() {
	reply := make(chan struct{}, 1)
	l.manager.inbox <- startLoopMsg{interval: l.interval, reply: reply}
	<-reply
}

// Stop disables the actor's ticker and event handling.
func (l *Loop) Stop() {
	reply := make(chan struct{}, 1)
	l.manager.inbox <- stopLoopMsg{reply: reply}
	<-reply
}

// IsRunning reports whether the actor is currently acting on
// ticks/events.
func (l *Loop) IsRunning() bool {
	reply := make(chan bool, 1)
	l.manager.inbox <- isRunningMsg{reply: reply}
	return <-reply
}
