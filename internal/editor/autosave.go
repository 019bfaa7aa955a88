package editor

import (
	"context"
	"errors"
	"nomad-cms/internal/logger"
	"sync"
	"time"
)

// AutosaveState is the state of an Autosaver.
type AutosaveState int

const (
	AutosaveIdle AutosaveState = iota
	AutosavePending
	AutosaveSaving
)

func (s AutosaveState) String() string {
	switch s {
	case AutosavePending:
		return "pending"
	case AutosaveSaving:
		return "saving"
	}
	return "idle"
}

const (
	// DefaultAutosaveDelay is the quiet period before an autosave fires.
	DefaultAutosaveDelay = 30 * time.Second
	// DefaultGatewayTimeout bounds each persistence call.
	DefaultGatewayTimeout = 10 * time.Second
)

// ErrBusy is returned by an autosave target when the persistence channel
// is held by another write. The Autosaver re-arms instead of logging.
var ErrBusy = errors.New("editor: persistence channel busy")

// Autosaver debounces change notifications into calls of a save target:
// only the last notification of a burst fires, once delay has passed
// without further notifications.
type Autosaver struct {
	delay   time.Duration
	timeout time.Duration
	clock   Clock
	log     logger.Logger
	target  func(ctx context.Context) error

	mu      sync.Mutex
	state   AutosaveState
	timer   Timer
	gen     uint64
	dirty   bool
	stopped bool
}

// NewAutosaver returns an idle Autosaver that calls target after delay.
func NewAutosaver(delay, timeout time.Duration, clock Clock, log logger.Logger, target func(ctx context.Context) error) *Autosaver {
	if delay <= 0 {
		delay = DefaultAutosaveDelay
	}
	if timeout <= 0 {
		timeout = DefaultGatewayTimeout
	}
	if clock == nil {
		clock = SystemClock()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Autosaver{delay: delay, timeout: timeout, clock: clock, log: log, target: target}
}

// Notify records a content change and (re)starts the quiet period. A change
// that arrives while a save is running re-arms the timer once it returns.
func (a *Autosaver) Notify() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return
	}
	if a.state == AutosaveSaving {
		a.dirty = true
		return
	}
	a.armLocked()
}

func (a *Autosaver) armLocked() {
	if a.timer != nil {
		a.timer.Stop()
	}
	a.gen++
	gen := a.gen
	a.state = AutosavePending
	a.timer = a.clock.AfterFunc(a.delay, func() { a.fire(gen) })
}

func (a *Autosaver) fire(gen uint64) {
	a.mu.Lock()
	if a.stopped || gen != a.gen || a.state != AutosavePending {
		a.mu.Unlock()
		return
	}
	a.state = AutosaveSaving
	a.timer = nil
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	err := a.target(ctx)
	cancel()

	if err != nil && !errors.Is(err, ErrBusy) {
		a.log.Error(err, "Autosave failed")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		a.state = AutosaveIdle
		return
	}
	if errors.Is(err, ErrBusy) || a.dirty {
		a.dirty = false
		a.armLocked()
		return
	}
	a.state = AutosaveIdle
}

// Stop cancels any pending autosave. A save already running completes but
// its outcome is discarded. Stop is idempotent.
func (a *Autosaver) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = true
	a.dirty = false
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	if a.state == AutosavePending {
		a.state = AutosaveIdle
	}
}

// State returns the current state.
func (a *Autosaver) State() AutosaveState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}
