//go:build unit

package editor

import (
	"bytes"
	"context"
	"errors"
	"nomad-cms/internal/config"
	"nomad-cms/internal/logger"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutosaver_DebouncesBursts(t *testing.T) {
	clock := newFakeClock()
	calls := 0
	a := NewAutosaver(30*time.Second, time.Second, clock, logger.Nop(), func(context.Context) error {
		calls++
		return nil
	})

	for i := 0; i < 5; i++ {
		a.Notify()
		clock.Advance(time.Second)
	}
	assert.Equal(t, AutosavePending, a.State())

	clock.Advance(28 * time.Second)
	assert.Equal(t, 0, calls, "quiet period restarts on every change")

	clock.Advance(time.Second)
	assert.Equal(t, 1, calls)
	assert.Equal(t, AutosaveIdle, a.State())

	clock.Advance(time.Minute)
	assert.Equal(t, 1, calls)
}

func TestAutosaver_StateDuringSave(t *testing.T) {
	clock := newFakeClock()
	var a *Autosaver
	var during AutosaveState
	a = NewAutosaver(time.Second, time.Second, clock, logger.Nop(), func(ctx context.Context) error {
		during = a.State()
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return nil
	})

	assert.Equal(t, AutosaveIdle, a.State())
	a.Notify()
	clock.Advance(time.Second)

	assert.Equal(t, AutosaveSaving, during)
	assert.Equal(t, AutosaveIdle, a.State())
}

func TestAutosaver_FailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(config.LogConfig{Level: "info", Format: "json"}, &buf)
	clock := newFakeClock()
	a := NewAutosaver(time.Second, time.Second, clock, log, func(context.Context) error {
		return errors.New("disk full")
	})

	a.Notify()
	clock.Advance(time.Second)

	assert.Contains(t, buf.String(), "Autosave failed")
	assert.Contains(t, buf.String(), "disk full")
	assert.Equal(t, AutosaveIdle, a.State(), "failed autosave waits for the next edit")
}

func TestAutosaver_BusyRearms(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(config.LogConfig{Level: "debug", Format: "json"}, &buf)
	clock := newFakeClock()
	calls := 0
	a := NewAutosaver(time.Second, time.Second, clock, log, func(context.Context) error {
		calls++
		if calls == 1 {
			return ErrBusy
		}
		return nil
	})

	a.Notify()
	clock.Advance(time.Second)
	assert.Equal(t, 1, calls)
	assert.Equal(t, AutosavePending, a.State())
	assert.Empty(t, buf.String())

	clock.Advance(time.Second)
	assert.Equal(t, 2, calls)
	assert.Equal(t, AutosaveIdle, a.State())
}

func TestAutosaver_ChangeDuringSaveRearms(t *testing.T) {
	clock := newFakeClock()
	var a *Autosaver
	calls := 0
	a = NewAutosaver(time.Second, time.Second, clock, logger.Nop(), func(context.Context) error {
		calls++
		if calls == 1 {
			a.Notify()
		}
		return nil
	})

	a.Notify()
	clock.Advance(time.Second)
	require.Equal(t, 1, calls)
	assert.Equal(t, AutosavePending, a.State())

	clock.Advance(time.Second)
	assert.Equal(t, 2, calls)
	assert.Equal(t, AutosaveIdle, a.State())
}

func TestAutosaver_Stop(t *testing.T) {
	clock := newFakeClock()
	calls := 0
	a := NewAutosaver(time.Second, time.Second, clock, logger.Nop(), func(context.Context) error {
		calls++
		return nil
	})

	a.Notify()
	a.Stop()
	a.Stop()
	assert.Equal(t, AutosaveIdle, a.State())

	a.Notify()
	clock.Advance(time.Minute)
	assert.Equal(t, 0, calls)
	assert.Equal(t, AutosaveIdle, a.State())
}

func TestAutosaver_Defaults(t *testing.T) {
	a := NewAutosaver(0, 0, nil, nil, func(context.Context) error { return nil })

	assert.Equal(t, DefaultAutosaveDelay, a.delay)
	assert.Equal(t, DefaultGatewayTimeout, a.timeout)
	assert.Equal(t, "idle", a.State().String())
	a.Stop()
}
