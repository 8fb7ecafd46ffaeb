package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// newTestMonitor returns a monitor pinned to the given status, with a
// probe that never runs on its own.
func newTestMonitor(t *testing.T, online bool) *Monitor {
	t.Helper()

	m := NewMonitor(func(context.Context) bool { return online }, time.Hour, testLogger(t))
	m.SetOnline(online)

	return m
}

func TestMonitorInitialStatus(t *testing.T) {
	m := NewMonitor(func(context.Context) bool { return true }, time.Hour, testLogger(t))
	assert.False(t, m.Online(), "offline until the first probe")
}

func TestMonitorProbe(t *testing.T) {
	reachable := false
	m := NewMonitor(func(context.Context) bool { return reachable }, time.Hour, testLogger(t))

	assert.False(t, m.Probe(context.Background()))

	reachable = true
	assert.True(t, m.Probe(context.Background()))
	assert.True(t, m.Online())
}

func TestMonitorSubscribe(t *testing.T) {
	m := newTestMonitor(t, false)
	ch := m.Subscribe()

	t.Run("transition is delivered", func(t *testing.T) {
		m.SetOnline(true)

		select {
		case change := <-ch:
			assert.True(t, change.Online)
			assert.False(t, change.At.IsZero())
		case <-time.After(time.Second):
			t.Fatal("no transition delivered")
		}
	})

	t.Run("no event without a transition", func(t *testing.T) {
		m.SetOnline(true) // already online

		select {
		case <-ch:
			t.Fatal("same-state set must not notify")
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("offline transition is delivered", func(t *testing.T) {
		m.SetOnline(false)

		select {
		case change := <-ch:
			assert.False(t, change.Online)
		case <-time.After(time.Second):
			t.Fatal("no transition delivered")
		}
	})
}

func TestMonitorSlowSubscriberDoesNotBlock(t *testing.T) {
	m := newTestMonitor(t, false)
	_ = m.Subscribe() // never drained

	done := make(chan struct{})

	go func() {
		defer close(done)

		// More transitions than the subscriber buffer holds.
		for i := range 32 {
			m.SetOnline(i%2 == 0)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor blocked on a slow subscriber")
	}
}
