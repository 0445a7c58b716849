package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualFiresInDueOrder(t *testing.T) {
	m := NewManual()

	var fired []string
	m.After(20*time.Millisecond, func() { fired = append(fired, "late") })
	m.After(10*time.Millisecond, func() { fired = append(fired, "early") })

	m.Advance(5 * time.Millisecond)
	assert.Empty(t, fired)

	m.Advance(20 * time.Millisecond)
	assert.Equal(t, []string{"early", "late"}, fired)
	assert.Equal(t, 0, m.Pending())
}

func TestManualStopPreventsFiring(t *testing.T) {
	m := NewManual()

	fired := false
	timer := m.After(time.Second, func() { fired = true })
	assert.True(t, timer.Stop())

	m.Advance(2 * time.Second)
	assert.False(t, fired)
	assert.False(t, timer.Stop(), "second stop reports already stopped")
}

func TestManualFiresTimersScheduledByCallbacks(t *testing.T) {
	m := NewManual()

	var fired []string
	m.After(10*time.Millisecond, func() {
		fired = append(fired, "first")
		m.After(10*time.Millisecond, func() { fired = append(fired, "chained") })
	})

	m.Advance(25 * time.Millisecond)
	assert.Equal(t, []string{"first", "chained"}, fired)
}
