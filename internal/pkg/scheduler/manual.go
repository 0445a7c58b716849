package scheduler

import (
	"sort"
	"time"
)

// Manual is a deterministic scheduler for tests. Callbacks fire from Advance
// on the calling goroutine, in due order.
type Manual struct {
	now     time.Duration
	nextID  int
	pending []*manualTimer
}

type manualTimer struct {
	owner   *Manual
	id      int
	due     time.Duration
	fn      func()
	stopped bool
}

func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) After(d time.Duration, fn func()) Timer {
	m.nextID++
	t := &manualTimer{owner: m, id: m.nextID, due: m.now + d, fn: fn}
	m.pending = append(m.pending, t)
	return t
}

// Advance moves the clock forward and fires every timer that comes due,
// including timers scheduled by the callbacks themselves.
func (m *Manual) Advance(d time.Duration) {
	target := m.now + d
	for {
		t := m.nextDue(target)
		if t == nil {
			break
		}
		m.now = t.due
		t.fn()
	}
	m.now = target
}

func (m *Manual) nextDue(target time.Duration) *manualTimer {
	sort.SliceStable(m.pending, func(i, j int) bool {
		if m.pending[i].due != m.pending[j].due {
			return m.pending[i].due < m.pending[j].due
		}
		return m.pending[i].id < m.pending[j].id
	})
	for i, t := range m.pending {
		if t.stopped {
			continue
		}
		if t.due <= target {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return t
		}
	}
	return nil
}

// Pending reports how many unfired timers remain.
func (m *Manual) Pending() int {
	n := 0
	for _, t := range m.pending {
		if !t.stopped {
			n++
		}
	}
	return n
}

func (t *manualTimer) Stop() bool {
	if t.stopped {
		return false
	}
	t.stopped = true
	return true
}
