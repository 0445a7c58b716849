// Package usage derives start/stop/duration records from the false→true→false
// cycles of a device's active feedback.
package usage

import (
	"time"

	"go.uber.org/zap"

	"github.com/avbuild/roomsync/internal/pkg/feedback"
)

// Record is one closed interval during which a device was active. Emitted
// records are immutable.
type Record struct {
	DeviceKey string
	Start     time.Time
	End       time.Time
	Duration  time.Duration
}

// Sink receives completed usage records.
type Sink func(Record)

// Tracker accumulates usage for a single device. At most one record is open
// at a time; it closes exactly on the tracked feedback's true→false edge.
type Tracker struct {
	deviceKey string
	now       func() time.Time
	sink      Sink
	open      bool
	start     time.Time
	logger    *zap.Logger
}

// Manager owns the trackers of a room and enforces the one-tracker-per-
// feedback rule: a duplicate attach is a configuration error reported with a
// warning, and the earlier attachment wins.
type Manager struct {
	now      func() time.Time
	sink     Sink
	attached map[*feedback.Bool]*Tracker
	logger   *zap.Logger
}

func NewManager(sink Sink, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{
		now:      now,
		sink:     sink,
		attached: make(map[*feedback.Bool]*Tracker),
		logger:   zap.L(),
	}
}

// Track attaches a tracker to the device's active feedback and returns it.
// If the feedback is already tracked the existing tracker is returned.
func (m *Manager) Track(deviceKey string, active *feedback.Bool) *Tracker {
	if existing, ok := m.attached[active]; ok {
		m.logger.Warn("usage tracker already attached to feedback, keeping earlier attachment",
			zap.String("device", deviceKey), zap.String("feedback", active.Name()))
		return existing
	}
	t := &Tracker{
		deviceKey: deviceKey,
		now:       m.now,
		sink:      m.sink,
		logger:    m.logger,
	}
	m.attached[active] = t
	if active.Value() {
		t.begin()
	}
	active.Subscribe(func(on bool) {
		if on {
			t.begin()
		} else {
			t.end()
		}
	})
	return t
}

func (t *Tracker) begin() {
	if t.open {
		return
	}
	t.open = true
	t.start = t.now()
}

func (t *Tracker) end() {
	if !t.open {
		return
	}
	t.open = false
	end := t.now()
	rec := Record{
		DeviceKey: t.deviceKey,
		Start:     t.start,
		End:       end,
		Duration:  end.Sub(t.start),
	}
	t.logger.Debug("device usage ended",
		zap.String("device", rec.DeviceKey), zap.Duration("duration", rec.Duration))
	if t.sink != nil {
		t.sink(rec)
	}
}

// Open reports whether a usage interval is currently open.
func (t *Tracker) Open() bool {
	return t.open
}
