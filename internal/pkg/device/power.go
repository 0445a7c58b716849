package device

import (
	"time"

	"go.uber.org/zap"

	"github.com/avbuild/roomsync/internal/pkg/scheduler"
)

type PowerState string

const (
	PowerOff         PowerState = "off"
	PowerWarmingUp   PowerState = "warming_up"
	PowerOn          PowerState = "on"
	PowerCoolingDown PowerState = "cooling_down"
)

// PowerMachine models the retained physical warmup/cooldown behaviour of
// lamp- and codec-class hardware. Once WarmingUp or CoolingDown is entered
// the phase always runs to completion on its own timer; a conflicting request
// received mid-phase is queued and honoured only at the stable endpoint.
type PowerMachine struct {
	key        string
	state      PowerState
	warmup     time.Duration
	cooldown   time.Duration
	sched      scheduler.Scheduler
	timer      scheduler.Timer
	pendingOn  bool
	pendingOff bool
	onChange   []func(PowerState)
	logger     *zap.Logger
}

func NewPowerMachine(key string, warmup, cooldown time.Duration, sched scheduler.Scheduler) *PowerMachine {
	return &PowerMachine{
		key:      key,
		state:    PowerOff,
		warmup:   warmup,
		cooldown: cooldown,
		sched:    sched,
		logger:   zap.L(),
	}
}

func (m *PowerMachine) State() PowerState {
	return m.state
}

// OnChange registers a listener fired on every state transition.
func (m *PowerMachine) OnChange(fn func(PowerState)) {
	m.onChange = append(m.onChange, fn)
}

// RequestOn asks for power. No-op when already On or WarmingUp; during
// CoolingDown the request is queued until Off is reached.
func (m *PowerMachine) RequestOn() {
	switch m.state {
	case PowerOn, PowerWarmingUp:
		m.pendingOff = false
	case PowerCoolingDown:
		m.pendingOn = true
		m.logger.Debug("power-on queued until cooldown completes", zap.String("device", m.key))
	case PowerOff:
		m.beginWarmup()
	}
}

// RequestOff mirrors RequestOn.
func (m *PowerMachine) RequestOff() {
	switch m.state {
	case PowerOff, PowerCoolingDown:
		m.pendingOn = false
	case PowerWarmingUp:
		m.pendingOff = true
		m.logger.Debug("power-off queued until warmup completes", zap.String("device", m.key))
	case PowerOn:
		m.beginCooldown()
	}
}

// Teardown cancels any pending phase timer. This is the only path that stops
// a running warmup or cooldown.
func (m *PowerMachine) Teardown() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *PowerMachine) beginWarmup() {
	m.setState(PowerWarmingUp)
	m.timer = m.sched.After(m.warmup, m.warmupDone)
}

func (m *PowerMachine) beginCooldown() {
	m.setState(PowerCoolingDown)
	m.timer = m.sched.After(m.cooldown, m.cooldownDone)
}

func (m *PowerMachine) warmupDone() {
	m.timer = nil
	m.setState(PowerOn)
	if m.pendingOff {
		m.pendingOff = false
		m.beginCooldown()
	}
}

func (m *PowerMachine) cooldownDone() {
	m.timer = nil
	m.setState(PowerOff)
	if m.pendingOn {
		m.pendingOn = false
		m.beginWarmup()
	}
}

func (m *PowerMachine) setState(s PowerState) {
	m.state = s
	m.logger.Debug("power state changed", zap.String("device", m.key), zap.String("state", string(s)))
	for _, fn := range m.onChange {
		fn(s)
	}
}
