package device

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/avbuild/roomsync/internal/pkg/scheduler"
)

const (
	testWarmup   = 7 * time.Second
	testCooldown = 15 * time.Second
)

func newTestMachine() (*PowerMachine, *scheduler.Manual, *[]PowerState) {
	sched := scheduler.NewManual()
	m := NewPowerMachine("display-1", testWarmup, testCooldown, sched)
	var states []PowerState
	m.OnChange(func(s PowerState) { states = append(states, s) })
	return m, sched, &states
}

func TestPowerOnRunsFullWarmup(t *testing.T) {
	m, sched, states := newTestMachine()

	m.RequestOn()
	assert.Equal(t, PowerWarmingUp, m.State())

	sched.Advance(testWarmup - time.Millisecond)
	assert.Equal(t, PowerWarmingUp, m.State(), "warmup must not complete early")

	sched.Advance(time.Millisecond)
	assert.Equal(t, PowerOn, m.State())
	assert.Equal(t, []PowerState{PowerWarmingUp, PowerOn}, *states)
}

func TestPowerOffDuringWarmupQueuesUntilWarm(t *testing.T) {
	m, sched, states := newTestMachine()

	m.RequestOn()
	sched.Advance(2 * time.Second)
	m.RequestOff()
	assert.Equal(t, PowerWarmingUp, m.State(), "warmup always runs to completion")

	sched.Advance(testWarmup)
	assert.Equal(t, PowerCoolingDown, m.State(), "queued off starts cooldown once warm")

	sched.Advance(testCooldown)
	assert.Equal(t, PowerOff, m.State())
	assert.Equal(t, []PowerState{PowerWarmingUp, PowerOn, PowerCoolingDown, PowerOff}, *states)
}

func TestPowerOnDuringCooldownQueuesUntilOff(t *testing.T) {
	m, sched, _ := newTestMachine()

	m.RequestOn()
	sched.Advance(testWarmup)
	m.RequestOff()
	assert.Equal(t, PowerCoolingDown, m.State())

	m.RequestOn()
	assert.Equal(t, PowerCoolingDown, m.State(), "cooldown always runs to completion")

	sched.Advance(testCooldown)
	assert.Equal(t, PowerWarmingUp, m.State(), "queued on starts warmup once off")

	sched.Advance(testWarmup)
	assert.Equal(t, PowerOn, m.State())
}

func TestRepeatedRequestsAreIdempotent(t *testing.T) {
	m, sched, states := newTestMachine()

	m.RequestOff()
	assert.Equal(t, PowerOff, m.State())
	assert.Empty(t, *states)

	m.RequestOn()
	m.RequestOn()
	assert.Equal(t, 1, sched.Pending(), "second request must not schedule another timer")

	sched.Advance(testWarmup)
	m.RequestOn()
	assert.Equal(t, PowerOn, m.State())
	assert.Equal(t, []PowerState{PowerWarmingUp, PowerOn}, *states)
}

func TestCancelQueuedRequest(t *testing.T) {
	m, sched, _ := newTestMachine()

	m.RequestOn()
	m.RequestOff()
	m.RequestOn() // cancels the queued off
	sched.Advance(testWarmup)
	assert.Equal(t, PowerOn, m.State(), "cancelled pending off must not run cooldown")
	assert.Equal(t, 0, sched.Pending())
}

func TestTeardownStopsPhaseTimer(t *testing.T) {
	m, sched, _ := newTestMachine()

	m.RequestOn()
	m.Teardown()

	sched.Advance(testWarmup)
	assert.Equal(t, PowerWarmingUp, m.State(), "no transition after teardown")
	assert.Equal(t, 0, sched.Pending())
}

func TestDisplayFeedbacksFollowMachine(t *testing.T) {
	sched := scheduler.NewManual()
	d := NewDisplay("display-1", "Main Display", 0, 0, sched)

	assert.False(t, d.PowerIsOn.Value())

	changes := 0
	d.PowerIsOn.Subscribe(func(bool) { changes++ })

	d.PowerOn()
	assert.True(t, d.IsWarmingUp.Value())
	assert.False(t, d.PowerIsOn.Value())

	sched.Advance(DefaultWarmupTime)
	assert.True(t, d.PowerIsOn.Value())
	assert.False(t, d.IsWarmingUp.Value())
	assert.Equal(t, 1, changes)

	d.PowerOff()
	assert.True(t, d.IsCoolingDown.Value())
	assert.False(t, d.PowerIsOn.Value(), "power feedback drops as soon as cooldown starts")
	assert.Equal(t, 2, changes)

	sched.Advance(DefaultCooldownTime)
	assert.Equal(t, PowerOff, d.PowerState())
	assert.Equal(t, 2, changes, "cooling_down to off must not re-notify power feedback")
}

func TestDisplayPowerToggle(t *testing.T) {
	sched := scheduler.NewManual()
	d := NewDisplay("display-1", "Main Display", time.Second, time.Second, sched)

	d.PowerToggle()
	assert.Equal(t, PowerWarmingUp, d.PowerState())

	sched.Advance(time.Second)
	d.PowerToggle()
	assert.Equal(t, PowerCoolingDown, d.PowerState())
}

func TestCodecPowerComplementsStandby(t *testing.T) {
	c := NewCodec("codec-1", "Room Codec", "10.0.0.5", 5060)

	assert.True(t, c.StandbyIsOn.Value(), "codec starts in standby")
	assert.False(t, c.PowerIsOn.Value())

	c.StandbyDeactivate()
	assert.False(t, c.StandbyIsOn.Value())
	assert.True(t, c.PowerIsOn.Value())

	c.StandbyActivate()
	assert.True(t, c.StandbyIsOn.Value())
	assert.False(t, c.PowerIsOn.Value())

	assert.True(t, c.Has(CapabilityNetworkAddress))
	host, port := c.NetworkAddress()
	assert.Equal(t, "10.0.0.5", host)
	assert.Equal(t, 5060, port)
}
