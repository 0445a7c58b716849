package device

import (
	"time"

	"github.com/avbuild/roomsync/internal/pkg/feedback"
	"github.com/avbuild/roomsync/internal/pkg/scheduler"
)

const (
	DefaultWarmupTime   = 7 * time.Second
	DefaultCooldownTime = 15 * time.Second
)

// Display is a two-way display: power with warmup/cooldown, input switching
// with a current-input feedback, lamp-hour reporting and a communication
// monitor.
type Display struct {
	Base
	machine *PowerMachine

	PowerIsOn     *feedback.Bool
	IsWarmingUp   *feedback.Bool
	IsCoolingDown *feedback.Bool
	CurrentInput  *feedback.String
	LampHours     *feedback.Uint
	CommStatus    *feedback.Feedback[MonitorStatus]
}

func NewDisplay(key, name string, warmup, cooldown time.Duration, sched scheduler.Scheduler) *Display {
	if warmup <= 0 {
		warmup = DefaultWarmupTime
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldownTime
	}
	d := &Display{
		Base: newBase(key, name,
			CapabilityPower, CapabilityUsage, CapabilityCommunicationStatus, CapabilityDisplayUsage),
		machine: NewPowerMachine(key, warmup, cooldown, sched),
	}
	d.PowerIsOn = feedback.New(key+":power_is_on", func() (bool, error) {
		return d.machine.State() == PowerOn, nil
	})
	d.IsWarmingUp = feedback.New(key+":is_warming_up", func() (bool, error) {
		return d.machine.State() == PowerWarmingUp, nil
	})
	d.IsCoolingDown = feedback.New(key+":is_cooling_down", func() (bool, error) {
		return d.machine.State() == PowerCoolingDown, nil
	})
	d.CurrentInput = feedback.NewPushed[string](key + ":current_input")
	d.LampHours = feedback.NewPushed[uint16](key + ":lamp_hours")
	d.CommStatus = feedback.NewPushed[MonitorStatus](key + ":comm_status")
	d.CommStatus.Push(StatusUnknown)

	d.machine.OnChange(func(PowerState) {
		d.PowerIsOn.Resolve()
		d.IsWarmingUp.Resolve()
		d.IsCoolingDown.Resolve()
	})
	return d
}

func (d *Display) PowerOn() {
	d.machine.RequestOn()
}

func (d *Display) PowerOff() {
	d.machine.RequestOff()
}

func (d *Display) PowerToggle() {
	switch d.machine.State() {
	case PowerOn, PowerWarmingUp:
		d.machine.RequestOff()
	default:
		d.machine.RequestOn()
	}
}

func (d *Display) PowerState() PowerState {
	return d.machine.State()
}

// SelectInput switches the display to the named input.
func (d *Display) SelectInput(name string) {
	d.CurrentInput.Push(name)
}

// ReportLampHours is called by the driver when the display reports usage.
func (d *Display) ReportLampHours(hours uint16) {
	d.LampHours.Push(hours)
}

// SetCommStatus is called by the communication monitor.
func (d *Display) SetCommStatus(s MonitorStatus) {
	d.CommStatus.Push(s)
}

func (d *Display) Teardown() {
	d.machine.Teardown()
}
