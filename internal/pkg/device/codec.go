package device

import (
	"github.com/avbuild/roomsync/internal/pkg/feedback"
)

// Codec is a video codec with standby semantics. PowerIsOn is the complement
// of standby; fusion power actions map to standby activate/deactivate.
type Codec struct {
	Base
	standby bool
	inCall  bool
	volume  uint16
	address string
	port    int

	StandbyIsOn *feedback.Bool
	PowerIsOn   *feedback.Bool
	InCall      *feedback.Bool
	VolumeLevel *feedback.Uint
	CommStatus  *feedback.Feedback[MonitorStatus]
}

func NewCodec(key, name, address string, port int) *Codec {
	caps := []Capability{CapabilityPower, CapabilityUsage, CapabilityCommunicationStatus}
	if address != "" {
		caps = append(caps, CapabilityNetworkAddress)
	}
	c := &Codec{
		Base:    newBase(key, name, caps...),
		standby: true,
		address: address,
		port:    port,
	}
	c.StandbyIsOn = feedback.New(key+":standby_is_on", func() (bool, error) {
		return c.standby, nil
	})
	c.PowerIsOn = feedback.New(key+":power_is_on", func() (bool, error) {
		return !c.standby, nil
	})
	c.InCall = feedback.New(key+":in_call", func() (bool, error) {
		return c.inCall, nil
	})
	c.VolumeLevel = feedback.New(key+":volume_level", func() (uint16, error) {
		return c.volume, nil
	})
	c.CommStatus = feedback.NewPushed[MonitorStatus](key + ":comm_status")
	c.CommStatus.Push(StatusUnknown)

	c.StandbyIsOn.Resolve() // establish the initial standby=true emission
	return c
}

func (c *Codec) StandbyActivate() {
	c.standby = true
	c.StandbyIsOn.Resolve()
	c.PowerIsOn.Resolve()
}

func (c *Codec) StandbyDeactivate() {
	c.standby = false
	c.StandbyIsOn.Resolve()
	c.PowerIsOn.Resolve()
}

func (c *Codec) SetVolume(level uint16) {
	c.volume = level
	c.VolumeLevel.Resolve()
}

// SetCallStatus is called by the codec driver on call state changes.
func (c *Codec) SetCallStatus(inCall bool) {
	c.inCall = inCall
	c.InCall.Resolve()
}

func (c *Codec) SetCommStatus(s MonitorStatus) {
	c.CommStatus.Push(s)
}

// NetworkAddress returns the configured control address, valid only when the
// codec has CapabilityNetworkAddress.
func (c *Codec) NetworkAddress() (string, int) {
	return c.address, c.port
}
