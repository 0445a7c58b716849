// Package device models the room's physical equipment: a shared base with an
// explicit capability set, the power warmup/cooldown state machine, and the
// display / codec / source device types built on them.
package device

// Capability is an explicitly declared device ability. Binding code queries
// the capability set instead of probing concrete types.
type Capability string

const (
	CapabilityPower               Capability = "power"
	CapabilityUsage               Capability = "usage"
	CapabilityCommunicationStatus Capability = "communication_status"
	CapabilityDisplayUsage        Capability = "display_usage"
	CapabilityNetworkAddress      Capability = "network_address"
)

// MonitorStatus is the communication-monitor state of a device.
type MonitorStatus string

const (
	StatusOk      MonitorStatus = "ok"
	StatusError   MonitorStatus = "error"
	StatusUnknown MonitorStatus = "unknown"
)

type Device interface {
	Key() string
	Name() string
	Has(Capability) bool
}

// Base carries the identity shared by all device types. Key is immutable
// after construction and is the runtime identity; the persistent UID used for
// slot allocation lives in configuration.
type Base struct {
	key  string
	name string
	caps map[Capability]struct{}
}

func newBase(key, name string, caps ...Capability) Base {
	set := make(map[Capability]struct{}, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return Base{key: key, name: name, caps: set}
}

func (b *Base) Key() string {
	return b.key
}

func (b *Base) Name() string {
	return b.name
}

func (b *Base) Has(c Capability) bool {
	_, ok := b.caps[c]
	return ok
}
