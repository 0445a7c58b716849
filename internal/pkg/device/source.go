package device

import (
	"github.com/avbuild/roomsync/internal/pkg/config"
	"github.com/avbuild/roomsync/internal/pkg/feedback"
)

// Source is a selectable source device (set-top box, disc player, laptop).
// InUse goes true while the source is routed to a display, which is what the
// usage tracker watches.
type Source struct {
	Base
	role  config.DeviceRole
	inUse bool

	InUse *feedback.Bool
}

func NewSource(key, name string, role config.DeviceRole) *Source {
	s := &Source{
		Base: newBase(key, name, CapabilityUsage),
		role: role,
	}
	s.InUse = feedback.New(key+":in_use", func() (bool, error) {
		return s.inUse, nil
	})
	return s
}

func (s *Source) Role() config.DeviceRole {
	return s.role
}

// SetInUse is driven by the room controller when routing changes.
func (s *Source) SetInUse(inUse bool) {
	s.inUse = inUse
	s.InUse.Resolve()
}
