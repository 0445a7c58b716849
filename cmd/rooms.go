package cmd

import (
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/avbuild/roomsync/internal/pkg/room"
)

// controllerSet holds the process's room controllers and adapts them to the
// HTTP server and the fusion transport.
type controllerSet struct {
	byKey map[string]*room.Controller
	order []string
}

func newControllerSet() *controllerSet {
	return &controllerSet{byKey: map[string]*room.Controller{}}
}

func (s *controllerSet) add(c *room.Controller) {
	s.byKey[c.Key()] = c
	s.order = append(s.order, c.Key())
}

func (s *controllerSet) all() []*room.Controller {
	out := make([]*room.Controller, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.byKey[key])
	}
	return out
}

func (s *controllerSet) handleWriteBack(roomKey string, offset uint, value json.RawMessage) {
	c, ok := s.byKey[roomKey]
	if !ok {
		zap.L().Warn("write-back for unknown room", zap.String("room", roomKey))
		return
	}
	c.HandleWriteBack(offset, value)
}

func (s *controllerSet) resyncAll() {
	for _, c := range s.all() {
		c.Resync()
	}
}

func (s *controllerSet) teardownAll() {
	for _, c := range s.all() {
		c.Teardown()
	}
}

func (s *controllerSet) Rooms() []room.Status {
	out := make([]room.Status, 0, len(s.order))
	for _, c := range s.all() {
		out = append(out, c.Status())
	}
	return out
}

func (s *controllerSet) Room(key string) (room.Status, bool) {
	c, ok := s.byKey[key]
	if !ok {
		return room.Status{}, false
	}
	return c.Status(), true
}

func (s *controllerSet) PowerOn(key string) error {
	c, ok := s.byKey[key]
	if !ok {
		return errors.New("room not found")
	}
	return c.PowerOn()
}

func (s *controllerSet) PowerOff(key string) error {
	c, ok := s.byKey[key]
	if !ok {
		return errors.New("room not found")
	}
	return c.PowerOff()
}
