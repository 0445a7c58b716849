package fusion

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

type Kind string

const (
	KindBool   Kind = "bool"
	KindUint   Kind = "uint"
	KindString Kind = "string"
)

// IOMask is the direction of a sig as seen from the external system: input
// sigs carry device truth outward, output sigs carry write-backs inward.
type IOMask string

const (
	InputOnly   IOMask = "input"
	OutputOnly  IOMask = "output"
	InputOutput IOMask = "input_output"
)

func (m IOMask) hasInput() bool {
	return m == InputOnly || m == InputOutput
}

func (m IOMask) hasOutput() bool {
	return m == OutputOnly || m == InputOutput
}

// Update is one outbound sig value change, normalised for transports and
// publishers.
type Update struct {
	Room   string `json:"room"`
	Offset uint   `json:"offset"`
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	Kind   Kind   `json:"kind"`
	Value  string `json:"value"`
}

// Sig is one statically addressed slot in the room's signal table.
type Sig[T comparable] struct {
	room    *Room
	offset  uint
	name    string
	slugged string
	mask    IOMask
	kind    Kind
	input   T
	emitted bool
	output  func(T)
	logger  *zap.Logger
}

type (
	BoolSig   = Sig[bool]
	UintSig   = Sig[uint16]
	StringSig = Sig[string]
)

func (s *Sig[T]) Offset() uint {
	return s.offset
}

func (s *Sig[T]) Name() string {
	return s.name
}

// SetInput pushes a device-side value toward the external system. No-change
// writes are suppressed, except that the very first write always goes out so
// the external table converges after connect.
func (s *Sig[T]) SetInput(v T) {
	if !s.mask.hasInput() {
		s.logger.Warn("ignoring input write to output-only sig",
			zap.Uint("offset", s.offset), zap.String("sig", s.name))
		return
	}
	if s.emitted && v == s.input {
		return
	}
	s.input = v
	s.emitted = true
	s.room.push(s.update())
}

// InputValue returns the last pushed input value.
func (s *Sig[T]) InputValue() T {
	return s.input
}

// SetOutputAction binds the action invoked on external write-backs. A second
// binding conflicts; the first one wins and the conflict is reported.
func (s *Sig[T]) SetOutputAction(fn func(T)) {
	if !s.mask.hasOutput() {
		s.logger.Warn("sig is input-only, skipping output action binding",
			zap.Uint("offset", s.offset), zap.String("sig", s.name))
		return
	}
	if s.output != nil {
		s.logger.Warn("output action already bound to sig, keeping earlier binding",
			zap.Uint("offset", s.offset), zap.String("sig", s.name))
		return
	}
	s.output = fn
}

func (s *Sig[T]) update() Update {
	return Update{
		Room:   s.room.name,
		Offset: s.offset,
		Name:   s.name,
		Slug:   s.slugged,
		Kind:   s.kind,
		Value:  fmt.Sprintf("%v", s.input),
	}
}

// applyWriteBack decodes an external write and invokes the bound action
// exactly once. The action may change device state, and the resulting
// feedback update flows back out through SetInput; that reflected write is
// outbound by construction and is never re-dispatched as a command.
func (s *Sig[T]) applyWriteBack(raw json.RawMessage) error {
	if !s.mask.hasOutput() {
		return fmt.Errorf("sig %q at offset %d is not writable", s.name, s.offset)
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("decode write-back for sig %q: %w", s.name, err)
	}
	if s.output == nil {
		s.logger.Debug("write-back on sig with no bound action",
			zap.Uint("offset", s.offset), zap.String("sig", s.name))
		return nil
	}
	s.output(v)
	return nil
}
