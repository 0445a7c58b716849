// Package fusion models the external monitoring system's fixed-layout signal
// table for one room: statically addressed sigs, outbound update fan-out and
// inbound write-back dispatch. The wire protocol itself lives behind the
// publisher interface; this package only owns the table.
package fusion

import (
	"encoding/json"
	"fmt"

	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

// Fixed room-attribute offsets, reserved below the custom sig layout.
const (
	OffsetSystemPowerOn   uint = 20
	OffsetSystemPowerOff  uint = 21
	OffsetDisplayPowerOn  uint = 22
	OffsetDisplayPowerOff uint = 23
	OffsetDisplayUsage    uint = 24
)

// Custom sig layout, reserved per room-layout category.
const (
	OffsetVolumeFader    uint = 50
	OffsetCodecInCall    uint = 69
	OffsetCurrentSource  uint = 84
	OffsetCodecIPAddress uint = 121
	OffsetCodecOnline    uint = 122
	OffsetCodecIPPort    uint = 150

	DisplayJoinBase uint = 158 // +0 power on, +1 power off, +8 source none

	LaptopBlockBase     uint = 166
	LaptopBlockMax           = 10
	DiscPlayerBlockBase uint = 181
	DiscPlayerBlockMax       = 5
	SetTopBoxBlockBase  uint = 188
	SetTopBoxBlockMax        = 5
)

// Per-asset join block: each allocated asset slot owns a small block of
// offsets above the custom layout.
const (
	assetBlockOrigin uint = 300
	assetBlockStride uint = 8

	AssetPowerOnJoin  uint = 0
	AssetPowerOffJoin uint = 1
	AssetOnlineJoin   uint = 2
)

// AssetBlockBase returns the first offset of an asset slot's join block.
func AssetBlockBase(slot int) uint {
	return assetBlockOrigin + uint(slot)*assetBlockStride
}

type anySig interface {
	resend()
	dispatch(raw json.RawMessage) error
}

func (s *Sig[T]) resend() {
	if s.emitted {
		s.room.push(s.update())
	}
}

func (s *Sig[T]) dispatch(raw json.RawMessage) error {
	return s.applyWriteBack(raw)
}

// Room is one room's signal table plus its fixed attribute sigs.
type Room struct {
	name     string
	sigs     map[uint]anySig
	onUpdate []func(Update)
	logger   *zap.Logger

	SystemPowerOn   *BoolSig
	SystemPowerOff  *BoolSig
	DisplayPowerOn  *BoolSig
	DisplayPowerOff *BoolSig
	DisplayUsage    *UintSig
}

func NewRoom(name string) *Room {
	r := &Room{
		name:   name,
		sigs:   map[uint]anySig{},
		logger: zap.L(),
	}
	// Reserved attributes always exist; offset collisions are impossible here.
	r.SystemPowerOn, _ = r.CreateOffsetBoolSig(OffsetSystemPowerOn, "System Power On", InputOutput)
	r.SystemPowerOff, _ = r.CreateOffsetBoolSig(OffsetSystemPowerOff, "System Power Off", InputOutput)
	r.DisplayPowerOn, _ = r.CreateOffsetBoolSig(OffsetDisplayPowerOn, "Display Power On", InputOutput)
	r.DisplayPowerOff, _ = r.CreateOffsetBoolSig(OffsetDisplayPowerOff, "Display Power Off", InputOutput)
	r.DisplayUsage, _ = r.CreateOffsetUintSig(OffsetDisplayUsage, "Display Usage", InputOnly)
	return r
}

func (r *Room) Name() string {
	return r.name
}

// OnUpdate registers a fan-out subscriber for outbound sig updates.
func (r *Room) OnUpdate(fn func(Update)) {
	r.onUpdate = append(r.onUpdate, fn)
}

func (r *Room) CreateOffsetBoolSig(offset uint, name string, mask IOMask) (*BoolSig, error) {
	return createSig[bool](r, offset, name, mask, KindBool)
}

func (r *Room) CreateOffsetUintSig(offset uint, name string, mask IOMask) (*UintSig, error) {
	return createSig[uint16](r, offset, name, mask, KindUint)
}

func (r *Room) CreateOffsetStringSig(offset uint, name string, mask IOMask) (*StringSig, error) {
	return createSig[string](r, offset, name, mask, KindString)
}

func createSig[T comparable](r *Room, offset uint, name string, mask IOMask, kind Kind) (*Sig[T], error) {
	if _, taken := r.sigs[offset]; taken {
		return nil, fmt.Errorf("sig offset %d already bound, cannot create %q", offset, name)
	}
	s := &Sig[T]{
		room:    r,
		offset:  offset,
		name:    name,
		slugged: slug.Make(name),
		mask:    mask,
		kind:    kind,
		logger:  r.logger,
	}
	r.sigs[offset] = s
	return s, nil
}

// Release frees an offset so a block can be re-assigned when the room's
// source list changes.
func (r *Room) Release(offset uint) {
	delete(r.sigs, offset)
}

func (r *Room) ReleaseRange(lo, hi uint) {
	for o := lo; o <= hi; o++ {
		delete(r.sigs, o)
	}
}

// ApplyWriteBack routes one external write to its sig's bound action.
func (r *Room) ApplyWriteBack(offset uint, raw json.RawMessage) error {
	s, ok := r.sigs[offset]
	if !ok {
		return fmt.Errorf("no sig at offset %d", offset)
	}
	return s.dispatch(raw)
}

// Resync re-pushes every sig's current input value so a reconnected external
// system converges on current truth.
func (r *Room) Resync() {
	for _, s := range r.sigs {
		s.resend()
	}
}

func (r *Room) push(u Update) {
	for _, fn := range r.onUpdate {
		fn(u)
	}
}
