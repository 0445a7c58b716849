// Package room orchestrates one room's device set: it builds devices from
// configuration, resolves asset slots, wires every feedback/action pair
// through the binder, and keeps the room aggregates synchronised.
//
// All state transitions for a room are serialised through the controller's
// mutex: timer completions arrive via the wrapped scheduler, external
// write-backs via HandleWriteBack, and user commands via Do. Rooms share no
// mutable state except the asset registry, which locks internally.
package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/avbuild/roomsync/internal/pkg/assets"
	"github.com/avbuild/roomsync/internal/pkg/binder"
	"github.com/avbuild/roomsync/internal/pkg/config"
	"github.com/avbuild/roomsync/internal/pkg/device"
	"github.com/avbuild/roomsync/internal/pkg/feedback"
	"github.com/avbuild/roomsync/internal/pkg/fusion"
	"github.com/avbuild/roomsync/internal/pkg/scheduler"
	"github.com/avbuild/roomsync/internal/pkg/usage"
)

const noSourceName = "None"

type Controller struct {
	mu       sync.Mutex
	cfg      config.RoomConfig
	registry *config.File
	slots    *assets.Registry
	fr       *fusion.Room
	usage    *usage.Manager
	sched    scheduler.Scheduler
	logger   *zap.Logger

	display *device.Display
	codec   *device.Codec
	sources []*boundSource

	currentSourceKey string
	currentSource    *feedback.String
	sourceOffsets    []uint
}

type boundSource struct {
	key string // source-list selection key
	dev *device.Source
	sig *fusion.BoolSig
}

// New builds the room's devices from configuration. Missing devices are
// reported and skipped; only a missing room entry itself is an error.
func New(cfg config.RoomConfig, registry *config.File, slots *assets.Registry, sched scheduler.Scheduler, sink usage.Sink) (*Controller, error) {
	if cfg.Key == "" {
		return nil, errors.New("room config has no key")
	}
	c := &Controller{
		cfg:      cfg,
		registry: registry,
		slots:    slots,
		fr:       fusion.NewRoom(cfg.Key),
		usage:    usage.NewManager(sink, nil),
		logger:   zap.L().With(zap.String("room", cfg.Key)),
	}
	c.sched = serialScheduler{c: c, inner: sched}
	c.currentSource = feedback.NewPushed[string](cfg.Key + ":current_source")
	c.currentSource.Push(noSourceName)

	if dc, ok := registry.Device(cfg.DisplayKey); ok {
		c.display = device.NewDisplay(dc.Key, dc.Name, dc.WarmupTime(), dc.CooldownTime(), c.sched)
	} else {
		c.logger.Warn("no display configured for room", zap.String("display_key", cfg.DisplayKey))
	}
	if cfg.CodecKey != "" {
		if dc, ok := registry.Device(cfg.CodecKey); ok {
			c.codec = device.NewCodec(dc.Key, dc.Name, dc.Address, dc.Port)
		} else {
			c.logger.Warn("codec key not found in device registry", zap.String("codec_key", cfg.CodecKey))
		}
	}
	c.buildSources()
	return c, nil
}

func (c *Controller) buildSources() {
	c.sources = nil
	entries, ok := c.registry.SourceList(c.cfg.SourceListKey)
	if !ok {
		c.logger.Warn("config source list not found for room",
			zap.String("source_list", c.cfg.SourceListKey))
		return
	}
	for _, e := range entries {
		dc, ok := c.registry.Device(e.SourceKey)
		if !ok {
			c.logger.Warn("source device not found in registry", zap.String("source_key", e.SourceKey))
			continue
		}
		c.sources = append(c.sources, &boundSource{
			key: e.Key,
			dev: device.NewSource(dc.Key, dc.Name, dc.Role),
		})
	}
}

func (c *Controller) Key() string {
	return c.cfg.Key
}

func (c *Controller) Name() string {
	return c.cfg.Name
}

// FusionRoom exposes the signal table so the process can attach publishers
// before Setup pushes the first values.
func (c *Controller) FusionRoom() *fusion.Room {
	return c.fr
}

// Display exposes the room's display for drivers and tests.
func (c *Controller) Display() *device.Display {
	return c.display
}

// Codec exposes the room's codec, nil when none is configured.
func (c *Controller) Codec() *device.Codec {
	return c.codec
}

// Do runs fn inside the room's serialised context.
func (c *Controller) Do(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn()
}

// HandleWriteBack funnels one external write into the serialised context.
func (c *Controller) HandleWriteBack(offset uint, raw json.RawMessage) {
	c.Do(func() {
		if err := c.fr.ApplyWriteBack(offset, raw); err != nil {
			c.logger.Warn("write-back rejected", zap.Uint("offset", offset), zap.Error(err))
		}
	})
}

// Resync re-pushes the whole signal table, used after a fusion reconnect.
func (c *Controller) Resync() {
	c.Do(c.fr.Resync)
}

// Setup wires every binding for the room. Individual failures are reported
// and skipped; Setup itself only fails on invariant violations.
func (c *Controller) Setup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setUpRoomSigs()
	c.setUpDisplay(ctx)
	c.setUpCodec(ctx)
	c.assignSources()
	return nil
}

func (c *Controller) setUpRoomSigs() {
	binder.BindTriggerOutput(c.fr.SystemPowerOn, c.powerOnToLastSource)
	binder.BindTriggerOutput(c.fr.SystemPowerOff, c.routeOff)
	if c.display != nil {
		binder.BindInput(c.display.PowerIsOn, c.fr.SystemPowerOn)
	}

	srcSig, err := c.fr.CreateOffsetStringSig(fusion.OffsetCurrentSource, "Display 1 - Current Source", fusion.InputOnly)
	if err != nil {
		c.logger.Warn("current source sig unavailable", zap.Error(err))
		return
	}
	binder.BindInput(c.currentSource, srcSig)
}

func (c *Controller) setUpDisplay(ctx context.Context) {
	if c.display == nil {
		c.logger.Info("cannot link display to fusion because display is null")
		return
	}
	d := c.display

	c.usage.Track(d.Key(), d.PowerIsOn)

	binder.BindTriggerOutput(c.fr.DisplayPowerOn, d.PowerOn)
	binder.BindTriggerOutput(c.fr.DisplayPowerOff, d.PowerOff)
	binder.BindInput(d.PowerIsOn, c.fr.DisplayPowerOn)
	if d.Has(device.CapabilityDisplayUsage) {
		binder.BindInput(d.LampHours, c.fr.DisplayUsage)
	}

	c.mapDisplayToRoomJoins(1, fusion.DisplayJoinBase, d)
	c.setUpStaticAsset(ctx, c.cfg.DisplayKey, d, "Display", d.PowerIsOn, d.PowerOn, d.PowerOff, d.CommStatus)
}

// mapDisplayToRoomJoins binds the per-display join block. Power on and power
// off each get their own sig and their own action.
func (c *Controller) mapDisplayToRoomJoins(displayIndex int, joinOffset uint, d *device.Display) {
	displayName := fmt.Sprintf("Display %d - ", displayIndex)

	powerOn, err := c.fr.CreateOffsetBoolSig(joinOffset, displayName+"Power On", fusion.InputOutput)
	if err == nil {
		binder.BindTriggerOutput(powerOn, d.PowerOn)
		binder.BindInput(d.PowerIsOn, powerOn)
	} else {
		c.logger.Warn("display power-on join unavailable", zap.Error(err))
	}

	powerOff, err := c.fr.CreateOffsetBoolSig(joinOffset+1, displayName+"Power Off", fusion.InputOutput)
	if err == nil {
		binder.BindTriggerOutput(powerOff, d.PowerOff)
		offFb := feedback.New(d.Key()+":power_is_off", func() (bool, error) {
			return d.PowerState() == device.PowerOff, nil
		})
		// Every machine transition flips at least one of these three.
		for _, phase := range []*feedback.Bool{d.PowerIsOn, d.IsWarmingUp, d.IsCoolingDown} {
			phase.Subscribe(func(bool) { offFb.Resolve() })
		}
		offFb.Resolve()
		binder.BindInput(offFb, powerOff)
	} else {
		c.logger.Warn("display power-off join unavailable", zap.Error(err))
	}

	sourceNone, err := c.fr.CreateOffsetBoolSig(joinOffset+8, displayName+"Source None", fusion.InputOutput)
	if err == nil {
		binder.BindTriggerOutput(sourceNone, c.routeOff)
	} else {
		c.logger.Warn("display source-none join unavailable", zap.Error(err))
	}
}

func (c *Controller) setUpCodec(ctx context.Context) {
	if c.codec == nil {
		c.logger.Info("cannot link codec to fusion because codec is null")
		return
	}
	codec := c.codec

	c.usage.Track(codec.Key(), codec.PowerIsOn)

	volume, err := c.fr.CreateOffsetUintSig(fusion.OffsetVolumeFader, "Volume - Fader01", fusion.InputOutput)
	if err == nil {
		binder.BindOutput(volume, codec.SetVolume)
		binder.BindInput(codec.VolumeLevel, volume)
	} else {
		c.logger.Warn("volume sig unavailable", zap.Error(err))
	}

	inCall, err := c.fr.CreateOffsetBoolSig(fusion.OffsetCodecInCall, "Conf - VC 1 In Call", fusion.InputOnly)
	if err == nil {
		binder.BindInput(codec.InCall, inCall)
	} else {
		c.logger.Warn("in-call sig unavailable", zap.Error(err))
	}

	if codec.Has(device.CapabilityCommunicationStatus) {
		online, err := c.fr.CreateOffsetBoolSig(fusion.OffsetCodecOnline, "Online - VC 1", fusion.InputOnly)
		if err == nil {
			onlineFb := feedback.New(codec.Key()+":online", func() (bool, error) {
				return codec.CommStatus.Value() == device.StatusOk, nil
			})
			codec.CommStatus.Subscribe(func(device.MonitorStatus) { onlineFb.Resolve() })
			binder.BindInput(onlineFb, online)
			c.logger.Info("linking communication monitor to fusion",
				zap.String("device", codec.Key()), zap.String("sig", "Online - VC 1"))
		}
	}

	if codec.Has(device.CapabilityNetworkAddress) {
		address, port := codec.NetworkAddress()
		if ipSig, err := c.fr.CreateOffsetStringSig(fusion.OffsetCodecIPAddress, "IP Address - VC", fusion.InputOnly); err == nil {
			ipSig.SetInput(address)
		}
		if portSig, err := c.fr.CreateOffsetStringSig(fusion.OffsetCodecIPPort, "IP Port - VC", fusion.InputOnly); err == nil {
			portSig.SetInput(fmt.Sprintf("%d", port))
		}
	}

	c.setUpStaticAsset(ctx, c.cfg.CodecKey, codec, "Codec", codec.PowerIsOn,
		codec.StandbyDeactivate, codec.StandbyActivate, codec.CommStatus)
}

// setUpStaticAsset resolves the device's persistent slot and binds the
// per-asset join block. Pool exhaustion skips this asset only.
func (c *Controller) setUpStaticAsset(ctx context.Context, deviceKey string, dev device.Device, typeTag string,
	powerIsOn *feedback.Bool, powerOn, powerOff func(), commStatus *feedback.Feedback[device.MonitorStatus],
) {
	dc, ok := c.registry.Device(deviceKey)
	if !ok {
		c.logger.Warn("no device config for asset, skipping", zap.String("device", deviceKey))
		return
	}
	b, err := c.slots.ResolveSlot(ctx, dc.UID, dev.Name(), typeTag)
	if err != nil {
		if errors.Is(err, assets.ErrPoolExhausted) {
			c.logger.Warn("asset slot pool exhausted, skipping asset", zap.String("device", deviceKey))
			return
		}
		c.logger.Error("failed to resolve asset slot", zap.String("device", deviceKey), zap.Error(err))
		return
	}

	base := fusion.AssetBlockBase(b.Slot)
	assetName := fmt.Sprintf("Asset %d - %s", b.Slot, b.Name)

	assetPowerOn, err := c.fr.CreateOffsetBoolSig(base+fusion.AssetPowerOnJoin, assetName+" Power On", fusion.InputOutput)
	if err == nil {
		binder.BindTriggerOutput(assetPowerOn, powerOn)
		binder.BindInput(powerIsOn, assetPowerOn)
	}
	assetPowerOff, err := c.fr.CreateOffsetBoolSig(base+fusion.AssetPowerOffJoin, assetName+" Power Off", fusion.OutputOnly)
	if err == nil {
		binder.BindTriggerOutput(assetPowerOff, powerOff)
	}

	if dev.Has(device.CapabilityCommunicationStatus) && commStatus != nil {
		assetOnline, err := c.fr.CreateOffsetBoolSig(base+fusion.AssetOnlineJoin, assetName+" Online", fusion.InputOnly)
		if err == nil {
			onlineFb := feedback.New(dev.Key()+":asset_online", func() (bool, error) {
				return commStatus.Value() == device.StatusOk, nil
			})
			commStatus.Subscribe(func(device.MonitorStatus) { onlineFb.Resolve() })
			binder.BindInput(onlineFb, assetOnline)
		}
	}
}

// Status is the room snapshot served over HTTP.
type Status struct {
	Key           string `json:"key"`
	Name          string `json:"name"`
	PowerState    string `json:"power_state"`
	CurrentSource string `json:"current_source"`
	InCall        bool   `json:"in_call"`
	Online        bool   `json:"online"`
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Status{
		Key:           c.cfg.Key,
		Name:          c.cfg.Name,
		CurrentSource: c.currentSource.Value(),
		Online:        true,
	}
	if c.display != nil {
		s.PowerState = string(c.display.PowerState())
		s.Online = s.Online && c.display.CommStatus.Value() == device.StatusOk
	}
	if c.codec != nil {
		s.InCall = c.codec.InCall.Value()
		s.Online = s.Online && c.codec.CommStatus.Value() == device.StatusOk
	}
	return s
}

// PowerOn powers the room's display from the command surface.
func (c *Controller) PowerOn() error {
	if c.display == nil {
		return errors.New("room has no display")
	}
	c.Do(c.display.PowerOn)
	return nil
}

func (c *Controller) PowerOff() error {
	if c.display == nil {
		return errors.New("room has no display")
	}
	c.Do(c.display.PowerOff)
	return nil
}

// Teardown stops device timers at shutdown.
func (c *Controller) Teardown() {
	c.Do(func() {
		if c.display != nil {
			c.display.Teardown()
		}
	})
}

type serialScheduler struct {
	c     *Controller
	inner scheduler.Scheduler
}

func (s serialScheduler) After(d time.Duration, fn func()) scheduler.Timer {
	return s.inner.After(d, func() {
		s.c.Do(fn)
	})
}
