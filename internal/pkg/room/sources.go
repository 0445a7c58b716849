package room

import (
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/avbuild/roomsync/internal/pkg/binder"
	"github.com/avbuild/roomsync/internal/pkg/config"
	"github.com/avbuild/roomsync/internal/pkg/fusion"
)

type sourceBlock struct {
	role  config.DeviceRole
	base  uint
	max   int
	label string
}

var sourceBlocks = []sourceBlock{
	{role: config.RoleSetTopBox, base: fusion.SetTopBoxBlockBase, max: fusion.SetTopBoxBlockMax, label: "Source TV"},
	{role: config.RoleDiscPlayer, base: fusion.DiscPlayerBlockBase, max: fusion.DiscPlayerBlockMax, label: "Source DVD"},
	{role: config.RoleLaptop, base: fusion.LaptopBlockBase, max: fusion.LaptopBlockMax, label: "Source Laptop"},
}

// assignSources walks the configured source list in declared order and binds
// sequential offsets per category block. Sources beyond a block's maximum are
// left unbound; that is expected, not an error.
func (c *Controller) assignSources() {
	for _, bs := range c.sources {
		c.usage.Track(bs.dev.Key(), bs.dev.InUse)
	}

	for _, block := range sourceBlocks {
		candidates := lo.Filter(c.sources, func(bs *boundSource, _ int) bool {
			return bs.dev.Role() == block.role
		})
		for i, bs := range candidates {
			if i >= block.max {
				c.logger.Info("no slots left in source block, leaving source unbound",
					zap.String("block", block.label), zap.String("source", bs.key))
				continue
			}
			offset := block.base + uint(i) + 1
			name := fmt.Sprintf("Display 1 - %s %d", block.label, i+1)
			sig, err := c.fr.CreateOffsetBoolSig(offset, name, fusion.InputOutput)
			if err != nil {
				c.logger.Warn("source sig unavailable, skipping binding",
					zap.String("source", bs.key), zap.Error(err))
				continue
			}
			bs.sig = sig
			key := bs.key
			binder.BindTriggerOutput(sig, func() { c.selectSource(key) })
			sig.SetInput(c.currentSourceKey == key)
			c.sourceOffsets = append(c.sourceOffsets, offset)
		}
	}
}

// SetSourceList switches the room to another named source list and re-runs
// slot assignment.
func (c *Controller) SetSourceList(key string) {
	c.Do(func() {
		c.cfg.SourceListKey = key
		for _, offset := range c.sourceOffsets {
			c.fr.Release(offset)
		}
		c.sourceOffsets = nil
		if c.currentSourceKey != "" {
			c.deselectCurrent()
		}
		c.buildSources()
		c.assignSources()
	})
}

// selectSource routes the named source to the display and recomputes the
// room aggregates. Safe to call for an already selected source.
func (c *Controller) selectSource(key string) {
	var selected *boundSource
	for _, bs := range c.sources {
		if bs.key == key {
			selected = bs
			break
		}
	}
	if selected == nil {
		c.logger.Warn("route action for unknown source", zap.String("source", key))
		return
	}

	c.deselectCurrent()
	c.currentSourceKey = key
	selected.dev.SetInUse(true)
	if c.display != nil {
		c.display.PowerOn()
		c.display.SelectInput(selected.dev.Name())
	}
	c.currentSource.Push(selected.dev.Name())
	c.refreshSourceSigs()
}

// powerOnToLastSource powers the room up and restores the last route, or the
// first configured source when nothing was routed before.
func (c *Controller) powerOnToLastSource() {
	if c.currentSourceKey != "" {
		c.selectSource(c.currentSourceKey)
		return
	}
	if len(c.sources) > 0 {
		c.selectSource(c.sources[0].key)
		return
	}
	if c.display != nil {
		c.display.PowerOn()
	}
}

// routeOff is the "roomOff" route action: clear routing, power down.
func (c *Controller) routeOff() {
	c.deselectCurrent()
	c.currentSourceKey = ""
	if c.display != nil {
		c.display.PowerOff()
	}
	c.currentSource.Push(noSourceName)
	c.refreshSourceSigs()
}

func (c *Controller) deselectCurrent() {
	if c.currentSourceKey == "" {
		return
	}
	for _, bs := range c.sources {
		if bs.key == c.currentSourceKey {
			bs.dev.SetInUse(false)
		}
	}
}

func (c *Controller) refreshSourceSigs() {
	for _, bs := range c.sources {
		if bs.sig != nil {
			bs.sig.SetInput(bs.key == c.currentSourceKey)
		}
	}
}
