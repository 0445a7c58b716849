package feedback

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestResolveFiresOnlyOnChange(t *testing.T) {
	value := false
	fb := New("test:power", func() (bool, error) {
		return value, nil
	})

	notified := 0
	fb.Subscribe(func(bool) { notified++ })

	fb.Resolve()
	assert.Equal(t, 0, notified, "unchanged value must not notify")

	value = true
	fb.Resolve()
	assert.Equal(t, 1, notified, "changed value must notify exactly once")
	assert.True(t, fb.Value())

	fb.Resolve()
	assert.Equal(t, 1, notified, "re-resolving an unchanged value must not notify")
}

func TestPushSuppressesDuplicates(t *testing.T) {
	fb := NewPushed[string]("test:input")

	var got []string
	fb.Subscribe(func(v string) { got = append(got, v) })

	fb.Push("hdmi1")
	fb.Push("hdmi1")
	fb.Push("hdmi2")

	assert.Equal(t, []string{"hdmi1", "hdmi2"}, got)
	assert.Equal(t, "hdmi2", fb.Value())
}

func TestSubscribersFireInSubscriptionOrder(t *testing.T) {
	fb := NewPushed[uint16]("test:volume")

	var order []int
	fb.Subscribe(func(uint16) { order = append(order, 1) })
	fb.Subscribe(func(uint16) { order = append(order, 2) })
	fb.Subscribe(func(uint16) { order = append(order, 3) })

	fb.Push(42)
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestResolverFailureFreezesValue(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	original := zap.L()
	zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(func() { zap.ReplaceGlobals(original) })

	value := "good"
	fail := false
	fb := New("test:label", func() (string, error) {
		if fail {
			return "", errors.New("device unreachable")
		}
		return value, nil
	})

	notified := 0
	fb.Subscribe(func(string) { notified++ })

	fb.Resolve()
	assert.Equal(t, "good", fb.Value())
	assert.Equal(t, 1, notified)

	fail = true
	value = "never seen"
	fb.Resolve()
	assert.Equal(t, "good", fb.Value(), "failed resolve must keep last known value")
	assert.Equal(t, 1, notified, "failed resolve must not notify")
	assert.Equal(t, 1, logs.FilterMessage("feedback resolver failed, keeping last value").Len())
}
