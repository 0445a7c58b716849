// Package binder is the single chokepoint wiring device feedbacks to fusion
// sigs and fusion write-backs to device actions. Every binding attempt is
// isolated: a missing collaborator means that one binding is skipped with a
// diagnostic, never an aborted room setup.
//
// Echo discipline: an externally driven action changes device state, the
// device's feedback fires, and the new truth flows back out through the sig's
// input side. Inbound commands only ever originate from the transport, so a
// reflected input write is never re-interpreted as a command.
package binder

import (
	"go.uber.org/zap"

	"github.com/avbuild/roomsync/internal/pkg/feedback"
	"github.com/avbuild/roomsync/internal/pkg/fusion"
)

// BindInput subscribes the sig to the feedback and seeds it with the current
// value, so the external table reflects truth immediately after setup.
func BindInput[T comparable](fb *feedback.Feedback[T], sig *fusion.Sig[T]) {
	if fb == nil || sig == nil {
		skip("input", fb, sig)
		return
	}
	sig.SetInput(fb.Value())
	fb.Subscribe(sig.SetInput)
}

// BindOutput routes external write-backs on the sig into the device action.
func BindOutput[T comparable](sig *fusion.Sig[T], action func(T)) {
	if sig == nil || action == nil {
		if sig == nil {
			zap.L().Info("no sig for output binding, skipping")
		} else {
			zap.L().Info("device lacks action for output binding, skipping",
				zap.String("sig", sig.Name()))
		}
		return
	}
	sig.SetOutputAction(action)
}

// BindTriggerOutput adapts the common fusion pattern of momentary bool sigs:
// the action fires on the release edge (logical false) of the write-back.
func BindTriggerOutput(sig *fusion.BoolSig, action func()) {
	if sig == nil || action == nil {
		return
	}
	BindOutput(sig, func(b bool) {
		if !b {
			action()
		}
	})
}

func skip[T comparable](direction string, fb *feedback.Feedback[T], sig *fusion.Sig[T]) {
	fields := []zap.Field{zap.String("direction", direction)}
	if fb != nil {
		fields = append(fields, zap.String("feedback", fb.Name()))
	}
	if sig != nil {
		fields = append(fields, zap.String("sig", sig.Name()))
	}
	zap.L().Info("device lacks collaborator for binding, skipping", fields...)
}
