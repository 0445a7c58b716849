// Package feedback provides change-notified observable values. A feedback
// wraps either a resolver func recomputed on demand or a directly pushed
// value; listeners fire only when the resolved value differs from the last
// emitted one, so downstream consumers never see duplicate updates.
package feedback

import (
	"go.uber.org/zap"
)

type Feedback[T comparable] struct {
	name     string
	resolver func() (T, error)
	current  T
	subs     []func(T)
	logger   *zap.Logger
}

// New creates a feedback backed by a resolver. The resolver is only invoked
// from Resolve; a failing resolver leaves the feedback at its last known value.
func New[T comparable](name string, resolver func() (T, error)) *Feedback[T] {
	return &Feedback[T]{
		name:     name,
		resolver: resolver,
		logger:   zap.L(),
	}
}

// NewPushed creates a feedback with no resolver; its value changes only
// through Push.
func NewPushed[T comparable](name string) *Feedback[T] {
	return &Feedback[T]{
		name:   name,
		logger: zap.L(),
	}
}

func (f *Feedback[T]) Name() string {
	return f.name
}

// Value returns the last emitted value without recomputation.
func (f *Feedback[T]) Value() T {
	return f.current
}

// Subscribe registers a change listener. Listeners are invoked synchronously
// in subscription order and hold no ownership of the feedback.
func (f *Feedback[T]) Subscribe(fn func(T)) {
	f.subs = append(f.subs, fn)
}

// Resolve recomputes the value from the resolver and notifies listeners if it
// changed. Resolver failures are logged and the previous value is kept.
func (f *Feedback[T]) Resolve() {
	if f.resolver == nil {
		return
	}
	v, err := f.resolver()
	if err != nil {
		f.logger.Warn("feedback resolver failed, keeping last value",
			zap.String("feedback", f.name), zap.Error(err))
		return
	}
	f.update(v)
}

// Push sets the value directly and notifies listeners if it changed.
func (f *Feedback[T]) Push(v T) {
	f.update(v)
}

func (f *Feedback[T]) update(v T) {
	if v == f.current {
		return
	}
	f.current = v
	for _, fn := range f.subs {
		fn(v)
	}
}

// Convenience aliases for the three sig payload types.
type (
	Bool   = Feedback[bool]
	Uint   = Feedback[uint16]
	String = Feedback[string]
)
