// Package scheduler abstracts one-shot deferred execution so state machines
// never touch the wall clock directly. Production code uses the real
// implementation; tests drive transitions with Manual.
package scheduler

import "time"

type Timer interface {
	// Stop cancels the timer if it has not fired yet.
	Stop() bool
}

type Scheduler interface {
	After(d time.Duration, fn func()) Timer
}

type realScheduler struct{}

func New() Scheduler {
	return realScheduler{}
}

func (realScheduler) After(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
