package service

import "time"

type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. The orchestrator's settle and post-call timers
// run through it so tests can fire them deterministically.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

var SystemClock Clock = systemClock{}
