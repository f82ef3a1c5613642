package speech

import "time"

// Timer is a pending scheduled callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d. Controllers take all of their timers from
// one Scheduler so tests can drive them with a manual clock.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type clockScheduler struct{}

func RealScheduler() Scheduler {
	return clockScheduler{}
}

func (clockScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// effects are engine calls and user callbacks collected under a controller
// lock and run after it is released.
type effects []func()

func (e *effects) add(f func()) {
	if f != nil {
		*e = append(*e, f)
	}
}

func (e effects) run() {
	for _, f := range e {
		f()
	}
}
