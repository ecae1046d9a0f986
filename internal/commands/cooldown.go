package commands

import (
	"sync/atomic"
	"time"
)

// CooldownGate is one busy flag shared by all commands. Acquiring it arms
// a timer that clears the flag after the cooldown.
type CooldownGate struct {
	duration time.Duration
	busy     atomic.Bool
}

func NewCooldownGate(duration time.Duration) *CooldownGate {
	return &CooldownGate{duration: duration}
}

// Active reports whether a cooldown is running
func (g *CooldownGate) Active() bool {
	return g.busy.Load()
}

// TryAcquire starts a cooldown unless one is already running
func (g *CooldownGate) TryAcquire() bool {
	if !g.busy.CompareAndSwap(false, true) {
		return false
	}

	time.AfterFunc(g.duration, func() {
		g.busy.Store(false)
	})

	return true
}
