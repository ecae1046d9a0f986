package monitor

import (
	"fmt"

	"github.com/fbettag/liveu-chat-monitor/internal/liveu"
)

const (
	msgCableDisconnected = "RIP PowerBank / Cable Disconnected"
	msgNowCharging       = "Now charging"
	msgTooHot            = "Too hot to charge"
	msgFullyCharged      = "Fully charged"
)

// BatteryTracker compares each battery sample with the previous one. Until
// the first sample arrives there is nothing to compare against.
type BatteryTracker struct {
	Thresholds []uint8

	prev *liveu.Battery
}

// Previous returns the last recorded sample, nil before the first one
func (t *BatteryTracker) Previous() *liveu.Battery {
	return t.prev
}

// Observe returns the alerts triggered by the transition to current, in rule
// order, and records current as the new previous sample.
func (t *BatteryTracker) Observe(current liveu.Battery) []string {
	prev := t.prev
	t.prev = &current

	if prev == nil {
		return nil
	}

	var alerts []string

	if !current.Charging && current.Discharging && !prev.Discharging {
		alerts = append(alerts, msgCableDisconnected)
	}

	if current.Charging && !current.Discharging && !prev.Charging {
		alerts = append(alerts, msgNowCharging)
	}

	if current.Percentage < 100 && !current.Charging && !current.Discharging &&
		(prev.Charging || prev.Discharging) {
		alerts = append(alerts, msgTooHot)
	}

	if current.Percentage == 100 && !current.Charging && !current.Discharging &&
		prev.Charging && !prev.Discharging {
		alerts = append(alerts, msgFullyCharged)
	}

	for _, threshold := range t.Thresholds {
		if current.Percentage == threshold && prev.Percentage > threshold {
			alerts = append(alerts, thresholdMessage(threshold, current.Charging))
		}
	}

	return alerts
}

func thresholdMessage(percentage uint8, charging bool) string {
	state := "is not charging"
	if charging {
		state = "is charging"
	}
	return fmt.Sprintf("Internal battery is at %d%% and %s", percentage, state)
}
