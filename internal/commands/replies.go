package commands

import (
	"fmt"
	"strings"

	"github.com/fbettag/liveu-chat-monitor/internal/liveu"
)

const (
	OfflineReply = "LiveU Offline :("
	ReadyReply   = "LiveU Online and Ready"
)

// TotalKbps sums the uplink of all interfaces
func TotalKbps(interfaces []liveu.Interface) uint32 {
	var total uint32
	for _, iface := range interfaces {
		total += iface.UplinkKbps
	}
	return total
}

// FormatInterfaces renders named interfaces and their total. rtmpKbps is
// appended when the ingest bitrate is known.
func FormatInterfaces(interfaces []liveu.Interface, rtmpKbps *uint32) string {
	items := make([]string, 0, len(interfaces))
	for _, iface := range interfaces {
		item := fmt.Sprintf("%s: %d Kbps (%s)", iface.Port, iface.UplinkKbps, iface.Technology)
		if iface.Roaming {
			item += " roaming"
		}
		items = append(items, item)
	}

	reply := strings.Join(items, ", ") + fmt.Sprintf(" Total LRT: %d Kbps", TotalKbps(interfaces))
	if rtmpKbps != nil {
		reply += fmt.Sprintf(", RTMP: %d Kbps", *rtmpKbps)
	}
	return reply
}

// Describe picks the stats text for already named interfaces
func Describe(interfaces []liveu.Interface, idle bool, rtmpKbps *uint32) string {
	if len(interfaces) == 0 {
		return OfflineReply
	}
	if TotalKbps(interfaces) == 0 {
		if idle {
			return ReadyReply
		}
		return OfflineReply
	}
	return FormatInterfaces(interfaces, rtmpKbps)
}

// ChargingState describes what the battery is doing
func ChargingState(b liveu.Battery) string {
	switch {
	case b.Charging:
		return "charging"
	case b.Discharging:
		return "discharging"
	case b.Percentage == 100:
		return "fully charged"
	default:
		return "not charging"
	}
}

// FormatBattery renders a battery snapshot. The runtime estimate is only
// shown while discharging.
func FormatBattery(b liveu.Battery) string {
	reply := fmt.Sprintf("LiveU Internal Battery: %d%% %s", b.Percentage, ChargingState(b))

	if b.Discharging && b.RunTimeToEmpty > 0 {
		reply += fmt.Sprintf(" Estimated battery time: %dh %dm", b.RunTimeToEmpty/60, b.RunTimeToEmpty%60)
	}

	return reply
}
