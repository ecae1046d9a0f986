package monitor

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/fbettag/liveu-chat-monitor/internal/database"
	"github.com/fbettag/liveu-chat-monitor/internal/liveu"
	"github.com/fbettag/liveu-chat-monitor/testutils"
)

type fakeTelemetry struct {
	mu         sync.Mutex
	streaming  bool
	interfaces []liveu.Interface
	ifaceErr   error
	battery    *liveu.Battery
	batteryErr error
}

func (f *fakeTelemetry) GetInterfaces(ctx context.Context, unitID string) ([]liveu.Interface, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ifaceErr != nil {
		return nil, f.ifaceErr
	}
	return append([]liveu.Interface(nil), f.interfaces...), nil
}

func (f *fakeTelemetry) GetBattery(ctx context.Context, unitID string) (*liveu.Battery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.batteryErr != nil {
		return nil, f.batteryErr
	}
	b := *f.battery
	return &b, nil
}

func (f *fakeTelemetry) IsStreaming(ctx context.Context, unitID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streaming
}

func (f *fakeTelemetry) setInterfaces(ifaces ...liveu.Interface) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interfaces = ifaces
}

func (f *fakeTelemetry) setBattery(b liveu.Battery) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.battery = &b
}

type fakeSender struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeSender) Say(channel, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, text)
	return nil
}

func (f *fakeSender) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}

func iface(port string, uplink uint32) liveu.Interface {
	return liveu.Interface{Port: port, Connected: true, UplinkKbps: uplink, Technology: "LTE"}
}

func newTestMonitor(telemetry Telemetry, sender *fakeSender) *Monitor {
	return New(Config{
		Channel:    "mychannel",
		UnitID:     "boss-1",
		Thresholds: []uint8{99, 50, 10, 5, 1},
		Interval:   10 * time.Millisecond,
		Interfaces: true,
		Battery:    true,
	}, telemetry, sender, testutils.NewTestLogger())
}

func TestInterfaceTracker(t *testing.T) {
	t.Run("First sample seeds silently", func(t *testing.T) {
		var tracker InterfaceTracker
		added, removed := tracker.Observe([]string{"ETH", "Cell1"})
		if added != nil || removed != nil {
			t.Errorf("Seeding should report nothing, got %v %v", added, removed)
		}
		if !tracker.Seeded() {
			t.Error("Tracker should be seeded")
		}
	})

	t.Run("Identical snapshots are idempotent", func(t *testing.T) {
		var tracker InterfaceTracker
		tracker.Observe([]string{"ETH", "Cell1"})

		for i := 0; i < 3; i++ {
			added, removed := tracker.Observe([]string{"ETH", "Cell1"})
			if len(added) != 0 || len(removed) != 0 {
				t.Fatalf("Expected no changes, got added=%v removed=%v", added, removed)
			}
			if msg := InterfaceMessage(added, removed); msg != "" {
				t.Fatalf("Expected no message, got %q", msg)
			}
		}
	})

	t.Run("Added and removed are disjoint", func(t *testing.T) {
		var tracker InterfaceTracker
		tracker.Observe([]string{"ETH", "Cell1"})

		added, removed := tracker.Observe([]string{"Cell1", "Cell2", "Cell2"})
		if !reflect.DeepEqual(added, []string{"Cell2"}) {
			t.Errorf("Expected Cell2 added, got %v", added)
		}
		if !reflect.DeepEqual(removed, []string{"ETH"}) {
			t.Errorf("Expected ETH removed, got %v", removed)
		}
		for _, a := range added {
			if contains(removed, a) {
				t.Errorf("%s reported both added and removed", a)
			}
		}
		if !reflect.DeepEqual(tracker.Known(), []string{"Cell1", "Cell2"}) {
			t.Errorf("Tracked set out of sync: %v", tracker.Known())
		}
	})
}

func TestInterfaceMessage(t *testing.T) {
	tests := []struct {
		name    string
		added   []string
		removed []string
		want    string
	}{
		{"Nothing", nil, nil, ""},
		{"One added", []string{"Cell2"}, nil, "Cell2 is now connected."},
		{"Two added", []string{"Cell1", "Cell2"}, nil, "Cell1, Cell2 are now connected."},
		{"One removed", nil, []string{"ETH"}, "ETH has disconnected."},
		{"Two removed", nil, []string{"ETH", "WiFi"}, "ETH, WiFi have disconnected."},
		{"Both", []string{"Cell2"}, []string{"ETH"}, "Cell2 is now connected. ETH has disconnected."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InterfaceMessage(tt.added, tt.removed); got != tt.want {
				t.Errorf("InterfaceMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBatteryTracker(t *testing.T) {
	thresholds := []uint8{99, 50, 10, 5, 1}

	t.Run("First sample only records", func(t *testing.T) {
		tracker := BatteryTracker{Thresholds: thresholds}
		if tracker.Previous() != nil {
			t.Fatal("Previous should be unknown before the first sample")
		}
		if alerts := tracker.Observe(liveu.Battery{Percentage: 50, Discharging: true}); len(alerts) != 0 {
			t.Errorf("First sample should not alert, got %v", alerts)
		}
		if tracker.Previous() == nil || tracker.Previous().Percentage != 50 {
			t.Error("First sample should become previous")
		}
	})

	t.Run("Charging then fully charged", func(t *testing.T) {
		tracker := BatteryTracker{Thresholds: thresholds}
		tracker.Observe(liveu.Battery{Percentage: 50, Discharging: true})

		alerts := tracker.Observe(liveu.Battery{Percentage: 50, Charging: true})
		if !reflect.DeepEqual(alerts, []string{"Now charging"}) {
			t.Errorf("Expected Now charging, got %v", alerts)
		}

		alerts = tracker.Observe(liveu.Battery{Percentage: 100})
		if !reflect.DeepEqual(alerts, []string{"Fully charged"}) {
			t.Errorf("Expected Fully charged, got %v", alerts)
		}
	})

	t.Run("Cable disconnected", func(t *testing.T) {
		tracker := BatteryTracker{Thresholds: thresholds}
		tracker.Observe(liveu.Battery{Percentage: 80, Charging: true})

		alerts := tracker.Observe(liveu.Battery{Percentage: 80, Discharging: true})
		if !reflect.DeepEqual(alerts, []string{"RIP PowerBank / Cable Disconnected"}) {
			t.Errorf("Unexpected alerts: %v", alerts)
		}
	})

	t.Run("Too hot to charge", func(t *testing.T) {
		tracker := BatteryTracker{Thresholds: thresholds}
		tracker.Observe(liveu.Battery{Percentage: 70, Charging: true})

		alerts := tracker.Observe(liveu.Battery{Percentage: 70})
		if !reflect.DeepEqual(alerts, []string{"Too hot to charge"}) {
			t.Errorf("Unexpected alerts: %v", alerts)
		}
	})

	t.Run("Several rules in one tick", func(t *testing.T) {
		tracker := BatteryTracker{Thresholds: thresholds}
		tracker.Observe(liveu.Battery{Percentage: 51, Charging: true})

		alerts := tracker.Observe(liveu.Battery{Percentage: 50, Discharging: true})
		want := []string{"RIP PowerBank / Cable Disconnected", "Internal battery is at 50% and is not charging"}
		if !reflect.DeepEqual(alerts, want) {
			t.Errorf("Expected %v, got %v", want, alerts)
		}
	})

	t.Run("Threshold reached from above", func(t *testing.T) {
		for _, threshold := range thresholds {
			for _, k := range []uint8{1, 3} {
				tracker := BatteryTracker{Thresholds: thresholds}
				tracker.Observe(liveu.Battery{Percentage: threshold + k, Discharging: true})

				alerts := tracker.Observe(liveu.Battery{Percentage: threshold, Discharging: true})
				count := 0
				for _, a := range alerts {
					if a == thresholdMessage(threshold, false) {
						count++
					}
				}
				if count != 1 {
					t.Errorf("%d -> %d should fire the threshold once, got %v", threshold+k, threshold, alerts)
				}
			}
		}
	})

	t.Run("Threshold skipped", func(t *testing.T) {
		tracker := BatteryTracker{Thresholds: thresholds}
		tracker.Observe(liveu.Battery{Percentage: 60, Discharging: true})

		if alerts := tracker.Observe(liveu.Battery{Percentage: 40, Discharging: true}); len(alerts) != 0 {
			t.Errorf("Skipping over 50 should not alert, got %v", alerts)
		}
	})

	t.Run("Threshold while charging", func(t *testing.T) {
		tracker := BatteryTracker{Thresholds: thresholds}
		tracker.Observe(liveu.Battery{Percentage: 6, Charging: true})

		alerts := tracker.Observe(liveu.Battery{Percentage: 5, Charging: true})
		if !reflect.DeepEqual(alerts, []string{"Internal battery is at 5% and is charging"}) {
			t.Errorf("Unexpected alerts: %v", alerts)
		}
	})

	t.Run("Rising through a threshold", func(t *testing.T) {
		tracker := BatteryTracker{Thresholds: thresholds}
		tracker.Observe(liveu.Battery{Percentage: 49, Charging: true})

		if alerts := tracker.Observe(liveu.Battery{Percentage: 50, Charging: true}); len(alerts) != 0 {
			t.Errorf("Rising to a threshold should not alert, got %v", alerts)
		}
	})
}

func TestCheckInterfaces(t *testing.T) {
	t.Run("New cellular slot while streaming", func(t *testing.T) {
		telemetry := &fakeTelemetry{streaming: true}
		sender := &fakeSender{}
		m := newTestMonitor(telemetry, sender)

		telemetry.setInterfaces(iface("eth0", 500), iface("0", 300))
		m.CheckInterfaces(context.Background())

		telemetry.setInterfaces(iface("eth0", 0), iface("0", 300), iface("1", 200))
		m.CheckInterfaces(context.Background())

		want := []string{"LiveU: Cell2 is now connected."}
		if !reflect.DeepEqual(sender.sent(), want) {
			t.Errorf("Expected %v, got %v", want, sender.sent())
		}
	})

	t.Run("Custom names are used", func(t *testing.T) {
		telemetry := &fakeTelemetry{streaming: true}
		sender := &fakeSender{}
		m := New(Config{
			Channel:   "mychannel",
			PortNames: &liveu.PortNames{Cell1: "Verizon"},
		}, telemetry, sender, testutils.NewTestLogger())

		telemetry.setInterfaces(iface("eth0", 500), iface("0", 300))
		m.CheckInterfaces(context.Background())

		telemetry.setInterfaces(iface("eth0", 500))
		m.CheckInterfaces(context.Background())

		want := []string{"LiveU: Verizon has disconnected."}
		if !reflect.DeepEqual(sender.sent(), want) {
			t.Errorf("Expected %v, got %v", want, sender.sent())
		}
	})

	t.Run("Not streaming is a no-op and suppresses the next tick", func(t *testing.T) {
		telemetry := &fakeTelemetry{streaming: true}
		sender := &fakeSender{}
		m := newTestMonitor(telemetry, sender)

		telemetry.setInterfaces(iface("eth0", 500), iface("0", 300))
		m.CheckInterfaces(context.Background())

		telemetry.mu.Lock()
		telemetry.streaming = false
		telemetry.mu.Unlock()
		telemetry.setInterfaces()
		m.CheckInterfaces(context.Background())

		telemetry.mu.Lock()
		telemetry.streaming = true
		telemetry.mu.Unlock()
		telemetry.setInterfaces(iface("0", 300), iface("1", 200))
		m.CheckInterfaces(context.Background())

		if len(sender.sent()) != 0 {
			t.Fatalf("First tick back from idle should be silent, got %v", sender.sent())
		}
		if !reflect.DeepEqual(m.interfaces.Known(), []string{"Cell1", "Cell2"}) {
			t.Errorf("Suppressed tick should still update the tracked set, got %v", m.interfaces.Known())
		}

		telemetry.setInterfaces(iface("0", 300))
		m.CheckInterfaces(context.Background())
		want := []string{"LiveU: Cell2 has disconnected."}
		if !reflect.DeepEqual(sender.sent(), want) {
			t.Errorf("Expected %v, got %v", want, sender.sent())
		}
	})

	t.Run("Fetch error skips the tick", func(t *testing.T) {
		telemetry := &fakeTelemetry{streaming: true}
		sender := &fakeSender{}
		m := newTestMonitor(telemetry, sender)

		telemetry.setInterfaces(iface("eth0", 500))
		m.CheckInterfaces(context.Background())

		telemetry.mu.Lock()
		telemetry.ifaceErr = liveu.ErrNoUnitsFound
		telemetry.mu.Unlock()
		m.CheckInterfaces(context.Background())

		if len(sender.sent()) != 0 {
			t.Errorf("Failed fetch should not alert, got %v", sender.sent())
		}
		if !reflect.DeepEqual(m.interfaces.Known(), []string{"ETH"}) {
			t.Errorf("Failed fetch should leave the tracked set alone, got %v", m.interfaces.Known())
		}
	})
}

func TestCheckBattery(t *testing.T) {
	t.Run("Scenario with activity log", func(t *testing.T) {
		db, err := database.Initialize(testutils.TempDBPath(t))
		if err != nil {
			t.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()

		telemetry := &fakeTelemetry{streaming: true}
		sender := &fakeSender{}
		m := newTestMonitor(telemetry, sender)
		m.SetActivityLog(db)

		telemetry.setBattery(liveu.Battery{Percentage: 50, Discharging: true})
		m.CheckBattery(context.Background())
		telemetry.setBattery(liveu.Battery{Percentage: 50, Charging: true})
		m.CheckBattery(context.Background())
		telemetry.setBattery(liveu.Battery{Percentage: 100})
		m.CheckBattery(context.Background())

		want := []string{"LiveU: Now charging", "LiveU: Fully charged"}
		if !reflect.DeepEqual(sender.sent(), want) {
			t.Errorf("Expected %v, got %v", want, sender.sent())
		}

		logs, err := db.GetLogsByKind(database.KindAlert, 10)
		if err != nil {
			t.Fatalf("Failed to query logs: %v", err)
		}
		if len(logs) != 2 {
			t.Errorf("Expected 2 logged alerts, got %d", len(logs))
		}
	})

	t.Run("Not streaming and errors are skipped", func(t *testing.T) {
		telemetry := &fakeTelemetry{batteryErr: errors.New("boom")}
		sender := &fakeSender{}
		m := newTestMonitor(telemetry, sender)

		m.CheckBattery(context.Background())
		telemetry.mu.Lock()
		telemetry.streaming = true
		telemetry.mu.Unlock()
		m.CheckBattery(context.Background())

		if m.battery.Previous() != nil {
			t.Error("No sample should have been recorded")
		}
		if len(sender.sent()) != 0 {
			t.Errorf("Expected no alerts, got %v", sender.sent())
		}
	})
}

func TestStartStop(t *testing.T) {
	telemetry := &fakeTelemetry{streaming: true}
	telemetry.setInterfaces(iface("eth0", 500))
	telemetry.setBattery(liveu.Battery{Percentage: 80, Discharging: true})
	sender := &fakeSender{}
	m := newTestMonitor(telemetry, sender)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.Start(ctx)
	m.Start(ctx)

	telemetry.setInterfaces(iface("eth0", 500), iface("0", 300))

	deadline := time.After(2 * time.Second)
	for {
		if len(sender.sent()) > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("Timed out waiting for the interface loop")
		case <-time.After(5 * time.Millisecond):
		}
	}

	m.Stop()
	m.Stop()

	if got := sender.sent()[0]; got != "LiveU: Cell1 is now connected." {
		t.Errorf("Unexpected alert: %q", got)
	}
}
