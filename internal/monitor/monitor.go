package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/fbettag/liveu-chat-monitor/internal/chat"
	"github.com/fbettag/liveu-chat-monitor/internal/database"
	"github.com/fbettag/liveu-chat-monitor/internal/liveu"
	"github.com/sirupsen/logrus"
)

// AlertPrefix is put in front of every alert sent to chat
const AlertPrefix = "LiveU: "

// Telemetry is the part of the LiveU client the monitor polls
type Telemetry interface {
	GetInterfaces(ctx context.Context, unitID string) ([]liveu.Interface, error)
	GetBattery(ctx context.Context, unitID string) (*liveu.Battery, error)
	IsStreaming(ctx context.Context, unitID string) bool
}

// ActivityLog records alerts that went out to chat
type ActivityLog interface {
	LogEvent(entry *database.LogEntry) error
}

type Config struct {
	Channel    string
	UnitID     string
	PortNames  *liveu.PortNames
	Thresholds []uint8
	Interval   time.Duration
	Interfaces bool
	Battery    bool
}

// Monitor runs the interface and battery polling loops
type Monitor struct {
	cfg       Config
	telemetry Telemetry
	sender    chat.Sender
	activity  ActivityLog
	logger    *logrus.Logger

	interfaces InterfaceTracker
	battery    BatteryTracker
	// set while the unit is not streaming, cleared after the first tick back
	ignore bool

	mu      sync.Mutex
	running bool
	stop    chan struct{}
}

func New(cfg Config, telemetry Telemetry, sender chat.Sender, logger *logrus.Logger) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	return &Monitor{
		cfg:       cfg,
		telemetry: telemetry,
		sender:    sender,
		logger:    logger,
		battery:   BatteryTracker{Thresholds: cfg.Thresholds},
	}
}

// SetActivityLog enables recording of sent alerts. nil disables it.
func (m *Monitor) SetActivityLog(activity ActivityLog) {
	m.activity = activity
}

// Start launches the enabled loops and returns immediately
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stop = make(chan struct{})
	stop := m.stop
	m.mu.Unlock()

	if m.cfg.Interfaces {
		m.logger.Info("Starting interface monitor")
		m.seedInterfaces(ctx)
		go m.loop(ctx, stop, m.CheckInterfaces)
	}

	if m.cfg.Battery {
		m.logger.Info("Starting battery monitor")
		go m.loop(ctx, stop, m.CheckBattery)
	}
}

func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		close(m.stop)
		m.running = false
	}
}

func (m *Monitor) loop(ctx context.Context, stop <-chan struct{}, tick func(context.Context)) {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tick(ctx)
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) seedInterfaces(ctx context.Context) {
	names, err := m.interfaceNames(ctx)
	if err != nil {
		m.logger.Warnf("Could not seed interface list, will seed on the first successful poll: %v", err)
		return
	}
	m.interfaces.Observe(names)
}

func (m *Monitor) interfaceNames(ctx context.Context) ([]string, error) {
	raw, err := m.telemetry.GetInterfaces(ctx, m.cfg.UnitID)
	if err != nil {
		return nil, err
	}

	named := liveu.ApplyCustomNames(raw, m.cfg.PortNames)
	names := make([]string, 0, len(named))
	for _, iface := range named {
		names = append(names, iface.Port)
	}
	return names, nil
}

// CheckInterfaces runs one tick of the interface loop. Only one loop may
// call it at a time.
func (m *Monitor) CheckInterfaces(ctx context.Context) {
	if !m.telemetry.IsStreaming(ctx, m.cfg.UnitID) {
		m.ignore = true
		return
	}

	names, err := m.interfaceNames(ctx)
	if err != nil {
		m.logger.Debugf("Skipping interface tick: %v", err)
		return
	}

	added, removed := m.interfaces.Observe(names)
	message := InterfaceMessage(added, removed)

	if m.ignore {
		if message != "" {
			m.logger.Debugf("Suppressed interface change after idle: %s", message)
		}
		m.ignore = false
		return
	}

	if message != "" {
		m.alert(message)
	}
}

// CheckBattery runs one tick of the battery loop. Only one loop may call
// it at a time.
func (m *Monitor) CheckBattery(ctx context.Context) {
	if !m.telemetry.IsStreaming(ctx, m.cfg.UnitID) {
		return
	}

	battery, err := m.telemetry.GetBattery(ctx, m.cfg.UnitID)
	if err != nil {
		m.logger.Debugf("Skipping battery tick: %v", err)
		return
	}

	for _, message := range m.battery.Observe(*battery) {
		m.alert(message)
	}
}

func (m *Monitor) alert(message string) {
	text := AlertPrefix + message
	m.logger.Infof("Alert: %s", text)

	if err := m.sender.Say(m.cfg.Channel, text); err != nil {
		m.logger.Errorf("Failed to send alert: %v", err)
		return
	}

	if m.activity != nil {
		if err := m.activity.LogEvent(&database.LogEntry{
			Kind:    database.KindAlert,
			Channel: m.cfg.Channel,
			Message: text,
		}); err != nil {
			m.logger.Errorf("Failed to log alert: %v", err)
		}
	}
}
