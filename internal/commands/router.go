package commands

import (
	"context"
	"errors"

	"github.com/fbettag/liveu-chat-monitor/internal/chat"
	"github.com/fbettag/liveu-chat-monitor/internal/database"
	"github.com/fbettag/liveu-chat-monitor/internal/liveu"
	"github.com/sirupsen/logrus"
)

// Telemetry is the part of the LiveU client the replies are built from
type Telemetry interface {
	GetInterfaces(ctx context.Context, unitID string) ([]liveu.Interface, error)
	GetBattery(ctx context.Context, unitID string) (*liveu.Battery, error)
	IsIdle(ctx context.Context, unitID string) bool
}

// StreamControl starts and stops the stream and returns a provisional reply
type StreamControl interface {
	Start(ctx context.Context) (string, error)
	Stop(ctx context.Context) (string, error)
	Restart(ctx context.Context) (string, error)
}

// BitrateSource reports the ingest bitrate in Kbps, ok is false when no
// stream is received
type BitrateSource interface {
	Bitrate(ctx context.Context) (uint32, bool, error)
}

// ActivityLog records commands and replies
type ActivityLog interface {
	LogEvent(entry *database.LogEntry) error
}

type Config struct {
	UnitID    string
	PortNames *liveu.PortNames
	Aliases   Aliases
	Policy    Policy
}

// Router handles chat messages one at a time
type Router struct {
	cfg       Config
	sender    chat.Sender
	telemetry Telemetry
	stream    StreamControl
	cooldown  *CooldownGate
	logger    *logrus.Logger

	bitrate  BitrateSource
	activity ActivityLog
}

func NewRouter(cfg Config, sender chat.Sender, telemetry Telemetry, stream StreamControl, cooldown *CooldownGate, logger *logrus.Logger) *Router {
	return &Router{
		cfg:       cfg,
		sender:    sender,
		telemetry: telemetry,
		stream:    stream,
		cooldown:  cooldown,
		logger:    logger,
	}
}

// SetBitrateSource adds the RTMP bitrate to stats replies
func (r *Router) SetBitrateSource(source BitrateSource) {
	r.bitrate = source
}

// SetActivityLog enables recording of commands and replies
func (r *Router) SetActivityLog(activity ActivityLog) {
	r.activity = activity
}

// Handle processes one chat message. Messages during a cooldown, unknown
// commands and commands the sender may not run get no reply.
func (r *Router) Handle(ctx context.Context, msg chat.Message) {
	if r.cooldown.Active() {
		return
	}

	cmd := Classify(msg.Text, r.cfg.Aliases)
	if cmd == Unknown {
		return
	}

	if err := r.cfg.Policy.Check(cmd, msg); err != nil {
		r.logger.Debugf("Ignoring %s from %s: %v", cmd, msg.User, err)
		return
	}

	if !r.cooldown.TryAcquire() {
		return
	}

	r.logger.Infof("Running %s for %s", cmd, msg.User)
	r.record(database.KindCommand, msg.Channel, msg.User, cmd, msg.Text)

	reply := r.dispatch(ctx, cmd)
	if reply == "" {
		return
	}

	if err := r.sender.Say(msg.Channel, reply); err != nil {
		r.logger.Errorf("Failed to send reply: %v", err)
		return
	}
	r.record(database.KindReply, msg.Channel, "", cmd, reply)
}

func (r *Router) dispatch(ctx context.Context, cmd Command) string {
	switch cmd {
	case Stats:
		return r.StatsReply(ctx)
	case Battery:
		return r.BatteryReply(ctx)
	case Start:
		return r.streamReply(r.stream.Start(ctx))
	case Stop:
		return r.streamReply(r.stream.Stop(ctx))
	case Restart:
		return r.streamReply(r.stream.Restart(ctx))
	}
	return ""
}

func (r *Router) streamReply(reply string, err error) string {
	if err != nil {
		r.logger.Errorf("Stream action failed: %v", err)
		if errors.Is(err, liveu.ErrStatusNotAvailable) {
			return OfflineReply
		}
		return ""
	}
	return reply
}

// StatsReply describes the bonded interfaces, or the idle/offline state
func (r *Router) StatsReply(ctx context.Context) string {
	raw, err := r.telemetry.GetInterfaces(ctx, r.cfg.UnitID)
	if err != nil {
		r.logger.Debugf("Stats unavailable: %v", err)
		return OfflineReply
	}

	interfaces := liveu.ApplyCustomNames(raw, r.cfg.PortNames)

	var idle bool
	var rtmpKbps *uint32
	if len(interfaces) > 0 {
		if TotalKbps(interfaces) == 0 {
			idle = r.telemetry.IsIdle(ctx, r.cfg.UnitID)
		} else {
			rtmpKbps = r.rtmpKbps(ctx)
		}
	}

	return Describe(interfaces, idle, rtmpKbps)
}

func (r *Router) rtmpKbps(ctx context.Context) *uint32 {
	if r.bitrate == nil {
		return nil
	}

	kbps, ok, err := r.bitrate.Bitrate(ctx)
	if err != nil {
		r.logger.Debugf("RTMP bitrate unavailable: %v", err)
		return nil
	}
	if !ok {
		return nil
	}
	return &kbps
}

// BatteryReply describes the internal battery
func (r *Router) BatteryReply(ctx context.Context) string {
	battery, err := r.telemetry.GetBattery(ctx, r.cfg.UnitID)
	if err != nil {
		r.logger.Debugf("Battery unavailable: %v", err)
		return OfflineReply
	}
	return FormatBattery(*battery)
}

func (r *Router) record(kind, channel, user string, cmd Command, message string) {
	if r.activity == nil {
		return
	}

	if err := r.activity.LogEvent(&database.LogEntry{
		Kind:    kind,
		Channel: channel,
		User:    user,
		Command: cmd.String(),
		Message: message,
	}); err != nil {
		r.logger.Errorf("Failed to log %s: %v", kind, err)
	}
}
