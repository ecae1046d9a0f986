// Package commands turns chat messages into LiveU actions and replies.
package commands

import (
	"errors"
	"strings"

	"github.com/fbettag/liveu-chat-monitor/internal/chat"
)

// ErrNotEnoughPermissions is returned when the sender may not run a command
var ErrNotEnoughPermissions = errors.New("not enough permissions")

type Command int

const (
	Unknown Command = iota
	Stats
	Battery
	Start
	Stop
	Restart
)

func (c Command) String() string {
	switch c {
	case Stats:
		return "stats"
	case Battery:
		return "battery"
	case Start:
		return "start"
	case Stop:
		return "stop"
	case Restart:
		return "restart"
	default:
		return "unknown"
	}
}

// Elevated reports whether the command changes the stream state
func (c Command) Elevated() bool {
	return c == Start || c == Stop || c == Restart
}

// Aliases holds the chat triggers for each command
type Aliases struct {
	Stats   []string
	Battery []string
	Start   []string
	Stop    []string
	Restart []string
}

// Classify matches the first word of a chat line against the aliases,
// ignoring case
func Classify(text string, aliases Aliases) Command {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Unknown
	}
	word := fields[0]

	table := []struct {
		command Command
		aliases []string
	}{
		{Stats, aliases.Stats},
		{Battery, aliases.Battery},
		{Start, aliases.Start},
		{Stop, aliases.Stop},
		{Restart, aliases.Restart},
	}

	for _, entry := range table {
		for _, alias := range entry.aliases {
			if strings.EqualFold(word, strings.TrimSpace(alias)) {
				return entry.command
			}
		}
	}

	return Unknown
}

// Policy decides who may run which command
type Policy struct {
	ModOnly bool
	Admins  []string
}

// Check returns ErrNotEnoughPermissions when the sender of msg may not run
// cmd. The broadcaster and admins may run everything. Stats and battery are
// open to everyone, or to moderators only when ModOnly is set. Stream
// control is never granted to moderators.
func (p Policy) Check(cmd Command, msg chat.Message) error {
	if msg.Broadcaster || p.isAdmin(msg.Login) {
		return nil
	}

	if cmd == Stats || cmd == Battery {
		if !p.ModOnly || msg.Moderator {
			return nil
		}
	}

	return ErrNotEnoughPermissions
}

func (p Policy) isAdmin(login string) bool {
	for _, admin := range p.Admins {
		if strings.EqualFold(strings.TrimSpace(admin), login) {
			return true
		}
	}
	return false
}
