package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gempir/go-twitch-irc/v4"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultTwitchURL is the Twitch IRC-over-WebSocket endpoint
	DefaultTwitchURL = "wss://irc-ws.chat.twitch.tv:443"

	writeWait = 10 * time.Second
)

// TwitchConfig holds what is needed to join one channel
type TwitchConfig struct {
	URL      string
	Username string
	OAuth    string
	Channel  string
}

// TwitchClient is a Transport backed by Twitch chat
type TwitchClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	events  chan Event
	logger  *logrus.Logger
}

// ConnectTwitch dials Twitch chat, logs in and joins the configured channel
func ConnectTwitch(ctx context.Context, cfg TwitchConfig, logger *logrus.Logger) (*TwitchClient, error) {
	url := cfg.URL
	if url == "" {
		url = DefaultTwitchURL
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to twitch chat: %w", err)
	}

	c := &TwitchClient{
		conn:   conn,
		events: make(chan Event, 100),
		logger: logger,
	}

	oauth := strings.TrimPrefix(cfg.OAuth, "oauth:")
	handshake := []string{
		"CAP REQ :twitch.tv/tags twitch.tv/commands",
		"PASS oauth:" + oauth,
		"NICK " + strings.ToLower(cfg.Username),
		"JOIN #" + strings.ToLower(cfg.Channel),
	}
	for _, line := range handshake {
		if err := c.writeLine(line); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to log in to twitch chat: %w", err)
		}
	}

	go c.readLoop()

	return c, nil
}

// Events returns inbound events. The channel is closed when the connection drops.
func (c *TwitchClient) Events() <-chan Event {
	return c.events
}

// Say sends a message to a channel
func (c *TwitchClient) Say(channel, text string) error {
	return c.writeLine("PRIVMSG #" + strings.ToLower(strings.TrimPrefix(channel, "#")) + " :" + text)
}

// Close closes the underlying connection
func (c *TwitchClient) Close() error {
	return c.conn.Close()
}

func (c *TwitchClient) writeLine(line string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, []byte(line+"\r\n"))
}

func (c *TwitchClient) readLoop() {
	defer close(c.events)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.logger.Errorf("Twitch chat connection closed: %v", err)
			return
		}

		for _, line := range strings.Split(string(data), "\r\n") {
			if line == "" {
				continue
			}
			c.handleLine(line)
		}
	}
}

func (c *TwitchClient) handleLine(line string) {
	switch msg := twitch.ParseMessage(line).(type) {
	case *twitch.PingMessage:
		if err := c.writeLine("PONG :" + msg.Message); err != nil {
			c.logger.Errorf("Failed to answer PING: %v", err)
		}
	case *twitch.PrivateMessage:
		c.events <- Event{Kind: EventMessage, Message: toMessage(msg)}
	case *twitch.NoticeMessage:
		if isLoginFailure(msg.Message) {
			c.events <- Event{Kind: EventLoginFailed, Notice: msg.Message}
			return
		}
		c.logger.Infof("Twitch notice: %s", msg.Message)
	case *twitch.ReconnectMessage:
		c.logger.Warn("Twitch asked us to reconnect")
	default:
		c.logger.Debugf("Ignoring chat line: %q", line)
	}
}

// toMessage converts a PRIVMSG into a chat Message
func toMessage(m *twitch.PrivateMessage) Message {
	user := m.User.DisplayName
	if user == "" {
		user = m.User.Name
	}

	return Message{
		Channel:     m.Channel,
		Login:       m.User.Name,
		User:        user,
		Text:        m.Message,
		Broadcaster: m.User.Badges["broadcaster"] > 0,
		Moderator:   m.Tags["mod"] == "1" || m.User.Badges["moderator"] > 0,
	}
}

func isLoginFailure(notice string) bool {
	return strings.Contains(notice, "Login authentication failed") ||
		strings.Contains(notice, "Improperly formatted auth")
}
