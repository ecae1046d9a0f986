// Package chat defines the chat transport the bot talks through and a
// Twitch implementation of it.
package chat

// Message is a chat line from a user. Login is the account name, User the
// display name.
type Message struct {
	Channel     string
	Login       string
	User        string
	Text        string
	Broadcaster bool
	Moderator   bool
}

// EventKind distinguishes inbound transport events
type EventKind int

const (
	// EventMessage carries a user message
	EventMessage EventKind = iota
	// EventLoginFailed means the server rejected our credentials
	EventLoginFailed
)

// Event is one inbound transport event
type Event struct {
	Kind    EventKind
	Message Message
	Notice  string
}

// Sender posts text to a channel
type Sender interface {
	Say(channel, text string) error
}

// Transport is a joined chat connection
type Transport interface {
	Sender
	Events() <-chan Event
}
