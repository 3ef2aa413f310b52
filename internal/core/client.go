package core

// Client is a realtime connection as seen by the core layer.
//
// UserID is zero until the connection registers. It is written by the
// connection's own read goroutine before any subsequent command is sent on
// Commands, so hub reads are synchronized through the channel.
type Client struct {
	ID       string
	UserID   int64
	Commands chan *Command
	Events   chan *Event

	done chan struct{}
}

// NewClient constructs a client with initialized channels.
func NewClient(id string) *Client {
	return &Client{
		ID:       id,
		Commands: make(chan *Command, 8),
		Events:   make(chan *Event, 8),
		done:     make(chan struct{}),
	}
}
