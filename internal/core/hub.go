package core

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/duetlink/matchtalk/internal/store"
)

// Hub coordinates realtime fan-out. A single owner goroutine (Run) consumes
// commands from connected clients and from the service layer, so rooms and
// the client set never need locking. The hub is a dumb broadcast primitive:
// it does not validate conversation membership, which is the messaging
// service's job before anything gets published.
type Hub struct {
	registry *Registry
	log      *zerolog.Logger

	commands chan *Command
	clients  map[string]*Client
	rooms    map[int64]*Room
}

// NewHub creates a hub bound to a connection registry.
func NewHub(registry *Registry, logger *zerolog.Logger) *Hub {
	return &Hub{
		registry: registry,
		log:      logger,
		commands: make(chan *Command, 64),
		clients:  make(map[string]*Client),
		rooms:    make(map[int64]*Room),
	}
}

// Run processes commands until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-h.commands:
			h.handle(cmd)
		}
	}
}

// RegisterClient adds a connection to the hub and starts pumping its
// command channel into the hub loop.
func (h *Hub) RegisterClient(c *Client) {
	h.registry.OnConnect(c.ID)
	h.commands <- &Command{Kind: commandRegisterClient, Client: c}

	go func() {
		for {
			select {
			case cmd, ok := <-c.Commands:
				if !ok {
					return
				}
				cmd.Client = c
				h.commands <- cmd
			case <-c.done:
				return
			}
		}
	}()
}

// UnregisterClient removes a connection from the hub, all of its rooms, and
// the registry.
func (h *Hub) UnregisterClient(c *Client) {
	close(c.done)
	h.commands <- &Command{Kind: commandUnregisterClient, Client: c}
}

// BindUser associates a connection with an authenticated user. Called from
// the connection's read goroutine after token validation; registry mutations
// are atomic and last-registration-wins.
func (h *Hub) BindUser(c *Client, userID int64) {
	c.UserID = userID
	h.registry.Register(c.ID, userID)
	h.deliver(c, &Event{Kind: EventRegistered, UserID: userID})
	h.log.Debug().Str("connection_id", c.ID).Int64("user_id", userID).Msg("connection registered")
}

// PublishMessage broadcasts a newly created message to the conversation room.
// Fire-and-forget: connections not currently joined receive nothing and catch
// up via history fetch.
func (h *Hub) PublishMessage(conversationID int64, msg *store.Message) {
	h.commands <- &Command{
		Kind:           commandPublishRoom,
		ConversationID: conversationID,
		Event: &Event{
			Kind:           EventMessageCreated,
			ConversationID: conversationID,
			Message:        msg,
		},
	}
}

// PublishUnread delivers a fresh total unread count directly to one user's
// active connection, if any.
func (h *Hub) PublishUnread(userID int64, total int) {
	h.commands <- &Command{
		Kind:   commandPublishUser,
		UserID: userID,
		Event: &Event{
			Kind:        EventUnread,
			UserID:      userID,
			TotalUnread: total,
		},
	}
}

func (h *Hub) handle(cmd *Command) {
	switch cmd.Kind {
	case commandRegisterClient:
		h.clients[cmd.Client.ID] = cmd.Client

	case commandUnregisterClient:
		c := cmd.Client
		for id, room := range h.rooms {
			if room.RemoveClient(c) && room.Empty() {
				delete(h.rooms, id)
			}
		}
		delete(h.clients, c.ID)
		h.registry.OnDisconnect(c.ID)
		h.log.Debug().Str("connection_id", c.ID).Msg("connection unregistered")

	case CommandJoinRoom:
		room, ok := h.rooms[cmd.ConversationID]
		if !ok {
			room = NewRoom(cmd.ConversationID)
			h.rooms[cmd.ConversationID] = room
		}
		if !room.AddClient(cmd.Client) {
			h.deliver(cmd.Client, &Event{
				Kind:  EventError,
				Error: coreError(ErrCodeAlreadyJoined, "already joined"),
			})
			return
		}
		h.deliver(cmd.Client, &Event{Kind: EventJoined, ConversationID: cmd.ConversationID})

	case CommandLeaveRoom:
		room, ok := h.rooms[cmd.ConversationID]
		if !ok || !room.RemoveClient(cmd.Client) {
			h.deliver(cmd.Client, &Event{
				Kind:  EventError,
				Error: coreError(ErrCodeNotInRoom, "not in room"),
			})
			return
		}
		if room.Empty() {
			delete(h.rooms, cmd.ConversationID)
		}
		h.deliver(cmd.Client, &Event{Kind: EventLeft, ConversationID: cmd.ConversationID})

	case commandPublishRoom:
		if room, ok := h.rooms[cmd.ConversationID]; ok {
			room.Broadcast(cmd.Event)
		}

	case commandPublishUser:
		connectionID, ok := h.registry.Resolve(cmd.UserID)
		if !ok {
			return
		}
		if c, ok := h.clients[connectionID]; ok {
			h.deliver(c, cmd.Event)
		}
	}
}

// deliver pushes an event to one client without blocking the hub loop.
func (h *Hub) deliver(c *Client, event *Event) {
	select {
	case c.Events <- event:
	default:
		h.log.Warn().Str("connection_id", c.ID).Msg("event dropped for slow consumer")
	}
}
