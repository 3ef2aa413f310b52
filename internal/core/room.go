package core

// Room groups clients subscribed to the same conversation's live updates.
// Rooms are owned by the hub goroutine and never accessed concurrently.
type Room struct {
	ConversationID int64
	clients        map[*Client]struct{}
}

// NewRoom constructs a room with no clients.
func NewRoom(conversationID int64) *Room {
	return &Room{
		ConversationID: conversationID,
		clients:        make(map[*Client]struct{}),
	}
}

// AddClient inserts a client into the room. Returns true if newly added.
func (r *Room) AddClient(c *Client) bool {
	if _, exists := r.clients[c]; exists {
		return false
	}
	r.clients[c] = struct{}{}
	return true
}

// RemoveClient deletes a client from the room. Returns true if removed.
func (r *Room) RemoveClient(c *Client) bool {
	if _, exists := r.clients[c]; !exists {
		return false
	}
	delete(r.clients, c)
	return true
}

// Broadcast sends an event to all clients in the room. Delivery is
// best-effort: a client whose event buffer is full is skipped, so one stuck
// connection cannot stall the rest.
func (r *Room) Broadcast(event *Event) {
	for client := range r.clients {
		select {
		case client.Events <- event:
		default:
			// Drop if slow consumer.
		}
	}
}

// Empty returns true if no clients are in the room.
func (r *Room) Empty() bool {
	return len(r.clients) == 0
}
