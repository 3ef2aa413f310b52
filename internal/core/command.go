package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoinRoom subscribes the client to a conversation room.
	CommandJoinRoom CommandKind = iota
	// CommandLeaveRoom unsubscribes the client from a conversation room.
	CommandLeaveRoom

	// Internal hub commands. Producers are RegisterClient/UnregisterClient
	// and the publish methods, never a client directly.
	commandRegisterClient
	commandUnregisterClient
	commandPublishRoom
	commandPublishUser
)

// Command represents an action requested by a client or a service.
type Command struct {
	Kind           CommandKind
	Client         *Client // origin connection; nil for service publishes
	ConversationID int64
	UserID         int64  // target for commandPublishUser
	Event          *Event // payload for publish commands
}
