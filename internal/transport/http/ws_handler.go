package http

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/duetlink/matchtalk/internal/auth"
	"github.com/duetlink/matchtalk/internal/config"
	"github.com/duetlink/matchtalk/internal/core"
	"github.com/duetlink/matchtalk/internal/proto"
	"github.com/duetlink/matchtalk/internal/service/messaging"
)

// wsHandler terminates websocket connections. Each connection is a core.Client:
// the read goroutine turns inbound frames into hub commands or service calls,
// the write goroutine drains the client's event channel. The write goroutine is
// the only writer on the socket; read-side errors are injected as events.
type wsHandler struct {
	hub  *core.Hub
	auth *auth.Service
	msg  *messaging.Service
	cfg  *config.Config
	log  *zerolog.Logger
}

func newWSHandler(hub *core.Hub, authService *auth.Service, msgService *messaging.Service, cfg *config.Config, logger *zerolog.Logger) *wsHandler {
	return &wsHandler{
		hub:  hub,
		auth: authService,
		msg:  msgService,
		cfg:  cfg,
		log:  logger,
	}
}

// Handle upgrades the request and runs the connection until the peer goes away.
func (h *wsHandler) Handle(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("websocket accept failed")
		return
	}
	conn.SetReadLimit(h.cfg.MaxMessageBytes)

	client := core.NewClient(uuid.NewString())
	h.hub.RegisterClient(client)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	go h.writeLoop(ctx, conn, client)

	h.readLoop(ctx, conn, client)

	h.hub.UnregisterClient(client)
	conn.Close(websocket.StatusNormalClosure, "bye")
}

func (h *wsHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) {
	for {
		var in proto.Inbound
		if err := wsjson.Read(ctx, conn, &in); err != nil {
			status := websocket.CloseStatus(err)
			if status == -1 && !errors.Is(err, context.Canceled) {
				h.log.Debug().Err(err).Str("connection_id", client.ID).Msg("websocket read failed")
			}
			return
		}

		switch in.Type {
		case proto.InboundTypeRegister:
			h.handleRegister(client, in.Data)

		case proto.InboundTypeJoin, proto.InboundTypeLeave:
			h.handleRoom(client, in.Type, in.Data)

		case proto.InboundTypeMsg:
			h.handleMsg(ctx, client, in.Data)

		default:
			h.pushError(client, core.ErrCodeBadRequest, "unknown message type")
		}
	}
}

func (h *wsHandler) handleRegister(client *core.Client, data json.RawMessage) {
	var reg proto.RegisterData
	if err := json.Unmarshal(data, &reg); err != nil {
		h.pushError(client, core.ErrCodeBadRequest, "malformed register data")
		return
	}

	claims, err := h.auth.ValidateToken(reg.Token)
	if err != nil {
		h.pushError(client, core.ErrCodeUnauthorized, "invalid token")
		return
	}

	h.hub.BindUser(client, claims.UserID)
}

func (h *wsHandler) handleRoom(client *core.Client, inboundType string, data json.RawMessage) {
	if client.UserID == 0 {
		h.pushError(client, core.ErrCodeUnauthorized, "register first")
		return
	}

	var room proto.RoomData
	if err := json.Unmarshal(data, &room); err != nil || room.ConversationID <= 0 {
		h.pushError(client, core.ErrCodeBadRequest, "malformed room data")
		return
	}

	kind := core.CommandJoinRoom
	if inboundType == proto.InboundTypeLeave {
		kind = core.CommandLeaveRoom
	}
	client.Commands <- &core.Command{Kind: kind, ConversationID: room.ConversationID}
}

func (h *wsHandler) handleMsg(ctx context.Context, client *core.Client, data json.RawMessage) {
	if client.UserID == 0 {
		h.pushError(client, core.ErrCodeUnauthorized, "register first")
		return
	}

	var msg proto.MsgData
	if err := json.Unmarshal(data, &msg); err != nil || msg.ConversationID <= 0 {
		h.pushError(client, core.ErrCodeBadRequest, "malformed msg data")
		return
	}

	// Persist-then-broadcast runs through the same service path as the REST
	// send; the room fan-out will echo the message back to this connection.
	if _, err := h.msg.SendText(ctx, msg.ConversationID, client.UserID, msg.Text); err != nil {
		switch {
		case errors.Is(err, messaging.ErrConversationNotFound):
			h.pushError(client, core.ErrCodeNotFound, "conversation not found")
		case errors.Is(err, messaging.ErrNotParticipant):
			h.pushError(client, core.ErrCodeNotParticipant, "not a participant")
		case errors.Is(err, messaging.ErrInvalidPayload):
			h.pushError(client, core.ErrCodeInvalidArgument, err.Error())
		default:
			h.log.Error().Err(err).Int64("conversation_id", msg.ConversationID).Msg("socket send failed")
			h.pushError(client, core.ErrCodeBadRequest, "send failed")
		}
	}
}

func (h *wsHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-client.Events:
			out := outboundFromEvent(event)
			if out == nil {
				continue
			}
			if err := wsjson.Write(ctx, conn, out); err != nil {
				h.log.Debug().Err(err).Str("connection_id", client.ID).Msg("websocket write failed")
				return
			}
		}
	}
}

// pushError feeds a protocol error into the client's event stream so the
// write goroutine stays the only socket writer.
func (h *wsHandler) pushError(client *core.Client, code, msg string) {
	event := &core.Event{Kind: core.EventError, Error: &core.CoreError{Code: code, Message: msg}}
	select {
	case client.Events <- event:
	default:
	}
}
