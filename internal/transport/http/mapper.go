package http

import (
	"github.com/duetlink/matchtalk/internal/core"
	"github.com/duetlink/matchtalk/internal/proto"
	"github.com/duetlink/matchtalk/internal/store"
)

// outboundFromEvent converts a core event into its wire form.
func outboundFromEvent(e *core.Event) *proto.Outbound {
	switch e.Kind {
	case core.EventRegistered:
		return &proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameRegistered,
			Data:  proto.EventRegistered{UserID: e.UserID},
		}
	case core.EventJoined:
		return &proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameJoined,
			Data:  proto.EventRoom{ConversationID: e.ConversationID},
		}
	case core.EventLeft:
		return &proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameLeft,
			Data:  proto.EventRoom{ConversationID: e.ConversationID},
		}
	case core.EventMessageCreated:
		return &proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameMessageCreated,
			Data:  eventMessage(e.Message),
		}
	case core.EventUnread:
		return &proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameUnread,
			Data:  proto.EventUnread{Total: e.TotalUnread},
		}
	case core.EventError:
		return &proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: e.Error.Code, Msg: e.Error.Message},
		}
	default:
		return nil
	}
}

func eventMessage(msg *store.Message) proto.EventMessage {
	return proto.EventMessage{
		ID:              msg.ID,
		ConversationID:  msg.ConversationID,
		SenderID:        msg.SenderID,
		Kind:            string(msg.Kind),
		Text:            msg.Text,
		MediaURL:        msg.MediaURL,
		MediaType:       string(msg.MediaType),
		VoiceURL:        msg.VoiceURL,
		DurationSeconds: msg.DurationSeconds,
		TS:              msg.CreatedAt.UTC().Unix(),
	}
}
