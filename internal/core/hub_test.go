package core

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/duetlink/matchtalk/internal/store"
)

func newTestHub(t *testing.T) (*Hub, *Registry) {
	t.Helper()

	registry := NewRegistry()
	logger := zerolog.New(nil)
	hub := NewHub(registry, &logger)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	go hub.Run(ctx)

	return hub, registry
}

func TestHubJoinPublishLeave(t *testing.T) {
	hub, _ := newTestHub(t)

	alice := NewClient("conn-a")
	bob := NewClient("conn-b")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)

	hub.BindUser(alice, 1)
	hub.BindUser(bob, 2)
	mustEvent(t, alice.Events, EventRegistered)
	mustEvent(t, bob.Events, EventRegistered)

	alice.Commands <- &Command{Kind: CommandJoinRoom, ConversationID: 42}
	bob.Commands <- &Command{Kind: CommandJoinRoom, ConversationID: 42}
	mustEvent(t, alice.Events, EventJoined)
	mustEvent(t, bob.Events, EventJoined)

	hub.PublishMessage(42, &store.Message{
		ID:             7,
		ConversationID: 42,
		SenderID:       1,
		Kind:           store.MessageKindText,
		Text:           "hi",
	})

	ev := mustEvent(t, bob.Events, EventMessageCreated)
	if ev.Message == nil || ev.Message.Text != "hi" || ev.ConversationID != 42 {
		t.Fatalf("unexpected message event: %+v", ev)
	}
	// The sender's own connection is in the room too.
	ev = mustEvent(t, alice.Events, EventMessageCreated)
	if ev.Message == nil || ev.Message.ID != 7 {
		t.Fatalf("unexpected message event: %+v", ev)
	}

	alice.Commands <- &Command{Kind: CommandLeaveRoom, ConversationID: 42}
	mustEvent(t, alice.Events, EventLeft)

	hub.PublishMessage(42, &store.Message{ID: 8, ConversationID: 42, SenderID: 2, Kind: store.MessageKindText, Text: "bye"})
	mustEvent(t, bob.Events, EventMessageCreated)

	select {
	case ev := <-alice.Events:
		if ev.Kind == EventMessageCreated {
			t.Fatalf("alice received message after leaving: %+v", ev)
		}
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHubDoubleJoinProducesError(t *testing.T) {
	hub, _ := newTestHub(t)

	alice := NewClient("conn-a")
	hub.RegisterClient(alice)

	alice.Commands <- &Command{Kind: CommandJoinRoom, ConversationID: 42}
	alice.Commands <- &Command{Kind: CommandJoinRoom, ConversationID: 42}

	ev := mustEvent(t, alice.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeAlreadyJoined {
		t.Fatalf("expected already_joined error, got %+v", ev)
	}
}

func TestHubLeaveUnknownRoomProducesError(t *testing.T) {
	hub, _ := newTestHub(t)

	alice := NewClient("conn-a")
	hub.RegisterClient(alice)

	alice.Commands <- &Command{Kind: CommandLeaveRoom, ConversationID: 99}

	ev := mustEvent(t, alice.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeNotInRoom {
		t.Fatalf("expected not_in_room error, got %+v", ev)
	}
}

func TestHubPublishUnreadReachesActiveConnection(t *testing.T) {
	hub, _ := newTestHub(t)

	alice := NewClient("conn-a")
	hub.RegisterClient(alice)
	hub.BindUser(alice, 1)
	mustEvent(t, alice.Events, EventRegistered)

	hub.PublishUnread(1, 3)

	ev := mustEvent(t, alice.Events, EventUnread)
	if ev.TotalUnread != 3 {
		t.Fatalf("expected total unread 3, got %d", ev.TotalUnread)
	}

	// Unknown user is a silent no-op.
	hub.PublishUnread(777, 1)
}

func TestHubUnregisterRemovesFromRoomsAndRegistry(t *testing.T) {
	hub, registry := newTestHub(t)

	alice := NewClient("conn-a")
	bob := NewClient("conn-b")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)
	hub.BindUser(alice, 1)
	hub.BindUser(bob, 2)

	alice.Commands <- &Command{Kind: CommandJoinRoom, ConversationID: 42}
	bob.Commands <- &Command{Kind: CommandJoinRoom, ConversationID: 42}
	mustEvent(t, alice.Events, EventJoined)
	mustEvent(t, bob.Events, EventJoined)

	hub.UnregisterClient(alice)

	// Wait until the disconnect is visible through the registry.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := registry.Resolve(1); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("registry still resolves disconnected user")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.PublishMessage(42, &store.Message{ID: 9, ConversationID: 42, SenderID: 2, Kind: store.MessageKindText, Text: "gone?"})
	mustEvent(t, bob.Events, EventMessageCreated)
}

func TestHubSlowConsumerDoesNotBlockOthers(t *testing.T) {
	hub, _ := newTestHub(t)

	slow := NewClient("conn-slow")
	fast := NewClient("conn-fast")
	hub.RegisterClient(slow)
	hub.RegisterClient(fast)

	slow.Commands <- &Command{Kind: CommandJoinRoom, ConversationID: 42}
	fast.Commands <- &Command{Kind: CommandJoinRoom, ConversationID: 42}
	mustEvent(t, slow.Events, EventJoined)
	mustEvent(t, fast.Events, EventJoined)

	// Nobody drains slow.Events; overflow its buffer and keep publishing.
	for i := range 32 {
		hub.PublishMessage(42, &store.Message{ID: int64(i + 1), ConversationID: 42, SenderID: 1, Kind: store.MessageKindText, Text: "x"})
	}

	// The fast consumer keeps receiving.
	mustEvent(t, fast.Events, EventMessageCreated)
}
