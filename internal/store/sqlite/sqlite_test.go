package sqlite

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duetlink/matchtalk/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	st, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func seedUsers(t *testing.T, st *SQLiteStore, usernames ...string) []int64 {
	t.Helper()

	ctx := context.Background()
	ids := make([]int64, 0, len(usernames))
	for _, name := range usernames {
		user, err := st.CreateUser(ctx, name, "hash")
		require.NoError(t, err)
		ids = append(ids, user.ID)
	}
	return ids
}

func appendText(t *testing.T, st *SQLiteStore, convID, senderID int64, text string, at time.Time) *store.Message {
	t.Helper()

	msg := &store.Message{
		ConversationID: convID,
		SenderID:       senderID,
		Kind:           store.MessageKindText,
		Text:           text,
		CreatedAt:      at,
	}
	require.NoError(t, st.AppendMessage(context.Background(), msg))
	require.NoError(t, st.TouchConversation(context.Background(), convID, at))
	return msg
}

func TestCreateOrGetConversationIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	ids := seedUsers(t, st, "alice", "bob")

	first, err := st.CreateOrGetConversation(ctx, ids[0], ids[1])
	require.NoError(t, err)
	second, err := st.CreateOrGetConversation(ctx, ids[1], ids[0])
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, store.PairKey(ids[1], ids[0]), first.PairKey)
	assert.Less(t, first.UserAID, first.UserBID)
}

func TestCreateOrGetConversationConcurrent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	ids := seedUsers(t, st, "alice", "bob")

	const callers = 8
	results := make([]int64, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := ids[0], ids[1]
			if i%2 == 1 {
				a, b = b, a
			}
			conv, err := st.CreateOrGetConversation(ctx, a, b)
			if err != nil {
				t.Errorf("caller %d: %v", i, err)
				return
			}
			results[i] = conv.ID
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		assert.Equal(t, results[0], results[i], "caller %d got a different conversation", i)
	}
}

func TestListConversationsOrderedByActivity(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	ids := seedUsers(t, st, "alice", "bob", "carol")

	withBob, err := st.CreateOrGetConversation(ctx, ids[0], ids[1])
	require.NoError(t, err)
	withCarol, err := st.CreateOrGetConversation(ctx, ids[0], ids[2])
	require.NoError(t, err)

	base := time.Now().UTC()
	appendText(t, st, withBob.ID, ids[1], "old", base.Add(-time.Hour))
	appendText(t, st, withCarol.ID, ids[2], "new", base)

	convs, err := st.ListConversationsForUser(ctx, ids[0])
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, withCarol.ID, convs[0].ID)
	assert.Equal(t, withBob.ID, convs[1].ID)

	// Activity in the other conversation reorders the list.
	appendText(t, st, withBob.ID, ids[1], "newer", base.Add(time.Minute))
	convs, err = st.ListConversationsForUser(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, withBob.ID, convs[0].ID)
}

func TestTouchConversationIsMonotonic(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	ids := seedUsers(t, st, "alice", "bob")

	conv, err := st.CreateOrGetConversation(ctx, ids[0], ids[1])
	require.NoError(t, err)

	later := time.Now().UTC().Add(time.Hour)
	require.NoError(t, st.TouchConversation(ctx, conv.ID, later))

	// A touch with an older timestamp must not move updated_at backwards.
	require.NoError(t, st.TouchConversation(ctx, conv.ID, later.Add(-30*time.Minute)))

	got, err := st.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, later, got.UpdatedAt, time.Second)
}

func TestMessagesChronologicalOrder(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	ids := seedUsers(t, st, "alice", "bob")

	conv, err := st.CreateOrGetConversation(ctx, ids[0], ids[1])
	require.NoError(t, err)

	base := time.Now().UTC()
	appendText(t, st, conv.ID, ids[0], "first", base)
	appendText(t, st, conv.ID, ids[1], "second", base.Add(time.Second))
	appendText(t, st, conv.ID, ids[0], "third", base.Add(2*time.Second))

	messages, err := st.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "first", messages[0].Text)
	assert.Equal(t, "second", messages[1].Text)
	assert.Equal(t, "third", messages[2].Text)

	last, err := st.LastMessage(ctx, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "third", last.Text)
}

func TestLastMessageEmptyConversation(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	ids := seedUsers(t, st, "alice", "bob")

	conv, err := st.CreateOrGetConversation(ctx, ids[0], ids[1])
	require.NoError(t, err)

	last, err := st.LastMessage(ctx, conv.ID)
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestMediaAndVoiceRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	ids := seedUsers(t, st, "alice", "bob")

	conv, err := st.CreateOrGetConversation(ctx, ids[0], ids[1])
	require.NoError(t, err)

	media := &store.Message{
		ConversationID: conv.ID,
		SenderID:       ids[0],
		Kind:           store.MessageKindMedia,
		MediaURL:       "https://cdn.example/pic.jpg",
		MediaType:      store.MediaTypeImage,
	}
	require.NoError(t, st.AppendMessage(ctx, media))

	voice := &store.Message{
		ConversationID:  conv.ID,
		SenderID:        ids[1],
		Kind:            store.MessageKindVoice,
		VoiceURL:        "https://cdn.example/note.ogg",
		DurationSeconds: 12,
	}
	require.NoError(t, st.AppendMessage(ctx, voice))

	messages, err := st.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	assert.Equal(t, store.MessageKindMedia, messages[0].Kind)
	assert.Equal(t, "https://cdn.example/pic.jpg", messages[0].MediaURL)
	assert.Equal(t, store.MediaTypeImage, messages[0].MediaType)
	assert.Empty(t, messages[0].VoiceURL)

	assert.Equal(t, store.MessageKindVoice, messages[1].Kind)
	assert.Equal(t, "https://cdn.example/note.ogg", messages[1].VoiceURL)
	assert.Equal(t, 12, messages[1].DurationSeconds)
	assert.Empty(t, messages[1].MediaURL)
}

func TestUnreadAccounting(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	ids := seedUsers(t, st, "alice", "bob", "carol")

	withBob, err := st.CreateOrGetConversation(ctx, ids[0], ids[1])
	require.NoError(t, err)
	withCarol, err := st.CreateOrGetConversation(ctx, ids[0], ids[2])
	require.NoError(t, err)

	base := time.Now().UTC()
	appendText(t, st, withBob.ID, ids[1], "from bob 1", base)
	appendText(t, st, withBob.ID, ids[1], "from bob 2", base.Add(time.Second))
	appendText(t, st, withBob.ID, ids[0], "from alice", base.Add(2*time.Second))
	appendText(t, st, withCarol.ID, ids[2], "from carol", base.Add(3*time.Second))

	// Own messages never count against the sender.
	count, err := st.CountUnread(ctx, withBob.ID, ids[0])
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	total, err := st.TotalUnread(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	require.NoError(t, st.MarkConversationRead(ctx, withBob.ID, ids[0]))

	count, err = st.CountUnread(ctx, withBob.ID, ids[0])
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// Bob's view of the same conversation is independent.
	count, err = st.CountUnread(ctx, withBob.ID, ids[1])
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	total, err = st.TotalUnread(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestMarkConversationUnreadFlipsOnlyLatestInbound(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	ids := seedUsers(t, st, "alice", "bob")

	conv, err := st.CreateOrGetConversation(ctx, ids[0], ids[1])
	require.NoError(t, err)

	base := time.Now().UTC()
	appendText(t, st, conv.ID, ids[1], "one", base)
	latest := appendText(t, st, conv.ID, ids[1], "two", base.Add(time.Second))
	appendText(t, st, conv.ID, ids[0], "own reply", base.Add(2*time.Second))

	require.NoError(t, st.MarkConversationRead(ctx, conv.ID, ids[0]))
	require.NoError(t, st.MarkConversationUnread(ctx, conv.ID, ids[0]))

	count, err := st.CountUnread(ctx, conv.ID, ids[0])
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	messages, err := st.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	for _, msg := range messages {
		if msg.ID == latest.ID {
			assert.False(t, msg.IsRead, "latest inbound should be unread")
		} else if msg.SenderID == ids[1] {
			assert.True(t, msg.IsRead, "older inbound should stay read")
		}
	}

	// Repeating the flip does not accumulate.
	require.NoError(t, st.MarkConversationUnread(ctx, conv.ID, ids[0]))
	count, err = st.CountUnread(ctx, conv.ID, ids[0])
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDeleteConversationCascades(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	ids := seedUsers(t, st, "alice", "bob")

	conv, err := st.CreateOrGetConversation(ctx, ids[0], ids[1])
	require.NoError(t, err)

	appendText(t, st, conv.ID, ids[0], "hello", time.Now().UTC())
	require.NoError(t, st.SetPinned(ctx, conv.ID, ids[1], true))

	require.NoError(t, st.DeleteConversation(ctx, conv.ID))

	_, err = st.GetConversation(ctx, conv.ID)
	assert.Error(t, err)

	messages, err := st.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)

	pinned, err := st.IsPinned(ctx, conv.ID, ids[1])
	require.NoError(t, err)
	assert.False(t, pinned)

	assert.Error(t, st.DeleteConversation(ctx, conv.ID))
}

func TestPinFlagPerUser(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	ids := seedUsers(t, st, "alice", "bob")

	conv, err := st.CreateOrGetConversation(ctx, ids[0], ids[1])
	require.NoError(t, err)

	pinned, err := st.IsPinned(ctx, conv.ID, ids[0])
	require.NoError(t, err)
	assert.False(t, pinned)

	require.NoError(t, st.SetPinned(ctx, conv.ID, ids[0], true))

	pinned, err = st.IsPinned(ctx, conv.ID, ids[0])
	require.NoError(t, err)
	assert.True(t, pinned)

	// The other participant's flag is untouched.
	pinned, err = st.IsPinned(ctx, conv.ID, ids[1])
	require.NoError(t, err)
	assert.False(t, pinned)

	require.NoError(t, st.SetPinned(ctx, conv.ID, ids[0], false))
	pinned, err = st.IsPinned(ctx, conv.ID, ids[0])
	require.NoError(t, err)
	assert.False(t, pinned)
}
