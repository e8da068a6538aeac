// ABOUTME: Tests for the conversation view's merge and ownership rules
// ABOUTME: Idempotent merges, arrival order, identity recomputation, foreign-conversation drops

package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/chatsync/internal/chat"
)

const (
	convID = int64(7)
	me     = int64(1)
	peer   = int64(2)
)

var base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func msg(id, sender int64, text string) chat.Message {
	name := "Peer"
	if sender == me {
		name = "Me"
	}
	return chat.Message{
		ID:             id,
		ConversationID: convID,
		SenderID:       sender,
		SenderName:     name,
		Text:           text,
		CreatedAt:      chat.Timestamp{Time: base.Add(time.Duration(id) * time.Minute)},
	}
}

func ids(msgs []chat.Message) []int64 {
	out := make([]int64, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func TestView_LoadKeepsSourceOrder(t *testing.T) {
	v := NewView(convID)
	require.NoError(t, v.Load([]chat.Message{msg(3, peer, "c"), msg(1, peer, "a"), msg(2, me, "b")}))

	assert.True(t, v.Loaded())
	assert.Equal(t, []int64{3, 1, 2}, ids(v.Messages()), "history is not resequenced")
}

func TestView_LoadTwiceFails(t *testing.T) {
	v := NewView(convID)
	require.NoError(t, v.Load(nil))
	assert.ErrorIs(t, v.Load([]chat.Message{msg(1, peer, "a")}), ErrAlreadyLoaded)
	assert.Equal(t, 0, v.Len())
}

func TestView_MergeIsIdempotent(t *testing.T) {
	once := NewView(convID)
	require.NoError(t, once.Load([]chat.Message{msg(1, peer, "a")}))
	assert.True(t, once.Merge(msg(2, peer, "b")))

	twice := NewView(convID)
	require.NoError(t, twice.Load([]chat.Message{msg(1, peer, "a")}))
	assert.True(t, twice.Merge(msg(2, peer, "b")))
	assert.False(t, twice.Merge(msg(2, peer, "b")))

	assert.Equal(t, once.Len(), twice.Len())
	assert.Equal(t, once.Messages(), twice.Messages())
}

func TestView_MergeDropsHistoryDuplicates(t *testing.T) {
	v := NewView(convID)
	require.NoError(t, v.Load([]chat.Message{msg(1, peer, "a"), msg(2, peer, "b")}))

	assert.False(t, v.Merge(msg(2, peer, "b again")))
	assert.Equal(t, 2, v.Len())
	assert.Equal(t, "b", v.Messages()[1].Text, "the first copy wins")
}

func TestView_MergeAppendsInArrivalOrder(t *testing.T) {
	history := []chat.Message{msg(10, peer, "h1"), msg(11, me, "h2")}
	incoming := []chat.Message{msg(15, peer, "x"), msg(12, peer, "y"), msg(20, me, "z"), msg(13, peer, "w")}

	v := NewView(convID)
	require.NoError(t, v.Load(history))
	for _, m := range incoming {
		assert.True(t, v.Merge(m))
	}

	assert.Equal(t, len(history)+len(incoming), v.Len())
	assert.Equal(t, []int64{10, 11, 15, 12, 20, 13}, ids(v.Messages()), "no reordering by id or timestamp")
}

func TestView_MergeDropsOtherConversations(t *testing.T) {
	v := NewView(convID)
	require.NoError(t, v.Load([]chat.Message{msg(1, peer, "a")}))

	other := msg(2, peer, "elsewhere")
	other.ConversationID = convID + 1

	assert.False(t, v.Merge(other))
	assert.Equal(t, 1, v.Len())
	assert.False(t, v.Contains(2))
}

func TestView_LiveMessagesBeforeLoadAreKept(t *testing.T) {
	v := NewView(convID)
	assert.True(t, v.Merge(msg(5, peer, "early")))
	assert.True(t, v.Merge(msg(2, peer, "also in history")))

	require.NoError(t, v.Load([]chat.Message{msg(1, peer, "a"), msg(2, peer, "b")}))

	assert.Equal(t, []int64{1, 2, 5}, ids(v.Messages()))
	assert.Equal(t, "b", v.Messages()[1].Text, "history copy replaces the early live copy")
}

func TestView_OwnershipDefaultsFalseUntilIdentityKnown(t *testing.T) {
	v := NewView(convID)
	require.NoError(t, v.Load([]chat.Message{msg(1, me, "mine"), msg(2, peer, "theirs")}))
	v.Merge(msg(3, me, "live mine"))

	for _, m := range v.Messages() {
		assert.False(t, m.IsOwn, "message %d", m.ID)
	}

	v.SetIdentity(&chat.Identity{ID: me, Name: "Me"})
	v.Merge(msg(4, me, "after identity"))

	for _, m := range v.Messages() {
		assert.Equal(t, m.SenderID == me, m.IsOwn, "message %d", m.ID)
	}
}

func TestView_SetIdentityIsReappliable(t *testing.T) {
	v := NewView(convID)
	require.NoError(t, v.Load([]chat.Message{msg(1, me, "a"), msg(2, peer, "b")}))

	v.SetIdentity(&chat.Identity{ID: me})
	first := v.Messages()
	v.SetIdentity(&chat.Identity{ID: me})
	assert.Equal(t, first, v.Messages())

	v.SetIdentity(&chat.Identity{ID: peer})
	assert.False(t, v.Messages()[0].IsOwn)
	assert.True(t, v.Messages()[1].IsOwn)

	v.SetIdentity(nil)
	for _, m := range v.Messages() {
		assert.False(t, m.IsOwn)
	}
}

func TestView_RemoteOwnershipClaimIgnored(t *testing.T) {
	v := NewView(convID)
	v.SetIdentity(&chat.Identity{ID: me})

	spoofed := msg(1, peer, "trust me")
	spoofed.IsOwn = true
	v.Merge(spoofed)

	assert.False(t, v.Messages()[0].IsOwn)
}

func TestView_MessagesReturnsCopy(t *testing.T) {
	v := NewView(convID)
	v.Merge(msg(1, peer, "a"))

	out := v.Messages()
	out[0].Text = "mutated"

	assert.Equal(t, "a", v.Messages()[0].Text)
}

func TestView_Title(t *testing.T) {
	v := NewView(convID)
	assert.Equal(t, DefaultTitle, v.Title())

	v.SetIdentity(&chat.Identity{ID: me})
	v.Merge(msg(1, me, "hi"))
	assert.Equal(t, DefaultTitle, v.Title())

	v.Merge(msg(2, peer, "hello"))
	assert.Equal(t, "Peer", v.Title())
}
