package chat

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/roomrelay/internal/protocol"
)

var fixedNow = time.Date(2026, 10, 18, 9, 30, 0, 123_000_000, time.UTC)

func newTestRouter(t *testing.T, opts Options) *Router {
	t.Helper()
	n := 0
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	if opts.DefaultName == nil {
		opts.DefaultName = func() string {
			n++
			return fmt.Sprintf("User-%d", n)
		}
	}
	return NewRouter([]string{"general", "random"}, opts)
}

func connect(t *testing.T, r *Router, ids ...ConnID) {
	t.Helper()
	for _, id := range ids {
		_, err := r.Connect(id)
		require.NoError(t, err)
	}
}

func handle(t *testing.T, r *Router, id ConnID, event protocol.Inbound) []Delivery {
	t.Helper()
	out, err := r.Handle(id, event)
	require.NoError(t, err)
	return out
}

func kinds(deliveries []Delivery) []protocol.Kind {
	out := make([]protocol.Kind, 0, len(deliveries))
	for _, d := range deliveries {
		out = append(out, d.Event.Kind())
	}
	return out
}

// received returns the events id would receive, in order.
func received(deliveries []Delivery, id ConnID) []protocol.Outbound {
	var out []protocol.Outbound
	for _, d := range deliveries {
		for _, to := range d.To {
			if to == id {
				out = append(out, d.Event)
			}
		}
	}
	return out
}

func countKind(events []protocol.Outbound, kind protocol.Kind) int {
	n := 0
	for _, e := range events {
		if e.Kind() == kind {
			n++
		}
	}
	return n
}

func TestRouter_ConnectWelcomesOnlyTheNewConnection(t *testing.T) {
	req := require.New(t)
	r := newTestRouter(t, Options{})
	connect(t, r, "a")

	out, err := r.Connect("b")
	req.NoError(err)
	req.Len(out, 1)
	req.Equal([]ConnID{"b"}, out[0].To)

	welcome, ok := out[0].Event.(protocol.Init)
	req.True(ok)
	req.Equal("b", welcome.UserID)
	req.Equal("User-2", welcome.Username)
	req.Equal([]string{"general", "random"}, welcome.Rooms)
	req.Equal([]protocol.UserSummary{
		{ID: "a", Username: "User-1", Status: protocol.StatusOnline},
		{ID: "b", Username: "User-2", Status: protocol.StatusOnline},
	}, welcome.Users)

	conn, ok := r.Connection("b")
	req.True(ok)
	req.False(conn.InRoom())

	_, err = r.Connect("b")
	req.ErrorIs(err, ErrDuplicateConnection)
}

func TestRouter_DefaultNameFormat(t *testing.T) {
	r := NewRouter([]string{"general"}, Options{})
	connect(t, r, "a")

	conn, _ := r.Connection("a")
	require.Regexp(t, `^User-\d{1,3}$`, conn.Name)
}

func TestRouter_JoinRoom(t *testing.T) {
	req := require.New(t)
	r := newTestRouter(t, Options{})
	connect(t, r, "a", "b", "c")

	out := handle(t, r, "a", protocol.JoinRoom{Room: "general"})
	req.Equal([]protocol.Kind{protocol.KindRoomJoined, protocol.KindUserList}, kinds(out),
		"first member has nobody to notify")

	out = handle(t, r, "b", protocol.JoinRoom{Room: "general"})
	req.Equal([]protocol.Kind{protocol.KindRoomJoined, protocol.KindUserJoined, protocol.KindUserList}, kinds(out))

	req.Equal([]ConnID{"b"}, out[0].To)
	req.Equal(protocol.NewRoomJoined("general"), out[0].Event)
	req.Equal([]ConnID{"a"}, out[1].To)
	req.Equal(protocol.NewUserJoined("general", "b", "User-2"), out[1].Event)
	req.Equal([]ConnID{"a", "b", "c"}, out[2].To)

	list := out[2].Event.(protocol.UserList)
	req.Len(list.Users, 3)
	req.Equal("general", *list.Users[0].CurrentRoom)
	req.Equal("general", *list.Users[1].CurrentRoom)
	req.Nil(list.Users[2].CurrentRoom)

	members, ok := r.Members("general")
	req.True(ok)
	req.Equal([]ConnID{"a", "b"}, members)
}

func TestRouter_JoinUnknownRoomKeepsCurrentRoom(t *testing.T) {
	r := newTestRouter(t, Options{})
	connect(t, r, "a")
	handle(t, r, "a", protocol.JoinRoom{Room: "general"})

	out, err := r.Handle("a", protocol.JoinRoom{Room: "lobby"})
	require.ErrorIs(t, err, ErrUnknownRoom)
	assert.Empty(t, out)

	conn, _ := r.Connection("a")
	assert.Equal(t, "general", conn.Room)
}

func TestRouter_SwitchRoomsLeavesOldRoomOnce(t *testing.T) {
	req := require.New(t)
	r := newTestRouter(t, Options{})
	connect(t, r, "a", "b", "c")
	handle(t, r, "a", protocol.JoinRoom{Room: "general"})
	handle(t, r, "b", protocol.JoinRoom{Room: "general"})
	handle(t, r, "c", protocol.JoinRoom{Room: "random"})

	out := handle(t, r, "a", protocol.JoinRoom{Room: "random"})
	req.Equal([]protocol.Kind{
		protocol.KindUserLeft, protocol.KindRoomJoined, protocol.KindUserJoined, protocol.KindUserList,
	}, kinds(out))

	toB := received(out, "b")
	req.Equal(1, countKind(toB, protocol.KindUserLeft))
	req.Equal(protocol.NewUserLeft("general", "a", "User-1"), toB[0])
	req.Equal(1, countKind(received(out, "c"), protocol.KindUserJoined))

	generalMembers, _ := r.Members("general")
	randomMembers, _ := r.Members("random")
	req.Equal([]ConnID{"b"}, generalMembers)
	req.Equal([]ConnID{"a", "c"}, randomMembers)
}

func TestRouter_RejoinCurrentRoomIsLeaveThenJoin(t *testing.T) {
	r := newTestRouter(t, Options{})
	connect(t, r, "a", "b")
	handle(t, r, "a", protocol.JoinRoom{Room: "general"})
	handle(t, r, "b", protocol.JoinRoom{Room: "general"})

	out := handle(t, r, "a", protocol.JoinRoom{Room: "general"})
	assert.Equal(t, []protocol.Kind{
		protocol.KindUserLeft, protocol.KindRoomJoined, protocol.KindUserJoined, protocol.KindUserList,
	}, kinds(out))

	members, _ := r.Members("general")
	assert.Equal(t, []ConnID{"a", "b"}, members)
}

func TestRouter_LeaveRoom(t *testing.T) {
	req := require.New(t)
	r := newTestRouter(t, Options{})
	connect(t, r, "a", "b")
	handle(t, r, "a", protocol.JoinRoom{Room: "general"})
	handle(t, r, "b", protocol.JoinRoom{Room: "general"})

	out := handle(t, r, "a", protocol.LeaveRoom{Room: "general"})
	req.Equal([]protocol.Kind{protocol.KindUserLeft, protocol.KindUserList}, kinds(out))
	req.Equal([]ConnID{"b"}, out[0].To)
	req.Equal([]ConnID{"a", "b"}, out[1].To)

	conn, _ := r.Connection("a")
	req.False(conn.InRoom())

	out, err := r.Handle("a", protocol.LeaveRoom{Room: "general"})
	req.ErrorIs(err, ErrNotInRoom)
	req.Empty(out, "leaving a room twice must not broadcast")

	out, err = r.Handle("b", protocol.LeaveRoom{Room: "random"})
	req.ErrorIs(err, ErrNotInRoom)
	req.Empty(out)
}

func TestRouter_RoomMessageReachesEveryMemberOnce(t *testing.T) {
	req := require.New(t)
	r := newTestRouter(t, Options{})
	connect(t, r, "a", "b", "c")
	handle(t, r, "a", protocol.JoinRoom{Room: "general"})
	handle(t, r, "b", protocol.JoinRoom{Room: "general"})
	handle(t, r, "c", protocol.JoinRoom{Room: "random"})

	out := handle(t, r, "a", protocol.SendMessage{Room: "general", Text: "hi"})
	req.Len(out, 1)
	req.Equal([]ConnID{"a", "b"}, out[0].To)
	req.Equal(protocol.ChatMessage{
		Type:      protocol.KindMessage,
		Room:      "general",
		From:      "a",
		Username:  "User-1",
		Text:      "hi",
		Timestamp: "2026-10-18T09:30:00.123Z",
	}, out[0].Event)
	req.Empty(received(out, "c"))
}

func TestRouter_RoomMessageRejections(t *testing.T) {
	r := newTestRouter(t, Options{})
	connect(t, r, "a")

	_, err := r.Handle("a", protocol.SendMessage{Room: "general", Text: "hi"})
	assert.ErrorIs(t, err, ErrNotInRoom)

	_, err = r.Handle("a", protocol.SendMessage{Room: "lobby", Text: "hi"})
	assert.ErrorIs(t, err, ErrUnknownRoom)
}

func TestRouter_PrivateMessage(t *testing.T) {
	req := require.New(t)
	r := newTestRouter(t, Options{})
	connect(t, r, "a", "b", "c")
	handle(t, r, "b", protocol.SetUsername{Username: "bob"})

	out := handle(t, r, "a", protocol.PrivateMessage{To: "b", Text: "psst"})
	req.Len(out, 2)

	toB := received(out, "b")
	req.Len(toB, 1)
	recipientCopy := toB[0].(protocol.DirectMessage)
	req.Equal("a", recipientCopy.From)
	req.Equal("User-1", recipientCopy.FromUsername)
	req.Equal("psst", recipientCopy.Text)
	req.Empty(recipientCopy.To)

	toA := received(out, "a")
	req.Len(toA, 1)
	senderCopy := toA[0].(protocol.DirectMessage)
	req.Equal("b", senderCopy.To)
	req.Equal("bob", senderCopy.ToUsername)
	req.Equal(recipientCopy.Timestamp, senderCopy.Timestamp)

	req.Empty(received(out, "c"))

	_, err := r.Handle("a", protocol.PrivateMessage{To: "ghost", Text: "?"})
	req.ErrorIs(err, ErrUnknownRecipient)
}

func TestRouter_SetUsername(t *testing.T) {
	req := require.New(t)
	r := newTestRouter(t, Options{MaxUsernameLength: 5})
	connect(t, r, "a", "b")

	out := handle(t, r, "a", protocol.SetUsername{Username: "  ann "})
	req.Equal([]protocol.Kind{protocol.KindUserList}, kinds(out))
	req.Equal([]ConnID{"a", "b"}, out[0].To)
	req.Equal("ann", out[0].Event.(protocol.UserList).Users[0].Username)

	for _, bad := range []string{"   ", "abcdef", "ééééééé"} {
		_, err := r.Handle("a", protocol.SetUsername{Username: bad})
		req.ErrorIs(err, ErrInvalidUsername, bad)
	}
	conn, _ := r.Connection("a")
	req.Equal("ann", conn.Name)
}

type upperCensor struct{}

func (upperCensor) Censor(text string) string { return strings.ToUpper(text) }

func TestRouter_CensorFiltersText(t *testing.T) {
	r := newTestRouter(t, Options{Censor: upperCensor{}})
	connect(t, r, "a", "b")
	handle(t, r, "a", protocol.JoinRoom{Room: "general"})

	out := handle(t, r, "a", protocol.SendMessage{Room: "general", Text: "hi"})
	assert.Equal(t, "HI", out[0].Event.(protocol.ChatMessage).Text)

	out = handle(t, r, "a", protocol.PrivateMessage{To: "b", Text: "yo"})
	assert.Equal(t, "YO", out[0].Event.(protocol.DirectMessage).Text)
	assert.Equal(t, "YO", out[1].Event.(protocol.DirectMessage).Text)
}

func TestRouter_DisconnectFromRoom(t *testing.T) {
	req := require.New(t)
	r := newTestRouter(t, Options{})
	connect(t, r, "a", "b", "c")
	handle(t, r, "a", protocol.JoinRoom{Room: "general"})
	handle(t, r, "b", protocol.JoinRoom{Room: "general"})

	out := r.Disconnect("a")
	req.Equal([]protocol.Kind{protocol.KindUserLeft, protocol.KindUserList}, kinds(out))

	toB := received(out, "b")
	req.Equal(1, countKind(toB, protocol.KindUserLeft))
	req.Equal(1, countKind(toB, protocol.KindUserList))
	req.Equal(1, countKind(received(out, "c"), protocol.KindUserList))
	req.Empty(received(out, "a"))

	list := out[1].Event.(protocol.UserList)
	for _, u := range list.Users {
		req.NotEqual("a", u.ID)
	}

	members, _ := r.Members("general")
	req.Equal([]ConnID{"b"}, members)
	req.Equal(2, r.ConnectionCount())

	req.Nil(r.Disconnect("a"), "second teardown must be a no-op")
	req.Equal(2, r.ConnectionCount())
}

func TestRouter_DisconnectWithoutRoom(t *testing.T) {
	r := newTestRouter(t, Options{})
	connect(t, r, "a", "b")

	out := r.Disconnect("a")
	assert.Equal(t, []protocol.Kind{protocol.KindUserList}, kinds(out))
	assert.Equal(t, []ConnID{"b"}, out[0].To)
}

func TestRouter_UnknownConnection(t *testing.T) {
	r := newTestRouter(t, Options{})

	_, err := r.Handle("ghost", protocol.JoinRoom{Room: "general"})
	assert.ErrorIs(t, err, ErrUnknownConnection)
}

func TestRouter_SingleRoomInvariant(t *testing.T) {
	r := newTestRouter(t, Options{})
	ids := []ConnID{"a", "b", "c", "d"}
	rooms := []string{"general", "random", "lobby"}
	connect(t, r, ids...)

	rng := rand.New(rand.NewPCG(7, 11))
	for step := 0; step < 500; step++ {
		id := ids[rng.IntN(len(ids))]
		room := rooms[rng.IntN(len(rooms))]
		if rng.IntN(2) == 0 {
			_, _ = r.Handle(id, protocol.JoinRoom{Room: room})
		} else {
			_, _ = r.Handle(id, protocol.LeaveRoom{Room: room})
		}

		for _, candidate := range ids {
			conn, _ := r.Connection(candidate)
			memberships := 0
			for _, name := range []string{"general", "random"} {
				members, _ := r.Members(name)
				for _, m := range members {
					if m == candidate {
						memberships++
						require.Equal(t, name, conn.Room, "step %d", step)
					}
				}
			}
			require.LessOrEqual(t, memberships, 1, "step %d", step)
			if memberships == 0 {
				require.False(t, conn.InRoom(), "step %d", step)
			}
		}
	}
}
