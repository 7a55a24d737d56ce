package chat

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/Tyrowin/roomrelay/internal/protocol"
)

// Delivery is one outbound event and the recipients it must reach.
type Delivery struct {
	To    []ConnID
	Event protocol.Outbound
}

// Censor rewrites chat text before it is relayed.
type Censor interface {
	Censor(text string) string
}

// Options tunes a Router. Zero values select the defaults.
type Options struct {
	// MaxUsernameLength bounds display names, in runes. Defaults to 32.
	MaxUsernameLength int
	// Censor, when set, filters room and private message text.
	Censor Censor
	// Now stamps chat messages. Defaults to time.Now.
	Now func() time.Time
	// DefaultName names new connections. Defaults to "User-<0..999>".
	DefaultName func() string
}

// Router is the protocol state machine. Each call mutates the registry and
// directory as needed and returns the deliveries it triggers, in the order
// they must be sent: targeted reply, then room broadcast, then the global
// user list.
type Router struct {
	registry    *Registry
	rooms       *Directory
	maxName     int
	censor      Censor
	now         func() time.Time
	defaultName func() string
}

func NewRouter(rooms []string, opts Options) *Router {
	if opts.MaxUsernameLength <= 0 {
		opts.MaxUsernameLength = 32
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DefaultName == nil {
		opts.DefaultName = func() string {
			return fmt.Sprintf("User-%d", rand.IntN(1000))
		}
	}
	return &Router{
		registry:    NewRegistry(),
		rooms:       NewDirectory(rooms),
		maxName:     opts.MaxUsernameLength,
		censor:      opts.Censor,
		now:         opts.Now,
		defaultName: opts.DefaultName,
	}
}

// Connect registers id with a default name and welcomes it. The connection
// starts outside of every room.
func (r *Router) Connect(id ConnID) ([]Delivery, error) {
	conn, err := r.registry.Add(id, r.defaultName())
	if err != nil {
		return nil, err
	}

	users := lo.Map(r.registry.Snapshot(), func(c Connection, _ int) protocol.UserSummary {
		return protocol.UserSummary{ID: string(c.ID), Username: c.Name, Status: protocol.StatusOnline}
	})
	welcome := protocol.NewInit(string(conn.ID), conn.Name, r.rooms.Names(), users)
	return []Delivery{to(id, welcome)}, nil
}

// Disconnect tears id down: it leaves its room, drops out of the registry and
// everyone gets a fresh user list. Unknown ids produce nothing, so calling it
// twice is harmless.
func (r *Router) Disconnect(id ConnID) []Delivery {
	conn, ok := r.registry.Get(id)
	if !ok {
		return nil
	}

	var out []Delivery
	if conn.InRoom() {
		out = append(out, r.leave(conn)...)
	}
	r.registry.Remove(id)
	return append(out, r.userList())
}

// Handle routes one inbound event from id.
func (r *Router) Handle(id ConnID, event protocol.Inbound) ([]Delivery, error) {
	conn, ok := r.registry.Get(id)
	if !ok {
		return nil, ErrUnknownConnection
	}

	switch ev := event.(type) {
	case protocol.SetUsername:
		return r.setUsername(conn, ev.Username)
	case protocol.JoinRoom:
		return r.join(conn, ev.Room)
	case protocol.LeaveRoom:
		if !r.rooms.Contains(ev.Room, conn.ID) {
			return nil, fmt.Errorf("%w: %s", ErrNotInRoom, ev.Room)
		}
		return append(r.leave(conn), r.userList()), nil
	case protocol.SendMessage:
		return r.message(conn, ev.Room, ev.Text)
	case protocol.PrivateMessage:
		return r.privateMessage(conn, ConnID(ev.To), ev.Text)
	default:
		return nil, nil
	}
}

// Connection returns a copy of the record for id.
func (r *Router) Connection(id ConnID) (Connection, bool) {
	conn, ok := r.registry.Get(id)
	if !ok {
		return Connection{}, false
	}
	return *conn, true
}

// Members returns the members of room.
func (r *Router) Members(room string) ([]ConnID, bool) {
	if !r.rooms.Has(room) {
		return nil, false
	}
	return r.rooms.Members(room), true
}

// RoomSizes returns the member count per room.
func (r *Router) RoomSizes() map[string]int {
	return r.rooms.Sizes()
}

// ConnectionCount returns the number of registered connections.
func (r *Router) ConnectionCount() int {
	return r.registry.Len()
}

func (r *Router) setUsername(conn *Connection, name string) ([]Delivery, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > r.maxName {
		return nil, fmt.Errorf("%w: must be 1 to %d characters", ErrInvalidUsername, r.maxName)
	}
	conn.Name = name
	return []Delivery{r.userList()}, nil
}

// join validates the target before touching the current room, so a join to an
// unknown room leaves the connection where it was. Rejoining the current room
// is processed as a full leave followed by a join.
func (r *Router) join(conn *Connection, room string) ([]Delivery, error) {
	if !r.rooms.Has(room) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRoom, room)
	}

	var out []Delivery
	if conn.InRoom() {
		out = append(out, r.leave(conn)...)
	}

	if err := r.rooms.Join(room, conn.ID); err != nil {
		return nil, err
	}
	conn.Room = room

	out = append(out, to(conn.ID, protocol.NewRoomJoined(room)))
	if others := lo.Without(r.rooms.Members(room), conn.ID); len(others) > 0 {
		out = append(out, Delivery{To: others, Event: protocol.NewUserJoined(room, string(conn.ID), conn.Name)})
	}
	return append(out, r.userList()), nil
}

// leave removes conn from its current room and notifies the remaining
// members. The caller appends the user list.
func (r *Router) leave(conn *Connection) []Delivery {
	room := conn.Room
	r.rooms.Leave(room, conn.ID)
	conn.Room = ""

	remaining := r.rooms.Members(room)
	if len(remaining) == 0 {
		return nil
	}
	return []Delivery{{To: remaining, Event: protocol.NewUserLeft(room, string(conn.ID), conn.Name)}}
}

func (r *Router) message(conn *Connection, room, text string) ([]Delivery, error) {
	if !r.rooms.Has(room) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRoom, room)
	}
	if !r.rooms.Contains(room, conn.ID) {
		return nil, fmt.Errorf("%w: %s", ErrNotInRoom, room)
	}

	msg := protocol.NewChatMessage(room, string(conn.ID), conn.Name, r.filter(text), r.timestamp())
	return []Delivery{{To: r.rooms.Members(room), Event: msg}}, nil
}

func (r *Router) privateMessage(conn *Connection, toID ConnID, text string) ([]Delivery, error) {
	recipient, ok := r.registry.Get(toID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRecipient, toID)
	}

	msg := protocol.NewDirectMessage(string(conn.ID), conn.Name, r.filter(text), r.timestamp())
	return []Delivery{
		to(recipient.ID, msg),
		to(conn.ID, msg.Echo(string(recipient.ID), recipient.Name)),
	}, nil
}

func (r *Router) userList() Delivery {
	conns := r.registry.Snapshot()
	users := lo.Map(conns, func(c Connection, _ int) protocol.UserStatus {
		status := protocol.UserStatus{ID: string(c.ID), Username: c.Name, Status: protocol.StatusOnline}
		if c.InRoom() {
			status.CurrentRoom = lo.ToPtr(c.Room)
		}
		return status
	})
	ids := lo.Map(conns, func(c Connection, _ int) ConnID { return c.ID })
	return Delivery{To: ids, Event: protocol.NewUserList(users)}
}

func (r *Router) filter(text string) string {
	if r.censor == nil {
		return text
	}
	return r.censor.Censor(text)
}

func (r *Router) timestamp() string {
	return r.now().UTC().Format(protocol.TimestampLayout)
}

func to(id ConnID, event protocol.Outbound) Delivery {
	return Delivery{To: []ConnID{id}, Event: event}
}
