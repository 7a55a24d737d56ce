package chat

import (
	"slices"
	"strings"

	"github.com/samber/lo"
)

// Directory is the fixed set of rooms and their member sets. Rooms are
// created with the directory and live as long as it does.
type Directory struct {
	names []string
	rooms map[string]map[ConnID]struct{}
}

// NewDirectory creates one room per distinct non-blank name, keeping the
// given order.
func NewDirectory(names []string) *Directory {
	names = lo.Uniq(lo.Filter(lo.Map(names, func(n string, _ int) string {
		return strings.TrimSpace(n)
	}), func(n string, _ int) bool {
		return n != ""
	}))

	rooms := make(map[string]map[ConnID]struct{}, len(names))
	for _, name := range names {
		rooms[name] = make(map[ConnID]struct{})
	}
	return &Directory{names: names, rooms: rooms}
}

// Names returns the room names in configuration order.
func (d *Directory) Names() []string {
	return slices.Clone(d.names)
}

func (d *Directory) Has(room string) bool {
	_, ok := d.rooms[room]
	return ok
}

// Join adds id to room. It does not remove id from any other room; callers
// leave first.
func (d *Directory) Join(room string, id ConnID) error {
	members, ok := d.rooms[room]
	if !ok {
		return ErrUnknownRoom
	}
	members[id] = struct{}{}
	return nil
}

// Leave removes id from room and reports whether it was a member.
func (d *Directory) Leave(room string, id ConnID) bool {
	members, ok := d.rooms[room]
	if !ok {
		return false
	}
	if _, member := members[id]; !member {
		return false
	}
	delete(members, id)
	return true
}

func (d *Directory) Contains(room string, id ConnID) bool {
	_, ok := d.rooms[room][id]
	return ok
}

// Members returns the current member ids of room, sorted. Unknown rooms have
// no members.
func (d *Directory) Members(room string) []ConnID {
	members := lo.Keys(d.rooms[room])
	slices.Sort(members)
	return members
}

// Sizes returns the member count of every room.
func (d *Directory) Sizes() map[string]int {
	return lo.MapValues(d.rooms, func(members map[ConnID]struct{}, _ string) int {
		return len(members)
	})
}
