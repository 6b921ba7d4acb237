package realtime

import (
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"
)

// Member is the presence record for one user in one room. It is owned by the
// RoomPresenceTable entry for its room and overwritten on rejoin.
type Member struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Conn     Conn   `json:"-"`
}

// RoomPresenceTable tracks which users are present in which room. Rooms are
// created implicitly on first join and removed when their last member leaves;
// no memory is retained for empty rooms.
type RoomPresenceTable struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]Member // room -> userID -> Member
	logger *slog.Logger
}

// NewRoomPresenceTable creates an empty presence table.
func NewRoomPresenceTable() *RoomPresenceTable {
	return &RoomPresenceTable{
		rooms:  make(map[string]map[string]Member),
		logger: slog.Default().With("service", "room_presence"),
	}
}

// Join inserts or overwrites the presence record for (room, user) and returns
// the resulting roster, used to broadcast an updated online-users list.
func (t *RoomPresenceTable) Join(room, userID, userName string, conn Conn) []Member {
	t.mu.Lock()
	defer t.mu.Unlock()

	members, ok := t.rooms[room]
	if !ok {
		members = make(map[string]Member)
		t.rooms[room] = members
	}

	members[userID] = Member{UserID: userID, UserName: userName, Conn: conn}

	t.logger.Debug("User joined room", "room", room, "user_id", userID, "members", len(members))
	return rosterOf(members)
}

// Leave removes the record for (room, user) and returns the departing member
// so the caller can notify the rest of the room. Leaving a room the user is
// not a member of is a no-op, not an error; calling Leave twice is safe.
func (t *RoomPresenceTable) Leave(room, userID string) (Member, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	members, ok := t.rooms[room]
	if !ok {
		return Member{}, false
	}

	member, ok := members[userID]
	if !ok {
		return Member{}, false
	}
	delete(members, userID)

	if len(members) == 0 {
		delete(t.rooms, room)
	}

	t.logger.Debug("User left room", "room", room, "user_id", userID, "members", len(members))
	return member, true
}

// ListMembers returns the current roster of a room, empty if the room is
// unknown.
func (t *RoomPresenceTable) ListMembers(room string) []Member {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return rosterOf(t.rooms[room])
}

// Rooms returns the number of rooms with at least one member.
func (t *RoomPresenceTable) Rooms() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.rooms)
}

// rosterOf flattens a room's member map into a deterministic slice.
func rosterOf(members map[string]Member) []Member {
	roster := lo.Values(members)
	slices.SortFunc(roster, func(a, b Member) int {
		return strings.Compare(a.UserID, b.UserID)
	})
	return roster
}
