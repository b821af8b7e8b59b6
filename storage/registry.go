package storage

import (
	"signalroom.me/model"
	"signalroom.me/pkg/utils"
	"sync"
)

// CodeLength is the length of generated room codes
const CodeLength = 6

// Registry owns every live room. All methods are safe for concurrent use
// and each one is atomic with respect to the others.
type Registry interface {
	CreateRoom() string
	RoomExists(code string) bool
	RemoveRoom(code string)
	// AddMember adds memberID to the room and returns the other members.
	// ok is false when the room does not exist, nothing is changed then.
	AddMember(code, memberID string) (others []string, ok bool)
	// RemoveMember removes memberID from the room and returns who is left.
	// removed is false when the room or the member does not exist.
	// A room left empty by the removal is destroyed in the same step, closed reports it.
	RemoveMember(code, memberID string) (remaining []string, removed, closed bool)
	Members(code string) (members []string, ok bool)
	GetRoom(code string) (*model.RoomInfo, bool)
	RoomsCount() int
}

type registry struct {
	sync.Mutex
	rooms   map[string]*model.Room
	newCode func() string
}

func NewRegistry() Registry {
	return newRegistry(func() string {
		return utils.RandString(CodeLength)
	})
}

func newRegistry(gen func() string) *registry {
	return &registry{
		rooms:   make(map[string]*model.Room),
		newCode: gen,
	}
}

// generateCode draws codes until one is not used by a live room.
// Must be called with the lock held.
func (r *registry) generateCode() string {
	for {
		code := r.newCode()
		if _, exists := r.rooms[code]; !exists {
			return code
		}
	}
}

func (r *registry) CreateRoom() string {
	r.Lock()
	defer r.Unlock()
	code := r.generateCode()
	r.rooms[code] = model.NewRoom(code)
	return code
}

func (r *registry) RoomExists(code string) bool {
	r.Lock()
	_, exists := r.rooms[code]
	r.Unlock()
	return exists
}

func (r *registry) RemoveRoom(code string) {
	r.Lock()
	delete(r.rooms, code)
	r.Unlock()
}

func (r *registry) AddMember(code, memberID string) ([]string, bool) {
	r.Lock()
	defer r.Unlock()
	room, exists := r.rooms[code]
	if !exists {
		return nil, false
	}
	room.Members[memberID] = struct{}{}
	return room.MemberIDs(memberID), true
}

func (r *registry) RemoveMember(code, memberID string) ([]string, bool, bool) {
	r.Lock()
	defer r.Unlock()
	room, exists := r.rooms[code]
	if !exists {
		return nil, false, false
	}
	if _, member := room.Members[memberID]; !member {
		return room.MemberIDs(), false, false
	}
	delete(room.Members, memberID)
	if len(room.Members) == 0 {
		delete(r.rooms, code)
		return nil, true, true
	}
	return room.MemberIDs(), true, false
}

func (r *registry) Members(code string) ([]string, bool) {
	r.Lock()
	defer r.Unlock()
	room, exists := r.rooms[code]
	if !exists {
		return nil, false
	}
	return room.MemberIDs(), true
}

func (r *registry) GetRoom(code string) (*model.RoomInfo, bool) {
	r.Lock()
	defer r.Unlock()
	room, exists := r.rooms[code]
	if !exists {
		return nil, false
	}
	return room.Info(), true
}

func (r *registry) RoomsCount() int {
	r.Lock()
	defer r.Unlock()
	return len(r.rooms)
}
