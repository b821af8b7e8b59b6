package model

type (
	// Room is one signaling session, members are connection identifiers
	Room struct {
		Code    string
		Members map[string]struct{}
	}

	// RoomInfo is the public view of a live room
	RoomInfo struct {
		Code    string `json:"code"`
		Members int    `json:"members"`
	}

	Stats struct {
		Date         string `json:"date"`
		Visits       int64  `json:"visits"`
		RoomsCreated int64  `json:"rooms_created"`
		LiveRooms    int    `json:"live_rooms"`
		Peers        int    `json:"peers"`
	}
)

func NewRoom(code string) *Room {
	return &Room{
		Code:    code,
		Members: make(map[string]struct{}),
	}
}

// MemberIDs returns the members except the given ones
func (r *Room) MemberIDs(except ...string) []string {
	result := make([]string, 0, len(r.Members))
	for id := range r.Members {
		skip := false
		for _, e := range except {
			if id == e {
				skip = true
				break
			}
		}
		if !skip {
			result = append(result, id)
		}
	}
	return result
}

func (r *Room) Info() *RoomInfo {
	return &RoomInfo{Code: r.Code, Members: len(r.Members)}
}
