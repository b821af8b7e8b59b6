package relay

import "sync"

// Peer is the relay's view of a connection session
type Peer interface {
	GetID() string
	// Send queues a frame, false means the frame was dropped
	Send(msg []byte) bool
	RoomCode() string
	SetRoomCode(code string)
	Close() error
}

// Peers is the directory of live connections by identifier
type Peers struct {
	sync.RWMutex
	storage map[string]Peer
}

func NewPeers() *Peers {
	return &Peers{
		storage: make(map[string]Peer),
	}
}

func (h *Peers) Add(p Peer) {
	h.Lock()
	h.storage[p.GetID()] = p
	h.Unlock()
}

// Remove reports whether p was registered, it is true once per peer
func (h *Peers) Remove(p Peer) bool {
	h.Lock()
	defer h.Unlock()
	current, exists := h.storage[p.GetID()]
	if !exists || current != p {
		return false
	}
	delete(h.storage, p.GetID())
	return true
}

func (h *Peers) Get(ids ...string) []Peer {
	result := make([]Peer, 0, len(ids))
	h.RLock()
	for _, id := range ids {
		if p, exists := h.storage[id]; exists {
			result = append(result, p)
		}
	}
	h.RUnlock()
	return result
}

func (h *Peers) All() []Peer {
	h.RLock()
	defer h.RUnlock()
	result := make([]Peer, 0, len(h.storage))
	for _, p := range h.storage {
		result = append(result, p)
	}
	return result
}

func (h *Peers) Count() int {
	h.RLock()
	defer h.RUnlock()
	return len(h.storage)
}
