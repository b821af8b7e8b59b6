package msgbroker

import (
	"encoding/json"
	"time"
)

// MessageBroker used for publishing room lifecycle events to external listeners
type MessageBroker interface {
	// Publish sends msg to channel
	Publish(msg []byte, channel string) error
	// Close releases the broker resources
	Close() error
}

const (
	RoomCreated = "room_created"
	RoomClosed  = "room_closed"
)

// RoomEvent is the representation of a published lifecycle event
type RoomEvent struct {
	Event    string    `json:"event"`
	RoomCode string    `json:"room_code"`
	At       time.Time `json:"at"`
}

func NewRoomEvent(event, code string) []byte {
	b, _ := json.Marshal(&RoomEvent{Event: event, RoomCode: code, At: time.Now().UTC()})
	return b
}

type nopBroker struct{}

// NewNopBroker returns a MessageBroker that discards everything, used without redis
func NewNopBroker() MessageBroker {
	return nopBroker{}
}

func (nopBroker) Publish([]byte, string) error { return nil }

func (nopBroker) Close() error { return nil }
