package websocket

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Inbound events
const (
	EventCreateRoom      = "create_room"
	EventJoinRoom        = "join_room"
	EventLeaveRoom       = "leave_room"
	EventWebRTCOffer     = "webrtc_offer"
	EventWebRTCAnswer    = "webrtc_answer"
	EventWebRTCCandidate = "webrtc_candidate"
)

// Outbound events
const (
	EventConnected    = "connected"
	EventRoomCreated  = "room_created"
	EventUserJoined   = "user_joined"
	EventNewPeer      = "new_peer"
	EventRoomNotFound = "room_not_found"
	EventUserLeft     = "user_left"
	EventError        = "error"
)

type (
	// Request is a client frame
	Request struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data,omitempty"`
	}

	// Response is a server frame
	Response struct {
		Event string      `json:"event"`
		Data  interface{} `json:"data"`
	}

	RoomPayload struct {
		RoomCode string `json:"room_code"`
	}

	// SignalPayload carries one of offer, answer or candidate, never inspected
	SignalPayload struct {
		RoomCode  string          `json:"room_code"`
		Offer     json.RawMessage `json:"offer,omitempty"`
		Answer    json.RawMessage `json:"answer,omitempty"`
		Candidate json.RawMessage `json:"candidate,omitempty"`
	}

	// signal fields as they are forwarded to the other members
	OfferMessage struct {
		Offer  json.RawMessage `json:"offer"`
		Sender string          `json:"sender"`
	}
	AnswerMessage struct {
		Answer json.RawMessage `json:"answer"`
		Sender string          `json:"sender"`
	}
	CandidateMessage struct {
		Candidate json.RawMessage `json:"candidate"`
		Sender    string          `json:"sender"`
	}

	PeerMessage struct {
		ID string `json:"id"`
	}

	UserLeftMessage struct {
		RoomCode string `json:"room_code"`
		ID       string `json:"id"`
	}

	ErrorMessage struct {
		Message string `json:"message"`
	}
)

// ParseRequest decodes and validates a client frame
func ParseRequest(b []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(b, &req); err != nil {
		return nil, fmt.Errorf("invalid request: %v", err)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}

func (m *Request) Validate() error {
	switch m.Event {
	case EventCreateRoom:
		return nil
	case EventJoinRoom, EventLeaveRoom:
		var p RoomPayload
		if err := m.decode(&p); err != nil {
			return err
		}
		if strings.TrimSpace(p.RoomCode) == "" {
			return fmt.Errorf("invalid '%s' request, param 'room_code' is required and must be string", m.Event)
		}
	case EventWebRTCOffer, EventWebRTCAnswer, EventWebRTCCandidate:
		var p SignalPayload
		if err := m.decode(&p); err != nil {
			return err
		}
		if strings.TrimSpace(p.RoomCode) == "" {
			return fmt.Errorf("invalid '%s' request, param 'room_code' is required and must be string", m.Event)
		}
		field := strings.TrimPrefix(m.Event, "webrtc_")
		if len(p.Signal(m.Event)) == 0 {
			return fmt.Errorf("invalid '%s' request, param '%s' is required", m.Event, field)
		}
	default:
		return fmt.Errorf("invalid request event: '%s'", m.Event)
	}
	return nil
}

func (m *Request) decode(v interface{}) error {
	if len(m.Data) == 0 {
		return fmt.Errorf("invalid '%s' request, data is required", m.Event)
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("invalid '%s' request: %v", m.Event, err)
	}
	return nil
}

// Payload decodes the request data into v
func (m *Request) Payload(v interface{}) error {
	return m.decode(v)
}

// Signal returns the opaque payload matching the signaling event
func (p *SignalPayload) Signal(event string) json.RawMessage {
	switch event {
	case EventWebRTCOffer:
		return p.Offer
	case EventWebRTCAnswer:
		return p.Answer
	case EventWebRTCCandidate:
		return p.Candidate
	}
	return nil
}

// Forward builds the frame relayed to the other members of the room
func (p *SignalPayload) Forward(event, sender string) interface{} {
	switch event {
	case EventWebRTCOffer:
		return &OfferMessage{Offer: p.Offer, Sender: sender}
	case EventWebRTCAnswer:
		return &AnswerMessage{Answer: p.Answer, Sender: sender}
	case EventWebRTCCandidate:
		return &CandidateMessage{Candidate: p.Candidate, Sender: sender}
	}
	return nil
}

// Encode marshals an outbound frame
func Encode(event string, data interface{}) ([]byte, error) {
	return json.Marshal(&Response{Event: event, Data: data})
}
