package relay

import (
	"github.com/gammazero/workerpool"
	"github.com/labstack/gommon/log"
	"signalroom.me/pkg/msgbroker"
	"signalroom.me/pkg/websocket"
	"signalroom.me/storage"
)

// handlerFunc processes one inbound event of a peer
type handlerFunc func(r *Relay, p Peer, req *websocket.Request)

var handlers = map[string]handlerFunc{
	websocket.EventCreateRoom:      (*Relay).createRoom,
	websocket.EventJoinRoom:        (*Relay).joinRoom,
	websocket.EventLeaveRoom:       (*Relay).leaveRoom,
	websocket.EventWebRTCOffer:     (*Relay).forwardSignal,
	websocket.EventWebRTCAnswer:    (*Relay).forwardSignal,
	websocket.EventWebRTCCandidate: (*Relay).forwardSignal,
}

const maxCreateAttempts = 3

// Relay routes signaling events between the members of a room
type Relay struct {
	registry      storage.Registry
	peers         *Peers
	stats         storage.Stats
	msgBroker     msgbroker.MessageBroker
	workerPool    *workerpool.WorkerPool
	eventsChannel string
}

func New(reg storage.Registry, stats storage.Stats, mb msgbroker.MessageBroker, wp *workerpool.WorkerPool, eventsChannel string) *Relay {
	return &Relay{
		registry:      reg,
		peers:         NewPeers(),
		stats:         stats,
		msgBroker:     mb,
		workerPool:    wp,
		eventsChannel: eventsChannel,
	}
}

// Connect registers a new peer and tells it its identifier
func (r *Relay) Connect(p Peer) {
	r.peers.Add(p)
	r.reply(p, websocket.EventConnected, &websocket.PeerMessage{ID: p.GetID()})
	log.Debugf("peer %s connected", p.GetID())
}

// Disconnect removes the peer from its room as an implicit leave.
// Only the first call for a peer has an effect.
func (r *Relay) Disconnect(p Peer) {
	if !r.peers.Remove(p) {
		return
	}
	if code := p.RoomCode(); code != "" {
		r.leave(p, code)
	}
	log.Debugf("peer %s disconnected", p.GetID())
}

// Handle dispatches a validated request
func (r *Relay) Handle(p Peer, req *websocket.Request) {
	handler, exists := handlers[req.Event]
	if !exists {
		r.replyError(p, "unknown event: "+req.Event)
		return
	}
	handler(r, p, req)
}

// Peers returns the number of connected peers
func (r *Relay) Peers() int {
	return r.peers.Count()
}

// CloseAll closes every connected peer, their disconnects follow from the transport
func (r *Relay) CloseAll() {
	for _, p := range r.peers.All() {
		if err := p.Close(); err != nil {
			log.Warnf("peer %s: %v", p.GetID(), err)
		}
	}
}

func (r *Relay) createRoom(p Peer, _ *websocket.Request) {
	if current := p.RoomCode(); current != "" {
		r.leave(p, current)
	}

	code, ok := r.openRoom(p)
	if !ok {
		r.replyError(p, "unable to create a room")
		return
	}
	p.SetRoomCode(code)
	log.Infof("room %s created by %s", code, p.GetID())

	r.reply(p, websocket.EventRoomCreated, &websocket.RoomPayload{RoomCode: code})
	r.publish(msgbroker.RoomCreated, code)
	r.workerPool.Submit(func() {
		if _, err := r.stats.IncrRoomsCreated(); err != nil {
			log.Error(err)
		}
	})
}

// openRoom creates a room with p as its first member. A room removed
// before p could be added is replaced by a new one.
func (r *Relay) openRoom(p Peer) (string, bool) {
	for i := 0; i < maxCreateAttempts; i++ {
		code := r.registry.CreateRoom()
		if _, ok := r.registry.AddMember(code, p.GetID()); ok {
			return code, true
		}
		log.Warnf("room %s removed before %s joined it", code, p.GetID())
	}
	return "", false
}

func (r *Relay) joinRoom(p Peer, req *websocket.Request) {
	var payload websocket.RoomPayload
	if err := req.Payload(&payload); err != nil {
		r.replyError(p, err.Error())
		return
	}
	code := payload.RoomCode

	if p.RoomCode() == code {
		r.reply(p, websocket.EventUserJoined, &payload)
		return
	}

	if !r.registry.RoomExists(code) {
		log.Debugf("peer %s: room %s not found", p.GetID(), code)
		r.reply(p, websocket.EventRoomNotFound, &websocket.ErrorMessage{Message: "Room does not exist"})
		return
	}

	if current := p.RoomCode(); current != "" {
		r.leave(p, current)
	}

	others, ok := r.registry.AddMember(code, p.GetID())
	if !ok {
		// closed between the lookup and the join
		r.reply(p, websocket.EventRoomNotFound, &websocket.ErrorMessage{Message: "Room does not exist"})
		return
	}
	p.SetRoomCode(code)
	log.Infof("peer %s joined room %s", p.GetID(), code)

	r.reply(p, websocket.EventUserJoined, &payload)
	r.broadcast(others, websocket.EventNewPeer, &websocket.PeerMessage{ID: p.GetID()})
}

func (r *Relay) leaveRoom(p Peer, req *websocket.Request) {
	var payload websocket.RoomPayload
	if err := req.Payload(&payload); err != nil {
		r.replyError(p, err.Error())
		return
	}
	r.leave(p, payload.RoomCode)
}

// leave removes p from the room, the last one out closes it
func (r *Relay) leave(p Peer, code string) {
	remaining, removed, closed := r.registry.RemoveMember(code, p.GetID())
	if p.RoomCode() == code {
		p.SetRoomCode("")
	}
	if !removed {
		return
	}
	if closed {
		log.Infof("room %s closed, last member %s left", code, p.GetID())
		r.publish(msgbroker.RoomClosed, code)
		return
	}
	r.broadcast(remaining, websocket.EventUserLeft, &websocket.UserLeftMessage{RoomCode: code, ID: p.GetID()})
}

func (r *Relay) forwardSignal(p Peer, req *websocket.Request) {
	var payload websocket.SignalPayload
	if err := req.Payload(&payload); err != nil {
		r.replyError(p, err.Error())
		return
	}

	// a missing room means a leave raced this message, nobody to forward to
	members, _ := r.registry.Members(payload.RoomCode)
	recipients := make([]string, 0, len(members))
	for _, id := range members {
		if id != p.GetID() {
			recipients = append(recipients, id)
		}
	}
	r.broadcast(recipients, req.Event, payload.Forward(req.Event, p.GetID()))
}

func (r *Relay) reply(p Peer, event string, data interface{}) {
	b, err := websocket.Encode(event, data)
	if err != nil {
		log.Error(err)
		return
	}
	if !p.Send(b) {
		log.Warnf("peer %s: %s dropped", p.GetID(), event)
	}
}

func (r *Relay) replyError(p Peer, message string) {
	log.Warnf("peer %s: %s", p.GetID(), message)
	r.reply(p, websocket.EventError, &websocket.ErrorMessage{Message: message})
}

// broadcast encodes once and queues the frame for every recipient independently
func (r *Relay) broadcast(ids []string, event string, data interface{}) {
	if len(ids) == 0 {
		return
	}
	b, err := websocket.Encode(event, data)
	if err != nil {
		log.Error(err)
		return
	}
	for _, recipient := range r.peers.Get(ids...) {
		if !recipient.Send(b) {
			log.Warnf("peer %s: %s dropped", recipient.GetID(), event)
		}
	}
}

func (r *Relay) publish(event, code string) {
	msg := msgbroker.NewRoomEvent(event, code)
	r.workerPool.Submit(func() {
		if err := r.msgBroker.Publish(msg, r.eventsChannel); err != nil {
			log.Error(err)
		}
	})
}

// Reject answers a malformed request with an error event
func (r *Relay) Reject(p Peer, err error) {
	r.replyError(p, err.Error())
}
