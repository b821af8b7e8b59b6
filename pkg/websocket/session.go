package websocket

import (
	"errors"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/labstack/gommon/log"
	"io"
	"io/ioutil"
	"net"
	"sync"
	"time"
)

// MaxMessageSize is enough for SDP offers with many candidates
const MaxMessageSize = 64 * 1024

var ErrMessageTooLarge = errors.New("message too large")

// Session is one live websocket connection.
// Frames are written by WritePump only, everything else goes through Send.
type Session struct {
	ID   string
	Conn net.Conn

	// guards writes on Conn, control replies come from the reading goroutine
	writeMu sync.Mutex

	roomMu   sync.Mutex
	roomCode string

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewSession(id string, conn net.Conn, buffer int) *Session {
	return &Session{
		ID:   id,
		Conn: conn,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) RoomCode() string {
	s.roomMu.Lock()
	defer s.roomMu.Unlock()
	return s.roomCode
}

func (s *Session) SetRoomCode(code string) {
	s.roomMu.Lock()
	s.roomCode = code
	s.roomMu.Unlock()
}

// Send queues msg without blocking. It returns false when the queue is full
// or the session is closed, the frame is dropped then.
func (s *Session) Send(msg []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- msg:
		return true
	default:
		return false
	}
}

// ReadMessage returns the next text message, answering pings and close frames on the way
func (s *Session) ReadMessage() ([]byte, error) {
	controlHandler := func(h ws.Header, r io.Reader) error {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
		return wsutil.ControlFrameHandler(s.Conn, ws.StateServerSide)(h, r)
	}

	rd := wsutil.Reader{
		Source:         s.Conn,
		State:          ws.StateServerSide,
		CheckUTF8:      true,
		OnIntermediate: controlHandler,
	}
	for {
		hdr, err := rd.NextFrame()
		if err != nil {
			return nil, err
		}
		if hdr.OpCode.IsControl() {
			if err = controlHandler(hdr, &rd); err != nil {
				return nil, err
			}
			continue
		}
		if hdr.OpCode&ws.OpText == 0 {
			if err = rd.Discard(); err != nil {
				return nil, err
			}
			continue
		}

		b, err := ioutil.ReadAll(io.LimitReader(&rd, MaxMessageSize+1))
		if err != nil {
			return nil, err
		}
		if len(b) > MaxMessageSize {
			return nil, ErrMessageTooLarge
		}
		return b, nil
	}
}

// WritePump drains the send queue and pings the peer until the session is closed
func (s *Session) WritePump(pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = s.Conn.Close()
	}()

	for {
		select {
		case <-s.done:
			return
		case msg := <-s.send:
			if err := s.write(ws.OpText, msg); err != nil {
				log.Warnf("session %s: %v", s.ID, err)
				return
			}
		case <-ticker.C:
			if err := s.write(ws.OpPing, []byte("ping")); err != nil {
				log.Warnf("session %s: %v", s.ID, err)
				return
			}
		}
	}
}

func (s *Session) write(op ws.OpCode, p []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return wsutil.WriteServerMessage(s.Conn, op, p)
}

// Close stops the write pump and closes the connection, safe to call more than once
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.Conn.Close()
	})
	return err
}
