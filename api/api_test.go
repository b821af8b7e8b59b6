package api

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"io/ioutil"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"signalroom.me/config"
	"signalroom.me/model"
	"signalroom.me/pkg/msgbroker"
	"signalroom.me/storage"
	"strings"
	"testing"
	"time"
)

func newTestConfig() *config.Config {
	return &config.Config{
		MaxWorkers:    2,
		EventsChannel: "test:rooms",
		PingInterval:  time.Hour,
		SendBuffer:    16,
		CorsOrigin:    "*",
	}
}

func newTestAPI() *API {
	return New(newTestConfig(), storage.NewRegistry(), storage.NewMemoryStats(), msgbroker.NewNopBroker())
}

func serve(a *API, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.echo.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestPing(t *testing.T) {
	a := newTestAPI()
	rec := serve(a, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	n, err := a.stats.GetVisitsByDate(time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestGetRoom(t *testing.T) {
	a := newTestAPI()
	code := a.registry.CreateRoom()
	a.registry.AddMember(code, "A")

	rec := serve(a, http.MethodGet, "/room/"+code)
	assert.Equal(t, http.StatusOK, rec.Code)
	var room model.RoomInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &room))
	assert.Equal(t, code, room.Code)
	assert.Equal(t, 1, room.Members)

	rec = serve(a, http.MethodGet, "/room/nope12")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(a, http.MethodGet, "/room/not-a-code")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStaticClient(t *testing.T) {
	dir, err := ioutil.TempDir("", "signalroom")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>rooms</h1>"), 0644))

	c := newTestConfig()
	c.StaticDir = dir
	a := New(c, storage.NewRegistry(), storage.NewMemoryStats(), msgbroker.NewNopBroker())

	rec := serve(a, http.MethodGet, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>rooms</h1>")

	rec = serve(a, http.MethodGet, "/health")
	assert.Equal(t, "OK", rec.Body.String())
}

func TestGetStats(t *testing.T) {
	a := newTestAPI()
	a.registry.CreateRoom()
	serve(a, http.MethodGet, "/health")

	rec := serve(a, http.MethodGet, "/stats")
	assert.Equal(t, http.StatusOK, rec.Code)
	var stats model.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, storage.FormatDate(time.Now()), stats.Date)
	assert.Equal(t, int64(1), stats.Visits)
	assert.Equal(t, 1, stats.LiveRooms)
	assert.Equal(t, 0, stats.Peers)

	rec = serve(a, http.MethodGet, "/stats?date=01.01.99")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(0), stats.Visits)

	rec = serve(a, http.MethodGet, "/stats?date=yesterday")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// bufConn reads through the handshake reader, it may hold the first frames
type bufConn struct {
	net.Conn
	r io.Reader
}

func (c bufConn) Read(p []byte) (int, error) {
	return c.r.Read(p)
}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func dial(t *testing.T, srv *httptest.Server) net.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, br, _, err := ws.Dial(context.Background(), url)
	require.NoError(t, err)
	if br != nil {
		return bufConn{Conn: conn, r: br}
	}
	return conn
}

func send(t *testing.T, conn net.Conn, msg string) {
	require.NoError(t, wsutil.WriteClientText(conn, []byte(msg)))
}

// expect reads frames until one of the given event arrives
func expect(t *testing.T, conn net.Conn, event string) frame {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		b, err := wsutil.ReadServerText(conn)
		require.NoError(t, err, "waiting for %s", event)
		var f frame
		require.NoError(t, json.Unmarshal(b, &f))
		if f.Event == event {
			return f
		}
	}
}

func TestWebsocketSignaling(t *testing.T) {
	a := newTestAPI()
	srv := httptest.NewServer(a.echo)
	defer srv.Close()

	alice := dial(t, srv)
	defer alice.Close()
	bob := dial(t, srv)

	expect(t, alice, "connected")
	var bobID struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(expect(t, bob, "connected").Data, &bobID))
	require.NotEmpty(t, bobID.ID)

	send(t, alice, `{"event":"create_room","data":{}}`)
	var created struct {
		RoomCode string `json:"room_code"`
	}
	require.NoError(t, json.Unmarshal(expect(t, alice, "room_created").Data, &created))
	require.Len(t, created.RoomCode, storage.CodeLength)

	send(t, bob, `{"event":"join_room","data":{"room_code":"nope12"}}`)
	expect(t, bob, "room_not_found")

	send(t, bob, fmt.Sprintf(`{"event":"join_room","data":{"room_code":%q}}`, created.RoomCode))
	expect(t, bob, "user_joined")
	assert.JSONEq(t, fmt.Sprintf(`{"id":%q}`, bobID.ID), string(expect(t, alice, "new_peer").Data))

	send(t, bob, fmt.Sprintf(`{"event":"webrtc_offer","data":{"room_code":%q,"offer":{"sdp":"X"}}}`, created.RoomCode))
	assert.JSONEq(t, fmt.Sprintf(`{"offer":{"sdp":"X"},"sender":%q}`, bobID.ID), string(expect(t, alice, "webrtc_offer").Data))

	send(t, bob, `{"event":"join_room"}`)
	expect(t, bob, "error")

	require.NoError(t, bob.Close())
	left := expect(t, alice, "user_left")
	assert.JSONEq(t, fmt.Sprintf(`{"room_code":%q,"id":%q}`, created.RoomCode, bobID.ID), string(left.Data))

	info, ok := a.registry.GetRoom(created.RoomCode)
	require.True(t, ok)
	assert.Equal(t, 1, info.Members)

	send(t, alice, fmt.Sprintf(`{"event":"leave_room","data":{"room_code":%q}}`, created.RoomCode))
	assert.Eventually(t, func() bool {
		return !a.registry.RoomExists(created.RoomCode)
	}, 5*time.Second, 10*time.Millisecond)
}

func TestCloseEndsSessions(t *testing.T) {
	a := newTestAPI()
	srv := httptest.NewServer(a.echo)
	defer srv.Close()

	alice := dial(t, srv)
	defer alice.Close()
	expect(t, alice, "connected")
	send(t, alice, `{"event":"create_room"}`)
	expect(t, alice, "room_created")
	require.Equal(t, 1, a.registry.RoomsCount())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Close(ctx))

	assert.Equal(t, 0, a.registry.RoomsCount())
	assert.Equal(t, 0, a.relay.Peers())

	require.NoError(t, alice.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, err := wsutil.ReadServerText(alice)
	assert.Error(t, err)
}
