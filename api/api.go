package api

import (
	"context"
	"github.com/gammazero/workerpool"
	"github.com/gobwas/ws"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"net/http"
	"signalroom.me/config"
	"signalroom.me/model"
	"signalroom.me/pkg/cors"
	"signalroom.me/pkg/msgbroker"
	"signalroom.me/pkg/utils"
	"signalroom.me/pkg/websocket"
	"signalroom.me/relay"
	"signalroom.me/storage"
	"strconv"
	"sync"
	"time"
)

type API struct {
	echo       *echo.Echo
	config     *config.Config
	registry   storage.Registry
	stats      storage.Stats
	relay      *relay.Relay
	workerPool *workerpool.WorkerPool

	// sessions counts websocket handlers still serving, closing refuses new ones
	sync.Mutex
	sessions sync.WaitGroup
	closing  bool
}

func New(c *config.Config, reg storage.Registry, s storage.Stats, mb msgbroker.MessageBroker) *API {
	wp := workerpool.New(c.MaxWorkers)
	api := &API{
		echo:       echo.New(),
		config:     c,
		registry:   reg,
		stats:      s,
		relay:      relay.New(reg, s, mb, wp, c.EventsChannel),
		workerPool: wp,
	}

	api.echo.HideBanner = true
	api.echo.Use(middleware.Recover())
	api.echo.Use(middleware.Logger())
	api.echo.Use(cors.Middleware(c.CorsOrigin))

	api.echo.GET("/health", api.ping)
	api.echo.GET("/room/:code", api.getRoom)
	api.echo.GET("/stats", api.getStats)
	api.echo.Any("/ws", api.websocket)
	if c.StaticDir != "" {
		// web client
		api.echo.Static("/", c.StaticDir)
	}

	return api
}

func (api *API) Start() error {
	return api.echo.Start(":" + strconv.Itoa(api.config.HttpPort))
}

// Close stops accepting requests, closes live sessions and waits for queued side effects
func (api *API) Close(ctx context.Context) error {
	api.Lock()
	api.closing = true
	api.Unlock()

	err := api.echo.Shutdown(ctx)
	// hijacked connections are not tracked by the http server
	api.relay.CloseAll()

	done := make(chan struct{})
	go func() {
		api.sessions.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		// sessions may still submit work, the pool is left running
		return ctx.Err()
	}

	api.workerPool.StopWait()
	return err
}

// Ping handler
func (api *API) ping(c echo.Context) error {
	_, err := api.stats.IncrVisits()
	if err != nil {
		log.Error(err)
	}
	return c.String(http.StatusOK, "OK")
}

// Returns the live room by code
func (api *API) getRoom(c echo.Context) error {
	code := c.Param("code")
	if !utils.IsCodeValid(code, storage.CodeLength) {
		return echo.NewHTTPError(http.StatusNotFound, "room not found")
	}
	room, ok := api.registry.GetRoom(code)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "room not found")
	}
	return c.JSON(http.StatusOK, room)
}

// Returns daily counters, date is dd.mm.yy and defaults to today
func (api *API) getStats(c echo.Context) error {
	date := time.Now()
	if d := c.QueryParam("date"); d != "" {
		parsed, err := storage.ParseDate(d)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "date must be dd.mm.yy")
		}
		date = parsed
	}

	visits, err := api.stats.GetVisitsByDate(date)
	if err != nil {
		log.Error(err)
		return echo.NewHTTPError(http.StatusInternalServerError)
	}
	created, err := api.stats.GetRoomsCreatedByDate(date)
	if err != nil {
		log.Error(err)
		return echo.NewHTTPError(http.StatusInternalServerError)
	}

	return c.JSON(http.StatusOK, &model.Stats{
		Date:         storage.FormatDate(date),
		Visits:       visits,
		RoomsCreated: created,
		LiveRooms:    api.registry.RoomsCount(),
		Peers:        api.relay.Peers(),
	})
}

// Endpoint to establish websocket connection
func (api *API) websocket(c echo.Context) error {
	api.Lock()
	if api.closing {
		api.Unlock()
		return echo.NewHTTPError(http.StatusServiceUnavailable)
	}
	api.sessions.Add(1)
	api.Unlock()
	defer api.sessions.Done()

	conn, _, _, err := ws.UpgradeHTTP(c.Request(), c.Response())
	if err != nil {
		// the upgrader has already answered the request
		log.Warn(err)
		return nil
	}

	session := websocket.NewSession(uuid.New().String(), conn, api.config.SendBuffer)
	api.serveSession(session)
	return nil
}

// Serves session websocket connection until it is closed
func (api *API) serveSession(s *websocket.Session) {
	api.relay.Connect(s)
	go s.WritePump(api.config.PingInterval)

	defer func() {
		api.relay.Disconnect(s)
		_ = s.Close()
		log.Infof("session %s disconnected", s.ID)
	}()

	for {
		b, err := s.ReadMessage()
		if err != nil {
			if err == websocket.ErrMessageTooLarge {
				log.Warnf("session %s: %v", s.ID, err)
			}
			break
		}

		req, err := websocket.ParseRequest(b)
		if err != nil {
			api.relay.Reject(s, err)
			continue
		}
		api.relay.Handle(s, req)
	}
}
