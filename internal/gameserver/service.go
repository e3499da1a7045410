// Package gameserver hosts the authoritative tick server: the websocket
// acceptor, per-session pumps, the message dispatcher, and the broadcast
// clock. All world mutations funnel through the world.Store, which serializes
// them into one total order.
package gameserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/gridlands/gridlands/internal/config"
	"github.com/gridlands/gridlands/internal/game/rules"
	"github.com/gridlands/gridlands/internal/game/session"
	"github.com/gridlands/gridlands/internal/game/world"
	"github.com/gridlands/gridlands/internal/protocol"
)

const (
	// maxMessageSize bounds inbound frames; the largest legal envelope is
	// a CHAT with 100 runes of content.
	maxMessageSize = 4096
	// maxNameLength caps display names supplied at join time.
	maxNameLength = 20
	// shutdownTimeout bounds the HTTP server drain on Stop.
	shutdownTimeout = 5 * time.Second
)

// GameService accepts websocket connections and runs each session's read
// and write pumps. It implements server.Service.
type GameService struct {
	cfg        config.ServerConfig
	store      *world.Store
	sessions   *session.Registry
	dispatcher *Dispatcher
	caster     *Broadcaster
	logger     *zap.Logger
	upgrader   websocket.Upgrader

	httpServer *http.Server
	mu         sync.Mutex
	conns      map[string]*websocket.Conn
	wg         sync.WaitGroup
}

// NewGameService creates the websocket service.
//
// Precondition: all dependencies must be non-nil.
func NewGameService(
	cfg config.ServerConfig,
	store *world.Store,
	sessions *session.Registry,
	dispatcher *Dispatcher,
	caster *Broadcaster,
	logger *zap.Logger,
) *GameService {
	return &GameService{
		cfg:        cfg,
		store:      store,
		sessions:   sessions,
		dispatcher: dispatcher,
		caster:     caster,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns: make(map[string]*websocket.Conn),
	}
}

// Handler returns the HTTP handler exposing the websocket endpoint at /ws.
func (s *GameService) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// Start runs the HTTP listener. Blocks until Stop is called.
func (s *GameService) Start() error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Addr:    s.cfg.Addr(),
		Handler: s.Handler(),
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.Info("game server listening", zap.String("addr", s.cfg.Addr()))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serving on %s: %w", s.cfg.Addr(), err)
	}
	return nil
}

// Stop drains the HTTP server, closes every live connection, and waits for
// all session pumps to exit.
//
// Postcondition: No session goroutines remain.
func (s *GameService) Stop() {
	s.mu.Lock()
	srv := s.httpServer
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for _, conn := range s.conns {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	for _, conn := range conns {
		_ = conn.Close()
	}
	s.wg.Wait()
	s.logger.Info("game server stopped")
}

// handleWS upgrades the connection, mints a fresh identity, seeds the world
// store, and runs the session until the connection closes.
func (s *GameService) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	// Identity is minted per connection and never reused; reconnection is
	// an entirely new join.
	id := uuid.NewString()
	name := rules.SanitizeName(r.URL.Query().Get("name"), maxNameLength)
	if name == "" {
		name = "Player-" + id[:8]
	}

	sess := &session.Session{
		ID:     id,
		Name:   name,
		Outbox: session.NewOutbox(id, s.cfg.SessionBuffer),
	}

	// The INIT snapshot is taken before the new player is inserted, so a
	// joining client sees the world without itself; its own record arrives
	// with the first STATE_UPDATE.
	snap := s.store.Snapshot()
	player := world.NewPlayer(id, name)
	s.store.UpsertPlayer(player)

	initFrame, err := protocol.EncodeInit(id, snap)
	if err != nil {
		s.logger.Error("encoding init", zap.String("player_id", id), zap.Error(err))
		s.store.RemovePlayer(id)
		_ = conn.Close()
		return
	}
	// Queued before the session is visible to broadcasts, so INIT is always
	// the first frame the peer receives.
	_ = sess.Outbox.Push(initFrame)

	if err := s.sessions.Add(sess); err != nil {
		s.logger.Error("registering session", zap.String("player_id", id), zap.Error(err))
		s.store.RemovePlayer(id)
		_ = conn.Close()
		return
	}

	s.mu.Lock()
	s.conns[id] = conn
	s.mu.Unlock()

	if joinedFrame, err := protocol.EncodePlayerJoined(player); err == nil {
		s.caster.BroadcastExcept(joinedFrame, id)
	}

	s.logger.Info("player connected",
		zap.String("player_id", id),
		zap.String("name", name),
		zap.String("remote_addr", r.RemoteAddr),
		zap.Int("players", s.sessions.Count()),
	)

	// disconnect runs exactly once per connection no matter how the pumps
	// exit, and broadcasts exactly one PLAYER_LEFT.
	var once sync.Once
	disconnect := func() {
		once.Do(func() {
			removed := s.sessions.Remove(id)
			s.store.RemovePlayer(id)
			s.mu.Lock()
			delete(s.conns, id)
			s.mu.Unlock()
			_ = conn.Close()

			if removed {
				if frame, err := protocol.EncodePlayerLeft(id); err == nil {
					s.caster.Broadcast(frame)
				}
				s.logger.Info("player disconnected",
					zap.String("player_id", id),
					zap.Int("players", s.sessions.Count()),
				)
			}
		})
	}

	s.wg.Add(2)
	go s.writePump(conn, sess, disconnect)
	s.readPump(conn, sess, disconnect)
}

// readPump reads frames until the connection fails and hands each one to the
// dispatcher. Runs on the handler goroutine.
func (s *GameService) readPump(conn *websocket.Conn, sess *session.Session, disconnect func()) {
	defer s.wg.Done()
	defer disconnect()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	})

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("read failed", zap.String("player_id", sess.ID), zap.Error(err))
			}
			return
		}
		if err := s.dispatcher.Dispatch(sess, frame); err != nil {
			s.logger.Debug("dispatch rejected",
				zap.String("player_id", sess.ID),
				zap.Error(err),
			)
		}
	}
}

// writePump drains the session outbox to the connection and keeps the peer
// alive with pings. Exits when the outbox closes or a write fails.
func (s *GameService) writePump(conn *websocket.Conn, sess *session.Session, disconnect func()) {
	defer s.wg.Done()
	defer disconnect()

	pingPeriod := s.cfg.ReadTimeout * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-sess.Outbox.Frames():
			_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.logger.Debug("write failed", zap.String("player_id", sess.ID), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
