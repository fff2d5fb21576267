package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quiz-game/internal/game"
)

// WSHandler serves one game per websocket connection (one player tab).
type WSHandler struct {
	backend  game.Backend
	opts     []game.Option
	log      *zap.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler builds games against backend; opts apply to every game it creates.
func NewWSHandler(backend game.Backend, logger *zap.Logger, opts ...game.Option) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		backend: backend,
		opts:    opts,
		log:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	MaxRounds int `json:"maxRounds"`
}

type selectPayload struct {
	Answer string `json:"answer"`
}

type leaderboardPayload struct {
	Limit int `json:"limit"`
}

type tickPayload struct {
	Remaining int `json:"remaining"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// outbox queues messages for the connection writer without ever blocking the game.
type outbox struct {
	mu     sync.Mutex
	closed bool
	ch     chan outboundMessage[any]
}

func newOutbox(size int) *outbox {
	return &outbox{ch: make(chan outboundMessage[any], size)}
}

func (o *outbox) push(msg outboundMessage[any]) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	select {
	case o.ch <- msg:
		return
	default:
	}
	// full: drop the oldest queued message, a later state supersedes it
	select {
	case <-o.ch:
	default:
	}
	select {
	case o.ch <- msg:
	default:
	}
}

func (o *outbox) close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.closed {
		o.closed = true
		close(o.ch)
	}
}

func (o *outbox) fail(err error) {
	o.push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
}

// ServeWS upgrades the request and runs a game for userId until the socket closes.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws_upgrade_failed", zap.Error(err))
		return
	}
	defer conn.Close()

	logger := h.log.With(zap.String("user_id", userID))
	out := newOutbox(32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range out.ch {
			if err := conn.WriteJSON(msg); err != nil {
				logger.Debug("ws_write_failed", zap.Error(err))
				return
			}
		}
	}()

	opts := append(append([]game.Option(nil), h.opts...),
		game.WithLogger(logger),
		game.WithObserver(func(e game.Event) {
			if e.Kind == game.EventTick {
				out.push(outboundMessage[any]{Type: "tick", Payload: tickPayload{Remaining: e.View.Remaining}})
				return
			}
			out.push(outboundMessage[any]{Type: "state", Payload: e.View})
		}))
	g := game.New(h.backend, opts...)

	ctx, cancel := context.WithCancel(r.Context())
	defer func() {
		cancel()
		g.Close()
		out.close()
		<-writerDone
	}()

	logger.Info("ws_connected")
	if _, err := g.Resolve(ctx, userID); err != nil {
		out.fail(err)
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			logger.Info("ws_disconnected", zap.Error(err))
			return
		}
		if err := h.dispatch(ctx, g, userID, inbound, out); err != nil {
			out.fail(err)
		}
	}
}

func (h *WSHandler) dispatch(ctx context.Context, g *game.Game, userID string, in inboundMessage, out *outbox) error {
	var err error
	switch in.Type {
	case "resolve":
		_, err = g.Resolve(ctx, userID)
	case "start":
		var p startPayload
		if err := decode(in.Payload, &p); err != nil {
			return err
		}
		_, err = g.StartNewGame(ctx, userID, p.MaxRounds)
	case "select":
		var p selectPayload
		if err := decode(in.Payload, &p); err != nil {
			return err
		}
		_, err = g.Select(p.Answer)
	case "submit":
		_, err = g.Submit(ctx)
	case "advance":
		_, err = g.Advance(ctx)
	case "dashboard":
		_, err = g.BackToDashboard()
	case "pause":
		_, err = g.Pause(ctx)
	case "finish":
		_, err = g.Finish(ctx)
	case "results":
		summary, rerr := g.Results(ctx)
		if rerr != nil {
			return rerr
		}
		out.push(outboundMessage[any]{Type: "results", Payload: summary})
	case "stats":
		stats, serr := g.Stats(ctx)
		if serr != nil {
			return serr
		}
		out.push(outboundMessage[any]{Type: "stats", Payload: stats})
	case "leaderboard":
		var p leaderboardPayload
		if err := decode(in.Payload, &p); err != nil {
			return err
		}
		entries, lerr := g.Leaderboard(ctx, p.Limit)
		if lerr != nil {
			return lerr
		}
		out.push(outboundMessage[any]{Type: "leaderboard", Payload: entries})
	default:
		return errUnsupported
	}
	return err
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errInvalidPayload
	}
	return nil
}
