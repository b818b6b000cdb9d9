package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"ai-chat-backend/internal/domain"
	"ai-chat-backend/internal/domain/model"
	"ai-chat-backend/internal/infra/logging"
	"ai-chat-backend/internal/infra/metrics"
	"ai-chat-backend/internal/infra/redis"
	"ai-chat-backend/internal/infra/worker"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxFrameSize = 64 << 10
	sendBuffer   = 32
)

// Frame is the inbound wire format. Every frame is a JSON object
// discriminated by "type".
type Frame struct {
	Type      string `json:"type"`
	Message   string `json:"message,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Title     string `json:"title,omitempty"`
}

const (
	FrameUserMessage   = "user_message"
	FrameCreateSession = "create_session"
)

// Client is one authenticated WebSocket connection. Inbound frames are
// processed on the read loop so user messages within a session persist in
// submission order; generation runs on the worker pool.
type Client struct {
	userID string
	conn   *websocket.Conn
	srv    *Server

	mu      sync.Mutex
	session string
	closed  bool

	send chan model.Event
	quit chan struct{}
	once sync.Once
}

func newClient(userID string, conn *websocket.Conn, srv *Server) *Client {
	return &Client{
		userID: userID,
		conn:   conn,
		srv:    srv,
		send:   make(chan model.Event, sendBuffer),
		quit:   make(chan struct{}),
	}
}

func (c *Client) currentSession() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Client) setSession(id string) {
	c.mu.Lock()
	c.session = id
	c.mu.Unlock()
}

// enqueue offers an event to the write pump without blocking.
func (c *Client) enqueue(ev model.Event) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.mu.Unlock()
	select {
	case c.send <- ev:
		return true
	default:
		return false
	}
}

func (c *Client) shutdown() {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.quit)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.srv.registry.Unregister(c.userID, c)
		c.shutdown()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	log := logging.With(logging.WithUserID(ctx, c.userID), c.srv.log)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("read loop ended")
			}
			return
		}

		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			metrics.IncFrame("malformed")
			c.enqueue(model.NewErrorEvent("malformed frame"))
			continue
		}
		metrics.IncFrame(f.Type)
		c.handleFrame(ctx, log, f)
	}
}

func (c *Client) handleFrame(ctx context.Context, log *zerolog.Logger, f Frame) {
	switch f.Type {
	case FrameCreateSession:
		s, err := c.srv.sessions.Create(ctx, c.userID, f.Title)
		if err != nil {
			log.Error().Err(err).Msg("create session failed")
			c.enqueue(model.NewErrorEvent("could not create session"))
			return
		}
		c.setSession(s.ID)
		c.enqueue(model.NewSessionCreatedEvent(s))

	case FrameUserMessage:
		c.handleUserMessage(ctx, log, f)

	default:
		c.enqueue(model.NewErrorEvent("unknown frame type"))
	}
}

func (c *Client) handleUserMessage(ctx context.Context, log *zerolog.Logger, f Frame) {
	sessionID := f.SessionID
	if sessionID == "" {
		sessionID = c.currentSession()
	}
	if sessionID == "" {
		c.enqueue(model.NewErrorEvent("no session selected"))
		return
	}

	if c.srv.limiter != nil {
		ok, err := c.srv.limiter.Allow(ctx, redis.UserFrameKey(c.userID), c.srv.frameLimit, time.Minute)
		if err != nil {
			log.Warn().Err(err).Msg("rate limiter unavailable, allowing frame")
		} else if !ok {
			c.enqueue(model.NewErrorEvent("rate limit exceeded, slow down"))
			return
		}
	}

	// Persisting the user turn here, on the read loop, pins stored order
	// to submission order per session.
	if _, err := c.srv.pipeline.Accept(ctx, c.userID, sessionID, f.Message); err != nil {
		c.enqueue(model.NewErrorEvent(acceptErrorText(err)))
		return
	}

	// An explicit session_id that passed validation becomes the
	// connection's current session.
	if f.SessionID != "" {
		c.setSession(f.SessionID)
	}

	err := c.srv.pool.Submit(func(taskCtx context.Context) error {
		_, err := c.srv.pipeline.Respond(taskCtx, c.userID, sessionID)
		return err
	})
	if err != nil {
		if errors.Is(err, worker.ErrQueueFull) {
			c.enqueue(model.NewErrorEvent("server busy, please resend your message"))
			return
		}
		log.Error().Err(err).Msg("submit respond task failed")
		c.enqueue(model.NewErrorEvent("generation failed, please resend your message"))
	}
}

func acceptErrorText(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "session not found"
	case errors.Is(err, domain.ErrSessionInactive):
		return "session is no longer active"
	case errors.Is(err, domain.ErrInvalidArgument):
		return "message must not be empty"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "could not save message, please resend"
	default:
		return "could not process message"
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.shutdown()
	}()

	for {
		select {
		case <-c.quit:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case ev := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
