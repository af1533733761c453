package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jwalitptl/jobboard-messaging/internal/model"
	"github.com/jwalitptl/jobboard-messaging/pkg/logger"
	"github.com/jwalitptl/jobboard-messaging/pkg/metrics"
)

// NotificationSource seeds a new session's inbox.
type NotificationSource interface {
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	List(ctx context.Context, userID uuid.UUID, role model.Role, filter model.NotificationFilter) ([]*model.Notification, error)
}

// ConversationSource loads the history of a conversation the caller takes part in.
type ConversationSource interface {
	FetchMessages(ctx context.Context, actorID, conversationID uuid.UUID) ([]*model.MessageWithSender, error)
}

type GatewayConfig struct {
	AllowedOrigins []string
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	SendBuffer     int
	SeedLimit      int
}

func (c *GatewayConfig) setDefaults() {
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.PingPeriod <= 0 || c.PingPeriod >= c.PongWait {
		c.PingPeriod = c.PongWait * 9 / 10
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 64
	}
	if c.SeedLimit <= 0 {
		c.SeedLimit = model.DefaultPageSize
	}
}

// Frame types sent to the browser.
const (
	FrameSnapshot            = "snapshot"
	FrameNotification        = "notification"
	FrameNotificationUpdated = "notification_updated"
	FrameConversationOpened  = "conversation_opened"
	FrameMessage             = "message"
	FrameError               = "error"
	FramePong                = "pong"
)

// Frame is one server-to-browser websocket message.
type Frame struct {
	Type           string                `json:"type"`
	UnreadCount    int                   `json:"unread_count"`
	Notification   *model.Notification   `json:"notification,omitempty"`
	Notifications  []*model.Notification `json:"notifications,omitempty"`
	Alert          *Alert                `json:"alert,omitempty"`
	ConversationID *uuid.UUID            `json:"conversation_id,omitempty"`
	Message        *model.Message        `json:"message,omitempty"`
	Messages       []model.Message       `json:"messages,omitempty"`
	Error          string                `json:"error,omitempty"`
}

// Browser-to-server actions.
const (
	ActionOpenConversation  = "open_conversation"
	ActionCloseConversation = "close_conversation"
	ActionPing              = "ping"
)

type Command struct {
	Action         string    `json:"action"`
	ConversationID uuid.UUID `json:"conversation_id"`
}

// Gateway upgrades browser connections and streams change events to them.
// Every connection is an independent session with its own Inbox.
type Gateway struct {
	feed          *Feed
	notifications NotificationSource
	conversations ConversationSource
	upgrader      websocket.Upgrader
	cfg           GatewayConfig
	metrics       *metrics.Metrics
	log           *logger.Logger
}

func NewGateway(feed *Feed, notifications NotificationSource, conversations ConversationSource, cfg GatewayConfig, m *metrics.Metrics, log *logger.Logger) *Gateway {
	cfg.setDefaults()
	if log == nil {
		log = logger.Nop()
	}
	g := &Gateway{
		feed:          feed,
		notifications: notifications,
		conversations: conversations,
		cfg:           cfg,
		metrics:       m,
		log:           log,
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     g.checkOrigin,
	}
	return g
}

func (g *Gateway) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(g.cfg.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range g.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// Serve upgrades the request and runs the session until the browser
// disconnects or the request context ends.
func (g *Gateway) Serve(w http.ResponseWriter, r *http.Request, sess model.Session) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("websocket upgrade failed", "user_id", sess.UserID.String(), "error", err.Error())
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	s := &session{
		gw:       g,
		conn:     conn,
		user:     sess,
		send:     make(chan Frame, g.cfg.SendBuffer),
		commands: make(chan Command, 8),
		log:      g.log.WithFields(map[string]interface{}{"user_id": sess.UserID.String()}),
	}

	if g.metrics != nil {
		g.metrics.RealtimeConnections.Inc()
		defer g.metrics.RealtimeConnections.Dec()
	}

	go s.writePump(ctx, cancel)
	go s.readPump(ctx, cancel)

	if err := s.run(ctx); err != nil {
		s.log.Error(err, "realtime session ended")
	}
}

type session struct {
	gw       *Gateway
	conn     *websocket.Conn
	user     model.Session
	send     chan Frame
	commands chan Command
	log      *logger.Logger

	inbox      *Inbox
	chat       *ChatLog
	chatEvents <-chan ChangeEvent
	chatCancel context.CancelFunc
}

func (s *session) run(ctx context.Context) error {
	defer s.closeConversation()

	unread, err := s.gw.notifications.UnreadCount(ctx, s.user.UserID)
	if err != nil {
		return err
	}
	recent, err := s.gw.notifications.List(ctx, s.user.UserID, s.user.Role, model.NotificationFilter{
		Pagination: model.Pagination{Limit: s.gw.cfg.SeedLimit},
	})
	if err != nil {
		return err
	}
	s.inbox = NewInbox(s.user.Role, unread, recent)

	events, err := s.gw.feed.Subscribe(ctx, UserNotifications(s.user.UserID))
	if err != nil {
		return err
	}

	s.emit(ctx, Frame{Type: FrameSnapshot, UnreadCount: s.inbox.Unread(), Notifications: s.inbox.Recent()})

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			s.observe(ev)
			n, alert := s.inbox.Apply(ev)
			if n == nil {
				continue
			}
			frame := Frame{Type: FrameNotificationUpdated, UnreadCount: s.inbox.Unread(), Notification: n}
			if alert != nil {
				frame.Type = FrameNotification
				frame.Alert = alert
			}
			s.emit(ctx, frame)
		case ev, ok := <-s.chatEvents:
			if !ok {
				s.chatEvents = nil
				continue
			}
			s.observe(ev)
			if s.chat == nil {
				continue
			}
			if m := s.chat.Apply(ev); m != nil {
				id := s.chat.ConversationID()
				s.emit(ctx, Frame{Type: FrameMessage, UnreadCount: s.inbox.Unread(), ConversationID: &id, Message: m})
			}
		case cmd, ok := <-s.commands:
			if !ok {
				return nil
			}
			s.handle(ctx, cmd)
		}
	}
}

func (s *session) handle(ctx context.Context, cmd Command) {
	switch cmd.Action {
	case ActionOpenConversation:
		s.openConversation(ctx, cmd.ConversationID)
	case ActionCloseConversation:
		s.closeConversation()
	case ActionPing:
		s.emit(ctx, Frame{Type: FramePong, UnreadCount: s.inbox.Unread()})
	default:
		s.emit(ctx, Frame{Type: FrameError, UnreadCount: s.inbox.Unread(), Error: "unknown action"})
	}
}

// openConversation subscribes before loading history so that a message
// committed in between is still delivered; the chat log drops the overlap.
func (s *session) openConversation(ctx context.Context, conversationID uuid.UUID) {
	s.closeConversation()

	chatCtx, cancel := context.WithCancel(ctx)
	events, err := s.gw.feed.Subscribe(chatCtx, ConversationMessages(conversationID))
	if err != nil {
		cancel()
		s.log.Error(err, "failed to subscribe to conversation", "conversation_id", conversationID.String())
		s.emit(ctx, Frame{Type: FrameError, UnreadCount: s.inbox.Unread(), Error: "failed to open conversation"})
		return
	}

	history, err := s.gw.conversations.FetchMessages(ctx, s.user.UserID, conversationID)
	if err != nil {
		cancel()
		s.emit(ctx, Frame{Type: FrameError, UnreadCount: s.inbox.Unread(), Error: "conversation not found"})
		return
	}

	messages := make([]model.Message, 0, len(history))
	for _, m := range history {
		messages = append(messages, m.Message)
	}
	s.chat = NewChatLog(conversationID, messages)
	s.chatEvents = events
	s.chatCancel = cancel

	s.emit(ctx, Frame{
		Type:           FrameConversationOpened,
		UnreadCount:    s.inbox.Unread(),
		ConversationID: &conversationID,
		Messages:       s.chat.Messages(),
	})
}

func (s *session) closeConversation() {
	if s.chatCancel != nil {
		s.chatCancel()
	}
	s.chat = nil
	s.chatEvents = nil
	s.chatCancel = nil
}

func (s *session) observe(ev ChangeEvent) {
	if s.gw.metrics != nil {
		s.gw.metrics.RealtimeEvents.WithLabelValues(ev.Table, string(ev.Type)).Inc()
	}
}

func (s *session) emit(ctx context.Context, f Frame) {
	select {
	case s.send <- f:
	case <-ctx.Done():
	}
}

func (s *session) readPump(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()
	s.conn.SetReadLimit(4096)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.gw.cfg.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.gw.cfg.PongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("websocket read failed", "error", err.Error())
			}
			return
		}
		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			continue
		}
		select {
		case s.commands <- cmd:
		case <-ctx.Done():
			return
		}
	}
}

func (s *session) writePump(ctx context.Context, cancel context.CancelFunc) {
	ticker := time.NewTicker(s.gw.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		cancel()
		s.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.gw.cfg.WriteWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case f := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.gw.cfg.WriteWait))
			if err := s.conn.WriteJSON(f); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.gw.cfg.WriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
