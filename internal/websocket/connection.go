package websocket

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/translatar/gateway/domain/entities"
	"github.com/translatar/gateway/domain/repositories"
	"github.com/translatar/gateway/internal/auth"
	"github.com/translatar/gateway/internal/metrics"
	"github.com/translatar/gateway/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Outbound replies buffered per connection.
	sendBufferSize = 64

	defaultEndTimeout = 5 * time.Second
)

// Close reasons sent to the client
const (
	ReasonAuthenticationFailed = "Authentication failed"
	ReasonConversationBusy     = "Conversation unavailable"
	ReasonConversationLookup   = "Conversation lookup failed"
	ReasonInvalidFrame         = "Invalid frame"
	ReasonBinaryExpected       = "Binary frames expected"
	ReasonShuttingDown         = "Server shutting down"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 1024,
}

// Authenticator resolves an application token to a user id
type Authenticator interface {
	Verify(token string) (string, error)
}

// Pipeline processes one audio chunk into a reply
type Pipeline interface {
	Process(ctx context.Context, req usecase.ChunkRequest) *usecase.ChunkResult
}

// ConversationTracker is the part of the conversation service the relay uses
type ConversationTracker interface {
	Start(ctx context.Context, userID, sourceLang, targetLang string) (string, error)
	End(ctx context.Context, conversationID string) (bool, error)
	Resume(ctx context.Context, conversationID, userID string) (bool, error)
}

var (
	_ Authenticator       = (*auth.Manager)(nil)
	_ Pipeline            = (*usecase.PipelineService)(nil)
	_ ConversationTracker = (*usecase.ConversationService)(nil)
)

// HandlerConfig tunes the relay
type HandlerConfig struct {
	MaxFrameBytes     int64
	DefaultSourceLang string
	DefaultTargetLang string

	// EndTimeout bounds the end() call made when a connection closes.
	EndTimeout time.Duration
}

// Handler accepts relay WebSocket connections
type Handler struct {
	hub           *Hub
	codec         *Codec
	auth          Authenticator
	pipeline      Pipeline
	conversations ConversationTracker
	metrics       *metrics.Metrics
	config        HandlerConfig
	logger        *zap.Logger
}

// NewHandler creates the relay handler. m may be nil.
func NewHandler(
	hub *Hub,
	authenticator Authenticator,
	pipeline Pipeline,
	conversations ConversationTracker,
	m *metrics.Metrics,
	config HandlerConfig,
	logger *zap.Logger,
) *Handler {
	if config.MaxFrameBytes <= 0 {
		config.MaxFrameBytes = DefaultMaxFrameBytes
	}
	if config.EndTimeout <= 0 {
		config.EndTimeout = defaultEndTimeout
	}
	return &Handler{
		hub:           hub,
		codec:         NewCodec(config.DefaultSourceLang, config.DefaultTargetLang),
		auth:          authenticator,
		pipeline:      pipeline,
		conversations: conversations,
		metrics:       m,
		config:        config,
		logger:        logger,
	}
}

// WriteData is one outbound websocket message.
type WriteData struct {
	// Type is websocket.TextMessage for replies or websocket.CloseMessage,
	// after which the writer stops.
	Type    int
	Payload []byte
}

// Connection is one relay WebSocket. A single reader goroutine decodes and
// processes chunks in arrival order; a writer goroutine drains send.
type Connection struct {
	id      string
	hub     *Hub
	handler *Handler
	conn    *websocket.Conn
	session *entities.ConnectionSession

	send       chan WriteData
	writerDone chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
}

// ServeWS upgrades the request and starts the connection's pumps
func (h *Handler) ServeWS(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	id := uuid.New().String()
	ctx, cancel := context.WithCancel(context.Background())
	client := &Connection{
		id:         id,
		hub:        h.hub,
		handler:    h,
		conn:       conn,
		session:    entities.NewConnectionSession(id, h.codec.defaultSourceLang, h.codec.defaultTargetLang),
		send:       make(chan WriteData, sendBufferSize),
		writerDone: make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
		logger:     h.logger.With(zap.String("connectionID", id)),
	}

	if !h.hub.register(client) {
		cancel()
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, ReasonShuttingDown)
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		conn.Close()
		return nil
	}
	h.metrics.ConnectionOpened()
	client.logger.Info("Relay connection accepted", zap.String("remoteAddr", c.RealIP()))

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump(client.logger)
	go client.readPump()

	return nil
}

// readPump reads frames and runs each chunk's pipeline to completion before
// reading the next, so replies and sequence numbers follow arrival order.
func (c *Connection) readPump() {
	defer c.teardown()

	c.conn.SetReadLimit(c.handler.config.MaxFrameBytes)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	first := true
	for {
		// Chunk processing may outlast pongWait, so the deadline restarts
		// for every read.
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				c.logger.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}

		if messageType != websocket.BinaryMessage {
			c.logger.Warn("Received non-binary message", zap.Int("type", messageType))
			c.closeWith(websocket.CloseUnsupportedData, ReasonBinaryExpected)
			return
		}

		frame, err := c.handler.codec.Decode(data)
		if err != nil {
			c.logger.Warn("Failed to decode frame", zap.Error(err))
			c.closeWith(websocket.CloseProtocolError, ReasonInvalidFrame)
			return
		}

		if first {
			first = false
			if !c.open(frame.Metadata) {
				return
			}
		}

		c.processChunk(frame)
	}
}

// open authenticates the first frame and binds the connection to a
// conversation. It reports false after closing the connection.
func (c *Connection) open(meta Metadata) bool {
	if meta.JWTToken != "" {
		userID, err := c.handler.auth.Verify(meta.JWTToken)
		if err != nil {
			c.handler.metrics.AuthRejected()
			c.logger.Warn("Authentication failed", zap.Error(err))
			c.closeWith(websocket.ClosePolicyViolation, ReasonAuthenticationFailed)
			return false
		}
		c.session.UserID = userID
		c.logger = c.logger.With(zap.String("userID", userID))
	}
	c.session.SourceLang = meta.SourceLang
	c.session.TargetLang = meta.TargetLang

	if meta.ConversationID != "" {
		return c.resume(meta.ConversationID)
	}
	if !c.session.IsAuthenticated() {
		c.logger.Info("Anonymous relay session")
		return true
	}

	ctx, cancel := context.WithTimeout(c.ctx, c.handler.config.EndTimeout)
	defer cancel()
	conversationID, err := c.handler.conversations.Start(ctx, c.session.UserID, meta.SourceLang, meta.TargetLang)
	if err != nil {
		// Relaying continues on the legacy flat log.
		c.logger.Warn("Failed to start conversation", zap.Error(err))
		return true
	}
	c.hub.Claim(conversationID, c.id)
	c.session.AttachConversation(conversationID, true)
	c.logger = c.logger.With(zap.String("conversationID", conversationID))
	c.logger.Info("Conversation started")
	return true
}

// resume binds a client supplied conversation id. Ids held by another open
// connection or owned by another user are refused.
func (c *Connection) resume(conversationID string) bool {
	if !c.hub.Claim(conversationID, c.id) {
		c.logger.Warn("Conversation held by another connection", zap.String("conversationID", conversationID))
		c.closeWith(websocket.ClosePolicyViolation, ReasonConversationBusy)
		return false
	}

	ctx, cancel := context.WithTimeout(c.ctx, c.handler.config.EndTimeout)
	defer cancel()
	known, err := c.handler.conversations.Resume(ctx, conversationID, c.session.UserID)
	if err != nil {
		c.hub.Release(conversationID, c.id)
		if errors.Is(err, repositories.ErrConversationInUse) {
			c.logger.Warn("Conversation owned by another user", zap.String("conversationID", conversationID))
			c.closeWith(websocket.ClosePolicyViolation, ReasonConversationBusy)
			return false
		}
		c.logger.Error("Failed to look up conversation", zap.String("conversationID", conversationID), zap.Error(err))
		c.closeWith(websocket.CloseInternalServerErr, ReasonConversationLookup)
		return false
	}

	c.session.AttachConversation(conversationID, false)
	c.logger = c.logger.With(zap.String("conversationID", conversationID))
	c.logger.Info("Conversation resumed", zap.Bool("known", known))
	return true
}

func (c *Connection) processChunk(frame *Frame) {
	result := c.handler.pipeline.Process(c.ctx, usecase.ChunkRequest{
		Audio:          frame.Audio,
		SourceLang:     frame.Metadata.SourceLang,
		TargetLang:     frame.Metadata.TargetLang,
		ConversationID: c.session.ConversationID,
		UserID:         c.session.UserID,
	})
	c.session.ChunkCount++

	payload, err := EncodeReply(result)
	if err != nil {
		c.logger.Error("Failed to encode reply", zap.Error(err))
		return
	}
	c.enqueue(WriteData{Type: websocket.TextMessage, Payload: payload})
}

// enqueue hands msg to the writer. It drops msg once the writer has stopped.
func (c *Connection) enqueue(msg WriteData) {
	select {
	case c.send <- msg:
	case <-c.writerDone:
	}
}

// closeWith queues a close frame behind any pending replies
func (c *Connection) closeWith(code int, reason string) {
	c.enqueue(WriteData{
		Type:    websocket.CloseMessage,
		Payload: websocket.FormatCloseMessage(code, reason),
	})
}

// teardown ends the conversation this connection started and releases it.
// It runs once the reader has stopped, so no chunk is in flight.
func (c *Connection) teardown() {
	if c.session.OwnsConversation {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.ctx), c.handler.config.EndTimeout)
		ended, err := c.handler.conversations.End(ctx, c.session.ConversationID)
		cancel()
		if err != nil {
			c.logger.Warn("Failed to end conversation", zap.Error(err))
		} else {
			c.logger.Info("Conversation ended", zap.Bool("transitioned", ended))
		}
	}

	c.hub.unregister(c)
	c.cancel()
	close(c.send)
	c.handler.metrics.ConnectionClosed()
	c.logger.Info("Relay connection closed",
		zap.Int("chunks", c.session.ChunkCount),
		zap.Duration("duration", time.Since(c.session.ConnectedAt)))
}

// writePump pumps replies from the reader to the websocket connection. It
// logs through its own logger since the reader enriches c.logger.
func (c *Connection) writePump(logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(c.writerDone)
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				logger.Debug("Failed to write message", zap.Error(err))
				return
			}
			if message.Type == websocket.CloseMessage {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
