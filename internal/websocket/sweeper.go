package websocket

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/translatar/gateway/internal/metrics"
	"github.com/translatar/gateway/usecase"
)

// StaleEnder ends conversations left active for too long
type StaleEnder interface {
	EndStale(ctx context.Context, cutoff time.Time, skip func(conversationID string) bool) ([]string, error)
}

var _ StaleEnder = (*usecase.ConversationService)(nil)

// ConversationSweeper periodically ends conversations whose connection
// vanished without calling end, e.g. after a process crash. Conversations
// held by an open connection are never swept.
type ConversationSweeper struct {
	conversations StaleEnder
	hub           *Hub
	interval      time.Duration
	maxAge        time.Duration
	initialDelay  time.Duration
	metrics       *metrics.Metrics
	logger        *zap.Logger
	now           func() time.Time

	stopChan chan struct{}
	done     chan struct{}
}

// NewConversationSweeper creates a new sweeper. m may be nil.
func NewConversationSweeper(conversations StaleEnder, hub *Hub, interval, maxAge time.Duration, m *metrics.Metrics, logger *zap.Logger) *ConversationSweeper {
	return &ConversationSweeper{
		conversations: conversations,
		hub:           hub,
		interval:      interval,
		maxAge:        maxAge,
		initialDelay:  time.Minute,
		metrics:       m,
		logger:        logger,
		now:           time.Now,
		stopChan:      make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start begins the background sweep loop
func (s *ConversationSweeper) Start() {
	go s.loop()
	s.logger.Info("Conversation sweeper started",
		zap.Duration("interval", s.interval),
		zap.Duration("maxAge", s.maxAge))
}

// Stop stops the loop and waits for a running sweep to finish
func (s *ConversationSweeper) Stop() {
	close(s.stopChan)
	<-s.done
	s.logger.Info("Conversation sweeper stopped")
}

func (s *ConversationSweeper) loop() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	initialTimer := time.NewTimer(s.initialDelay)
	defer initialTimer.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-initialTimer.C:
			s.sweep()
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *ConversationSweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if _, err := s.SweepOnce(ctx); err != nil {
		s.logger.Error("Conversation sweep failed", zap.Error(err))
	}
}

// SweepOnce ends every stale conversation not held by an open connection
// and returns how many it ended.
func (s *ConversationSweeper) SweepOnce(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.maxAge)
	ended, err := s.conversations.EndStale(ctx, cutoff, s.hub.IsHeld)
	if err != nil {
		return 0, err
	}

	s.metrics.ConversationsSwept(len(ended))
	if len(ended) > 0 {
		s.logger.Info("Ended stale conversations",
			zap.Int("count", len(ended)),
			zap.Strings("conversationIDs", ended))
	}
	return len(ended), nil
}
