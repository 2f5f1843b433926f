package entities

import "time"

// ConnectionSession is the in-memory state of one relay WebSocket connection.
// It is never persisted and never shared between connections.
type ConnectionSession struct {
	ConnectionID   string
	UserID         string
	ConversationID string
	SourceLang     string
	TargetLang     string
	ConnectedAt    time.Time

	// OwnsConversation is set when this connection started ConversationID
	// and is therefore responsible for ending it.
	OwnsConversation bool
	ChunkCount       int
}

// NewConnectionSession creates the session state for a freshly accepted connection
func NewConnectionSession(connectionID, sourceLang, targetLang string) *ConnectionSession {
	return &ConnectionSession{
		ConnectionID: connectionID,
		SourceLang:   sourceLang,
		TargetLang:   targetLang,
		ConnectedAt:  time.Now(),
	}
}

// IsAuthenticated reports whether the first frame carried a valid token
func (s *ConnectionSession) IsAuthenticated() bool {
	return s.UserID != ""
}

// HasConversation reports whether chunks are appended to a conversation
// rather than the legacy flat log
func (s *ConnectionSession) HasConversation() bool {
	return s.ConversationID != ""
}

// AttachConversation binds conversationID to this connection
func (s *ConnectionSession) AttachConversation(conversationID string, owned bool) {
	s.ConversationID = conversationID
	s.OwnsConversation = owned
}

// ConversationIDOrNil returns the conversation id for JSON replies, nil when absent
func (s *ConnectionSession) ConversationIDOrNil() *string {
	if s.ConversationID == "" {
		return nil
	}
	id := s.ConversationID
	return &id
}
