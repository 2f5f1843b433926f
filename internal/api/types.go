package api

import "github.com/translatar/gateway/domain/entities"

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is returned by the health endpoints
type HealthResponse struct {
	Status         string `json:"status"`
	DatabaseStatus string `json:"database_status"`
}

// GoogleLoginRequest carries a Google ID token obtained by the client
type GoogleLoginRequest struct {
	Token string `json:"token"`
}

// TokenResponse carries an application access token
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// StartConversationRequest represents the request payload for starting a conversation
type StartConversationRequest struct {
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

type StartConversationResponse struct {
	ConversationID string `json:"conversation_id"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type ConversationListResponse struct {
	Conversations []*entities.Conversation `json:"conversations"`
}

type SummaryResponse struct {
	ConversationID string `json:"conversation_id"`
	Length         string `json:"length"`
	Summary        string `json:"summary"`
}

// TranslationResponse is returned by process-audio
type TranslationResponse struct {
	OriginalText   string `json:"original_text"`
	TranslatedText string `json:"translated_text"`
}
