package entities

import (
	"errors"
	"time"
)

// Conversation groups the sequential translated utterances of one authenticated session
type Conversation struct {
	ID               string     `json:"id" bson:"_id"`
	UserID           string     `json:"userId" bson:"userId"`
	Title            string     `json:"title,omitempty" bson:"title,omitempty"`
	SourceLang       string     `json:"source_lang" bson:"source_lang"`
	TargetLang       string     `json:"target_lang" bson:"target_lang"`
	StartedAt        time.Time  `json:"started_at" bson:"started_at"`
	EndedAt          *time.Time `json:"ended_at" bson:"ended_at"`
	IsActive         bool       `json:"is_active" bson:"is_active"`
	TranslationCount int        `json:"translation_count" bson:"translation_count"`
}

// NewConversation creates an active conversation owned by userID
func NewConversation(userID, sourceLang, targetLang string) *Conversation {
	return &Conversation{
		UserID:     userID,
		SourceLang: sourceLang,
		TargetLang: targetLang,
		StartedAt:  time.Now().UTC(),
		IsActive:   true,
	}
}

// End closes the conversation. It reports false when it was already closed.
func (c *Conversation) End(at time.Time) bool {
	if !c.IsActive {
		return false
	}
	at = at.UTC()
	c.EndedAt = &at
	c.IsActive = false
	return true
}

// OwnedBy reports whether the conversation belongs to userID
func (c *Conversation) OwnedBy(userID string) bool {
	return c.UserID != "" && c.UserID == userID
}

func (c *Conversation) Validate() error {
	if c.UserID == "" {
		return errors.New("user id is required")
	}
	if c.SourceLang == "" || c.TargetLang == "" {
		return errors.New("source and target language are required")
	}
	if c.IsActive != (c.EndedAt == nil) {
		return errors.New("active flag must match a missing end timestamp")
	}
	if c.TranslationCount < 0 {
		return errors.New("translation count cannot be negative")
	}
	return nil
}

// TranslationRecord is one persisted utterance. ConversationID is empty for
// records written through the legacy flat log.
type TranslationRecord struct {
	ID                  string    `json:"id" bson:"_id"`
	ConversationID      string    `json:"conversation_id,omitempty" bson:"conversation_id,omitempty"`
	OriginalText        string    `json:"original_text" bson:"original_text"`
	TranslatedText      string    `json:"translated_text" bson:"translated_text"`
	SourceLang          string    `json:"source_lang" bson:"source_lang"`
	TargetLang          string    `json:"target_lang" bson:"target_lang"`
	DetectedLanguage    *string   `json:"detected_language,omitempty" bson:"detected_language,omitempty"`
	LanguageProbability *float64  `json:"language_probability,omitempty" bson:"language_probability,omitempty"`
	UserID              string    `json:"userId,omitempty" bson:"userId,omitempty"`
	Timestamp           time.Time `json:"timestamp" bson:"timestamp"`
	SequenceNumber      int       `json:"sequence_number,omitempty" bson:"sequence_number,omitempty"`
}

func (r *TranslationRecord) Validate() error {
	if r.OriginalText == "" {
		return errors.New("original text is required")
	}
	if r.SourceLang == "" || r.TargetLang == "" {
		return errors.New("source and target language are required")
	}
	if r.ConversationID != "" && r.SequenceNumber < 1 {
		return errors.New("sequence number must start at 1")
	}
	return nil
}

// ConversationDetail is a conversation with its records ordered by sequence number
type ConversationDetail struct {
	Conversation *Conversation        `json:"conversation"`
	Translations []*TranslationRecord `json:"translations"`
}

// User is an account created on first Google sign-in
type User struct {
	ID        string    `json:"id" bson:"_id"`
	GoogleID  string    `json:"googleId" bson:"googleId"`
	Email     string    `json:"email" bson:"email"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

func (u *User) Validate() error {
	if u.GoogleID == "" {
		return errors.New("google id is required")
	}
	if u.Email == "" {
		return errors.New("email is required")
	}
	return nil
}
