package websocket

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/translatar/gateway/domain/entities"
	"github.com/translatar/gateway/usecase"
)

const (
	DefaultSourceLang = "en"
	DefaultTargetLang = "es"

	// DefaultMaxFrameBytes bounds one inbound binary frame
	DefaultMaxFrameBytes = 1 << 20

	lengthPrefixSize = 4
)

// Metadata is the JSON header of an inbound frame. JWTToken and
// ConversationID are only read from the first frame of a connection.
type Metadata struct {
	SourceLang     string `json:"source_lang,omitempty"`
	TargetLang     string `json:"target_lang,omitempty"`
	JWTToken       string `json:"jwt_token,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// Frame is one decoded audio chunk
type Frame struct {
	Metadata Metadata
	Audio    []byte
}

// FrameError reports a malformed inbound frame. It is fatal to the connection.
type FrameError struct {
	Reason string
}

func (e *FrameError) Error() string {
	return "invalid frame: " + e.Reason
}

// Codec decodes inbound frames, filling missing languages with its defaults
type Codec struct {
	defaultSourceLang string
	defaultTargetLang string
}

func NewCodec(defaultSourceLang, defaultTargetLang string) *Codec {
	if defaultSourceLang == "" {
		defaultSourceLang = DefaultSourceLang
	}
	if defaultTargetLang == "" {
		defaultTargetLang = DefaultTargetLang
	}
	return &Codec{
		defaultSourceLang: defaultSourceLang,
		defaultTargetLang: defaultTargetLang,
	}
}

// Decode parses [4-byte little-endian length L][L bytes JSON metadata][audio].
// The returned audio aliases data.
func (c *Codec) Decode(data []byte) (*Frame, error) {
	if len(data) < lengthPrefixSize {
		return nil, &FrameError{Reason: "missing length prefix"}
	}

	metaLen := binary.LittleEndian.Uint32(data[:lengthPrefixSize])
	if uint64(metaLen) > uint64(len(data)-lengthPrefixSize) {
		return nil, &FrameError{Reason: fmt.Sprintf("metadata length %d exceeds frame size %d", metaLen, len(data))}
	}

	end := lengthPrefixSize + int(metaLen)
	var meta Metadata
	if err := json.Unmarshal(data[lengthPrefixSize:end], &meta); err != nil {
		return nil, &FrameError{Reason: "metadata is not valid JSON: " + err.Error()}
	}

	if meta.SourceLang == "" {
		meta.SourceLang = c.defaultSourceLang
	}
	if meta.TargetLang == "" {
		meta.TargetLang = c.defaultTargetLang
	}
	if !entities.ValidLanguageCode(meta.SourceLang) {
		return nil, &FrameError{Reason: fmt.Sprintf("invalid source_lang %q", meta.SourceLang)}
	}
	if !entities.ValidLanguageCode(meta.TargetLang) {
		return nil, &FrameError{Reason: fmt.Sprintf("invalid target_lang %q", meta.TargetLang)}
	}

	return &Frame{Metadata: meta, Audio: data[end:]}, nil
}

// EncodeFrame builds the binary frame a client sends
func EncodeFrame(meta Metadata, audio []byte) ([]byte, error) {
	header, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	frame := make([]byte, lengthPrefixSize, lengthPrefixSize+len(header)+len(audio))
	binary.LittleEndian.PutUint32(frame, uint32(len(header)))
	frame = append(frame, header...)
	frame = append(frame, audio...)
	return frame, nil
}

// EncodeReply serializes a chunk result as the JSON text sent back to the client
func EncodeReply(result *usecase.ChunkResult) ([]byte, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal reply: %w", err)
	}
	return payload, nil
}
