// Command relayclient streams a PCM WAV file to the gateway's relay
// WebSocket as framed chunks and prints every reply.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	relay "github.com/translatar/gateway/internal/websocket"
)

type reply struct {
	OriginalText        string   `json:"original_text"`
	TranslatedText      string   `json:"translated_text"`
	ConversationID      *string  `json:"conversation_id"`
	DetectedLanguage    *string  `json:"detected_language,omitempty"`
	LanguageProbability *float64 `json:"language_probability,omitempty"`
}

func main() {
	url := flag.String("url", "ws://localhost:8080/ws", "relay WebSocket URL")
	token := flag.String("token", "", "application access token; empty relays anonymously")
	file := flag.String("file", "sample_audio.wav", "PCM WAV file to stream")
	chunk := flag.Duration("chunk", 3*time.Second, "audio duration per frame")
	sourceLang := flag.String("source", "en", "source language")
	targetLang := flag.String("target", "es", "target language")
	conversationID := flag.String("conversation", "", "conversation id to resume")
	flag.Parse()

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("failed to read %s: %v", *file, err)
	}
	chunks, err := splitWAV(data, *chunk)
	if err != nil {
		log.Fatalf("failed to split %s: %v", *file, err)
	}
	log.Printf("split %s into %d chunks of %s", *file, len(chunks), *chunk)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c, _, err := websocket.DefaultDialer.DialContext(ctx, *url, nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer c.Close()

	replies := make(chan reply)
	done := make(chan error, 1)
	go readReplies(c, replies, done)

	for i, audio := range chunks {
		meta := relay.Metadata{SourceLang: *sourceLang, TargetLang: *targetLang}
		if i == 0 {
			meta.JWTToken = *token
			meta.ConversationID = *conversationID
		}

		frame, err := relay.EncodeFrame(meta, audio)
		if err != nil {
			log.Fatalf("failed to encode chunk %d: %v", i+1, err)
		}
		if err := c.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			log.Fatalf("failed to send chunk %d: %v", i+1, err)
		}

		// One reply per chunk, in order.
		select {
		case r := <-replies:
			printReply(i+1, r)
		case err := <-done:
			log.Fatalf("connection closed after %d chunks: %v", i, err)
		case <-ctx.Done():
			log.Println("interrupt")
			closeConn(c)
			return
		}
	}

	closeConn(c)
}

func readReplies(c *websocket.Conn, replies chan<- reply, done chan<- error) {
	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			done <- err
			return
		}
		var r reply
		if err := json.Unmarshal(message, &r); err != nil {
			log.Printf("unexpected message: %s", message)
			continue
		}
		replies <- r
	}
}

func printReply(n int, r reply) {
	conversation := "-"
	if r.ConversationID != nil {
		conversation = *r.ConversationID
	}
	line := fmt.Sprintf("#%d [%s] %q -> %q", n, conversation, r.OriginalText, r.TranslatedText)
	if r.DetectedLanguage != nil && r.LanguageProbability != nil {
		line += fmt.Sprintf(" (detected %s %.2f)", *r.DetectedLanguage, *r.LanguageProbability)
	}
	fmt.Println(line)
}

// closeConn sends a close frame and waits briefly for the server to answer
func closeConn(c *websocket.Conn) {
	err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		log.Println("write close:", err)
		return
	}
	time.Sleep(200 * time.Millisecond)
}
