package translation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/translatar/gateway/adapters/upstream"
	"github.com/translatar/gateway/domain/repositories"
)

func newClient(t *testing.T, handler http.HandlerFunc) *upstream.Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return upstream.NewClient("translation", server.URL, time.Second, zaptest.NewLogger(t))
}

func TestServiceTranslator(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "/translate", r.URL.Path)
		assert.Equal(t, "hello world", req["text"])
		assert.Equal(t, "en", req["source_lang"])
		assert.Equal(t, "es", req["target_lang"])
		w.Write([]byte(`{"translated_text":"[es] hello world"}`))
	})

	got, err := NewServiceTranslator(client).Translate(context.Background(), "hello world", "en", "es")
	require.NoError(t, err)
	require.Equal(t, "[es] hello world", got)
}

func TestServiceTranslator_InvalidShape(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"translatedText":"wrong key"}`))
	})

	_, err := NewServiceTranslator(client).Translate(context.Background(), "hi", "en", "es")
	require.ErrorIs(t, err, repositories.ErrInvalidResponse)
}

func TestLibreTranslator(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req["q"])
		assert.Equal(t, "en", req["source"])
		assert.Equal(t, "fr", req["target"])
		assert.Equal(t, "text", req["format"])
		assert.Equal(t, "key", req["api_key"])
		w.Write([]byte(`{"translatedText":"bonjour"}`))
	})

	got, err := NewLibreTranslator(client, "key").Translate(context.Background(), "hello", "en", "fr")
	require.NoError(t, err)
	require.Equal(t, "bonjour", got)
}

func TestLibreTranslator_Error(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unsupported language"}`, http.StatusBadRequest)
	})

	_, err := NewLibreTranslator(client, "").Translate(context.Background(), "hello", "en", "xx")
	require.True(t, repositories.IsUpstream(err))
}
