package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nguyentranbao-ct/chat-crm/internal/config"
	"github.com/nguyentranbao-ct/chat-crm/internal/models"
)

func newTestClient(t *testing.T, handler http.Handler, opts ...func(*config.BridgeConfig)) (*client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	conf := &config.Config{Bridge: config.BridgeConfig{
		BaseURL:  srv.URL,
		Token:    "test-token",
		Timeout:  2 * time.Second,
		PageSize: 50,
		MaxPages: 10,
		SelfName: "Me",
	}}
	for _, o := range opts {
		o(&conf.Bridge)
	}
	c, err := NewClient(conf)
	require.NoError(t, err)
	return c.(*client), srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func accountsOK(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, []map[string]any{
		{"accountID": "whatsapp", "network": "WhatsApp"},
		{"accountID": "telegram", "network": "Telegram"},
	})
}

func TestProbe_FallsBackToSecondFamily(t *testing.T) {
	var v1Hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/accounts", func(w http.ResponseWriter, r *http.Request) {
		v1Hits.Add(1)
		http.NotFound(w, r)
	})
	mux.HandleFunc("/v0/get-accounts", accountsOK)
	mux.HandleFunc("/v0/search-chats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"chats": []map[string]any{{"id": "c1", "title": "Alice"}},
		})
	})

	c, _ := newTestClient(t, mux)
	ctx := t.Context()

	status := c.Status(ctx)
	assert.True(t, status.Connected)
	assert.Equal(t, "v0", status.Family)
	assert.Equal(t, 2, status.Accounts)
	assert.Equal(t, []string{models.NetworkTelegram, models.NetworkWhatsApp}, status.Networks)

	convs, err := c.ListConversations(ctx, 10)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "Alice", convs[0].Name)
	assert.Equal(t, int32(1), v1Hits.Load(), "discovery result is cached")
}

func TestProbe_FailureIsCachedUntilReprobe(t *testing.T) {
	var hits atomic.Int32
	healthy := atomic.Bool{}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/accounts", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if healthy.Load() {
			accountsOK(w, r)
			return
		}
		http.Error(w, "starting", http.StatusServiceUnavailable)
	})
	mux.HandleFunc("/v0/get-accounts", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "starting", http.StatusServiceUnavailable)
	})

	c, _ := newTestClient(t, mux)
	ctx := t.Context()

	_, err := c.ListConversations(ctx, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnreachable)
	assert.True(t, IsUnavailable(err))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)

	_, err = c.ListConversations(ctx, 10)
	require.Error(t, err)
	assert.Equal(t, int32(2), hits.Load(), "failed discovery is not retried implicitly")

	healthy.Store(true)
	status := c.Reprobe(ctx)
	assert.True(t, status.Connected)
	assert.Equal(t, "v1", status.Family)
	assert.Empty(t, status.LastError)
}

func TestListConversations_RepeatingCursorStops(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/accounts", accountsOK)
	mux.HandleFunc("/v1/chats/search", func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{
			"items":      []map[string]any{{"id": fmt.Sprintf("chat-%d", n)}},
			"hasMore":    true,
			"nextCursor": "same",
		})
	})

	c, _ := newTestClient(t, mux)
	convs, err := c.ListConversations(t.Context(), 1000)
	require.NoError(t, err)
	assert.Len(t, convs, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestListConversations_PageCap(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/accounts", accountsOK)
	mux.HandleFunc("/v1/chats/search", func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		if n > 1 {
			assert.Equal(t, fmt.Sprintf("cursor-%d", n-1), r.URL.Query().Get("cursor"))
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"items":      []map[string]any{{"id": fmt.Sprintf("chat-%d", n)}},
			"hasMore":    true,
			"nextCursor": fmt.Sprintf("cursor-%d", n),
		})
	})

	c, _ := newTestClient(t, mux, func(b *config.BridgeConfig) { b.MaxPages = 4 })
	convs, err := c.ListConversations(t.Context(), 1000)
	require.NoError(t, err)
	assert.Len(t, convs, 4)
	assert.Equal(t, int32(4), calls.Load())
}

func TestListConversations_StopsAtLimit(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/accounts", accountsOK)
	mux.HandleFunc("/v1/chats/search", func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, map[string]any{
			"items": []map[string]any{
				{"id": fmt.Sprintf("a-%d", n)},
				{"id": fmt.Sprintf("b-%d", n)},
				{"id": fmt.Sprintf("c-%d", n)},
			},
			"hasMore":    true,
			"nextCursor": fmt.Sprintf("cursor-%d", n),
		})
	})

	c, _ := newTestClient(t, mux)
	convs, err := c.ListConversations(t.Context(), 2)
	require.NoError(t, err)
	assert.Len(t, convs, 2)
	assert.Equal(t, int32(1), calls.Load())
}

func TestListConversations_UnknownShapeIsEmpty(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/accounts", accountsOK)
	mux.HandleFunc("/v1/chats/search", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"something": map[string]any{"else": 1}})
	})

	c, _ := newTestClient(t, mux)
	convs, err := c.ListConversations(t.Context(), 10)
	require.NoError(t, err)
	assert.Empty(t, convs)
}

func TestListConversations_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		timeout time.Duration
		check   func(t *testing.T, err error)
	}{
		{
			name: "non-2xx",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "upstream broke", http.StatusBadGateway)
			},
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
				assert.Contains(t, apiErr.Body, "upstream broke")
			},
		},
		{
			name: "unparseable body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"items": [`))
			},
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.ErrorIs(t, err, ErrInvalidBody)
			},
		},
		{
			name:    "timeout",
			timeout: 50 * time.Millisecond,
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(time.Second):
				}
			},
			check: func(t *testing.T, err error) {
				var timeoutErr *TimeoutError
				require.ErrorAs(t, err, &timeoutErr)
				assert.Equal(t, 50*time.Millisecond, timeoutErr.Timeout)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/v1/accounts", accountsOK)
			mux.HandleFunc("/v1/chats/search", tt.handler)

			c, _ := newTestClient(t, mux)
			if tt.timeout > 0 {
				c.timeout = tt.timeout
			}
			convs, err := c.ListConversations(t.Context(), 10)
			require.Error(t, err)
			assert.Nil(t, convs)
			assert.True(t, IsUnavailable(err))
			tt.check(t, err)
		})
	}
}

func TestListConversations_ConnectionRefused(t *testing.T) {
	c, srv := newTestClient(t, http.NotFoundHandler())
	srv.Close()

	_, err := c.ListConversations(t.Context(), 10)
	require.Error(t, err)
	var connErr *ConnectionError
	assert.ErrorAs(t, err, &connErr)
	assert.False(t, c.Status(t.Context()).Connected)
}

func TestListMessages_FiltersOtherChats(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/accounts", accountsOK)
	mux.HandleFunc("/v1/messages/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "!room:beeper.local", r.URL.Query().Get("chatIDs"))
		writeJSON(w, http.StatusOK, map[string]any{
			"items": []map[string]any{
				{"id": "m2", "chatID": "!room:beeper.local", "text": "second", "timestamp": 1700000100, "isSender": true},
				{"id": "m1", "chatID": "!room:beeper.local", "text": "first", "timestamp": 1700000000000, "senderID": "@whatsapp_393401234567:beeper.local"},
				{"id": "x", "chatID": "!other:beeper.local", "text": "leak"},
				{"id": "m3", "text": "no chat id", "senderName": "Lucia"},
			},
			"hasMore": false,
		})
	})

	c, _ := newTestClient(t, mux)
	msgs, err := c.ListMessages(t.Context(), "!room:beeper.local", 50)
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, "+39 340 123 4567", msgs[0].SenderName)
	assert.Equal(t, "m2", msgs[1].ID)
	assert.Equal(t, "Me", msgs[1].SenderName)
	assert.True(t, msgs[1].FromMe)
	assert.Equal(t, "m3", msgs[2].ID)
	assert.Equal(t, "Lucia", msgs[2].SenderName)
	for _, m := range msgs {
		assert.Equal(t, "!room:beeper.local", m.ChatID)
	}
}

func TestSendMessage(t *testing.T) {
	var got sendMessageBody
	declined := atomic.Bool{}
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/accounts", accountsOK)
	mux.HandleFunc("/v1/messages", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		if declined.Load() {
			writeJSON(w, http.StatusOK, map[string]any{"success": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"chatID": got.ChatID, "pendingMessageID": "p1"})
	})

	c, _ := newTestClient(t, mux)
	ok, err := c.SendMessage(t.Context(), "chat-1", "ciao", "m9")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, sendMessageBody{ChatID: "chat-1", Text: "ciao", ReplyToMessageID: "m9"}, got)

	declined.Store(true)
	ok, err = c.SendMessage(t.Context(), "chat-1", "ciao", "")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSendMessage_NoRetryOnFailure(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/accounts", accountsOK)
	mux.HandleFunc("/v1/messages", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusInternalServerError)
	})

	c, _ := newTestClient(t, mux)
	ok, err := c.SendMessage(t.Context(), "chat-1", "ciao", "")
	assert.False(t, ok)
	var apiErr *APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, int32(1), calls.Load())
}

func TestDownloadMedia(t *testing.T) {
	ogg := append([]byte("OggS"), make([]byte, 60)...)
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/accounts", accountsOK)
	mux.HandleFunc("/v1/assets/download", func(w http.ResponseWriter, r *http.Request) {
		var body downloadAssetBody
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.URL == "mxc://beeper.local/missing" {
			writeJSON(w, http.StatusOK, map[string]any{"error": "asset not found"})
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(ogg)
	})

	c, _ := newTestClient(t, mux)

	media, err := c.DownloadMedia(t.Context(), "mxc://beeper.local/voice")
	require.NoError(t, err)
	assert.Equal(t, "audio/ogg", media.ContentType)
	assert.Equal(t, ogg, media.Data)

	_, err = c.DownloadMedia(t.Context(), "mxc://beeper.local/missing")
	var apiErr *APIError
	assert.ErrorAs(t, err, &apiErr)

	_, err = c.DownloadMedia(t.Context(), "https://example.com/cat.png")
	assert.ErrorIs(t, err, ErrInvalidMedia)
}

func TestDownloadMedia_AssetURLOnOtherHost(t *testing.T) {
	var gotAuth atomic.Value
	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("\x89PNG\r\n\x1a\n"))
	}))
	t.Cleanup(cdn.Close)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/accounts", accountsOK)
	mux.HandleFunc("/v1/assets/download", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{"srcURL": cdn.URL + "/cache/photo.png"})
	})
	c, _ := newTestClient(t, mux)

	media, err := c.DownloadMedia(t.Context(), "mxc://beeper.local/photo")
	require.NoError(t, err)
	assert.Equal(t, "image/png", media.ContentType)
	assert.Equal(t, "photo.png", media.FileName)
	assert.Equal(t, "", gotAuth.Load())
}

func TestDownloadMedia_RejectsFileURL(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/accounts", accountsOK)
	mux.HandleFunc("/v1/assets/download", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	})
	c, _ := newTestClient(t, mux)

	assert.False(t, c.IsBridgeMediaURL("file:///etc/passwd"))
	_, err := c.DownloadMedia(t.Context(), "file:///etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidMedia)
	assert.Zero(t, calls.Load())
	assert.Equal(t, "", c.rewriteMediaURL("file:///home/me/Library/cache/photo.jpg"))
}
