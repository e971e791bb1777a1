package channels

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestGmailChannel wires the channel to an httptest server with a plain
// client, skipping the oauth2 token source.
func newTestGmailChannel(serverURL string) *GmailChannel {
	return &GmailChannel{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		sendURL:    serverURL,
		sender:     "alerts@example.com",
		recipient:  "admin@example.com",
		logger:     zap.NewNop(),
	}
}

func TestGmailChannel(t *testing.T) {
	t.Run("Sends RFC822 Message", func(t *testing.T) {
		var gotRaw string

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var payload struct {
				Raw string `json:"raw"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			gotRaw = payload.Raw

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"id": "msg123", "threadId": "thr123"})
		}))
		defer server.Close()

		channel := newTestGmailChannel(server.URL)
		err := channel.Send(context.Background(), testRecord())
		require.NoError(t, err)

		decoded, err := base64.URLEncoding.DecodeString(gotRaw)
		require.NoError(t, err)
		message := string(decoded)

		assert.Contains(t, message, "From: alerts@example.com")
		assert.Contains(t, message, "To: admin@example.com")
		assert.Contains(t, message, "Subject: Payment Failed - ch_100")
		assert.Contains(t, message, "Amount: 25.00 USD")
		assert.Contains(t, message, "Customer: a@b.com")
		assert.Contains(t, message, "Failure Code: card_declined")
		assert.Contains(t, message, "Failed At: 2023-11-14T22:13:20Z")
	})

	t.Run("Non-2xx Response Is An Error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"code":401,"message":"Invalid Credentials"}}`))
		}))
		defer server.Close()

		channel := newTestGmailChannel(server.URL)
		err := channel.Send(context.Background(), testRecord())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 401")
	})

	t.Run("Constructor Uses Google Endpoint", func(t *testing.T) {
		channel := NewGmailChannel(GmailConfig{
			ClientID:     "client",
			ClientSecret: "secret",
			RefreshToken: "refresh",
			Sender:       "alerts@example.com",
			Recipient:    "admin@example.com",
		}, zap.NewNop())

		assert.Equal(t, defaultGmailSendURL, channel.sendURL)
		assert.NotNil(t, channel.httpClient)
	})
}
