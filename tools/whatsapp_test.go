package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhatsAppClientSendText(t *testing.T) {
	var gotPath string
	var gotAuth string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := WhatsAppClient{
		AccessToken:   "token-123",
		ApiVersion:    "v24.0",
		PhoneNumberID: "555000",
		BaseURL:       srv.URL,
	}
	err := client.SendText(context.Background(), "5511999990000", "Oi Maria!")
	require.NoError(t, err)

	assert.Equal(t, "/v24.0/555000/messages", gotPath)
	assert.Equal(t, "Bearer token-123", gotAuth)
	assert.Equal(t, "whatsapp", gotBody["messaging_product"])
	assert.Equal(t, "5511999990000", gotBody["to"])
}

func TestWhatsAppClientSendTextErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := WhatsAppClient{
		AccessToken:   "bad",
		PhoneNumberID: "555000",
		BaseURL:       srv.URL,
	}
	err := client.SendText(context.Background(), "5511999990000", "Oi!")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=401")
}
