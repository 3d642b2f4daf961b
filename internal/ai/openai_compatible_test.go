package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestOpenAICompatibleClientComplete(t *testing.T) {
	var got struct {
		Model    string        `json:"model"`
		Messages []ChatMessage `json:"messages"`
		Stream   bool          `json:"stream"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Let's explore that."}}]}`))
	}))
	defer srv.Close()

	client := NewOpenAICompatibleClient(ChatConfig{BaseURL: srv.URL + "/v1/", APIKey: "sk-test", Model: "gpt-test"})
	text, err := client.Complete(context.Background(), []ChatMessage{{Role: RoleUser, Content: "Hi"}})
	require.NoError(t, err)

	assert.Equal(t, "Let's explore that.", text)
	assert.Equal(t, "gpt-test", got.Model)
	assert.False(t, got.Stream)
	assert.Equal(t, []ChatMessage{{Role: RoleUser, Content: "Hi"}}, got.Messages)
}

func TestOpenAICompatibleClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    string
		wantErr bool
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{"error":"down"}`, wantErr: true},
		{name: "malformed json", status: http.StatusOK, body: `not json`, wantErr: true},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewOpenAICompatibleClient(ChatConfig{BaseURL: srv.URL, APIKey: "k", Model: "m"})
			text, err := client.Complete(context.Background(), []ChatMessage{{Role: RoleUser, Content: "Hi"}})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, text)
		})
	}
}

func TestToGeminiContents(t *testing.T) {
	system, contents := toGeminiContents([]ChatMessage{
		{Role: RoleSystem, Content: "be kind"},
		{Role: RoleUser, Content: "Hi"},
		{Role: RoleAssistant, Content: "Hello"},
	})

	assert.Equal(t, "be kind", system)
	require.Len(t, contents, 2)
	assert.Equal(t, string(genai.RoleUser), contents[0].Role)
	assert.Equal(t, string(genai.RoleModel), contents[1].Role)
	assert.Equal(t, "Hello", contents[1].Parts[0].Text)
}
