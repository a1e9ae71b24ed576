package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroqClient_GenerateContent(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		var body map[string]interface{}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer groq_key", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"choices": [{"message": {"content": "{\"meals\": []}"}}],
				"usage": {"prompt_tokens": 40, "completion_tokens": 5, "total_tokens": 45}
			}`))
		}))
		defer server.Close()

		client := NewGroqClient("groq_key", ModelExtractor, WithEndpoint(server.URL), WithJSONResponse(), WithTemperature(0.1))
		resp, err := client.GenerateContent(context.Background(), "extract")
		require.NoError(t, err)

		assert.Equal(t, `{"meals": []}`, resp.Content)
		assert.Equal(t, 40, resp.Usage.PromptTokens)
		assert.Equal(t, 5, resp.Usage.CompletionTokens)
		assert.Equal(t, ModelExtractor, resp.Usage.Model)

		assert.Equal(t, ModelExtractor, body["model"])
		assert.Equal(t, 0.1, body["temperature"])
		assert.Contains(t, body, "response_format")
	})

	t.Run("PlainTextHasNoResponseFormat", func(t *testing.T) {
		var body map[string]interface{}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			w.Write([]byte(`{"choices": [{"message": {"content": "## Summary"}}]}`))
		}))
		defer server.Close()

		client := NewGroqClient("groq_key", ModelSummary, WithEndpoint(server.URL))
		resp, err := client.GenerateContent(context.Background(), "summarize")
		require.NoError(t, err)
		assert.Equal(t, "## Summary", resp.Content)
		assert.NotContains(t, body, "response_format")
	})

	t.Run("ServerError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "bad key"}`))
		}))
		defer server.Close()

		client := NewGroqClient("wrong", ModelSummary, WithEndpoint(server.URL))
		_, err := client.GenerateContent(context.Background(), "summarize")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status=401")
	})

	t.Run("NoChoices", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"choices": []}`))
		}))
		defer server.Close()

		client := NewGroqClient("groq_key", ModelSummary, WithEndpoint(server.URL))
		_, err := client.GenerateContent(context.Background(), "summarize")
		assert.EqualError(t, err, "no content generated")
	})
}
