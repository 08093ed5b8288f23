package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	forecastapp "campus-pulse/internal/forecast/application"
)

func TestClient_Generate(t *testing.T) {
	var captured chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  {\"message\":\"ok\"}\n"}}]}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL + "/v1/", APIKey: "sk-test"}, nil)
	require.NoError(t, err)

	text, err := client.Generate(context.Background(), forecastapp.Prompt{System: "sys", User: "usr"})
	require.NoError(t, err)
	assert.Equal(t, `{"message":"ok"}`, text)

	assert.Equal(t, DefaultModel, captured.Model)
	assert.Equal(t, DefaultTemperature, captured.Temperature)
	assert.Equal(t, DefaultMaxTokens, captured.MaxTokens)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, chatMessage{Role: "system", Content: "sys"}, captured.Messages[0])
	assert.Equal(t, chatMessage{Role: "user", Content: "usr"}, captured.Messages[1])
}

func TestClient_GenerateErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer empty":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"choices":[]}`))
		default:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"requests"}}`))
		}
	}))
	defer server.Close()

	limited, err := NewClient(Config{BaseURL: server.URL, APIKey: "limited"}, nil)
	require.NoError(t, err)
	_, err = limited.Generate(context.Background(), forecastapp.Prompt{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")

	empty, err := NewClient(Config{BaseURL: server.URL, APIKey: "empty"}, nil)
	require.NoError(t, err)
	_, err = empty.Generate(context.Background(), forecastapp.Prompt{})
	assert.ErrorIs(t, err, ErrNoChoices)
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(Config{}, nil)
	assert.Error(t, err)
}
