package routing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commute "campus-pulse/internal/commute/domain"
	masterdata "campus-pulse/internal/masterdata/domain"
)

func TestClient_Matrix(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/distancematrix/json", r.URL.Path)
		query := r.URL.Query()
		assert.Equal(t, "3,101", query.Get("origins"))
		assert.Equal(t, "3.1,101.1", query.Get("destinations"))
		assert.Equal(t, "now", query.Get("departure_time"))
		assert.Equal(t, "driving", query.Get("mode"))
		assert.Equal(t, "best_guess", query.Get("traffic_model"))
		assert.Equal(t, "maps-key", query.Get("key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"OK","rows":[{"elements":[{"status":"OK","duration":{"value":600,"text":"10 mins"},"duration_in_traffic":{"value":1200,"text":"20 mins"}}]}]}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "maps-key", 0, nil)
	require.NoError(t, err)

	resp, err := client.Matrix(context.Background(), commute.MatrixRequest{
		Origin:      masterdata.Coordinate{Lat: 3.0, Lng: 101.0},
		Destination: masterdata.Coordinate{Lat: 3.1, Lng: 101.1},
	})
	require.NoError(t, err)
	assert.Equal(t, commute.StatusOK, resp.Status)

	minutes, tier, err := commute.Estimate(resp.Rows[0].Elements[0])
	require.NoError(t, err)
	assert.Equal(t, 20, minutes)
	assert.Equal(t, "severe", string(tier))
}

func TestClient_ProviderErrorStatusIsReturned(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"REQUEST_DENIED","error_message":"The provided API key is invalid.","rows":[]}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "bad-key", 0, nil)
	require.NoError(t, err)

	resp, err := client.Matrix(context.Background(), commute.MatrixRequest{})
	require.NoError(t, err)
	assert.Equal(t, "REQUEST_DENIED", resp.Status)
	assert.Equal(t, "The provided API key is invalid.", resp.ErrorMessage)
}

func TestClient_ProviderErrorBodyOnHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":"INVALID_REQUEST","error_message":"Invalid request. Missing the 'destinations' parameter.","rows":[]}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "maps-key", 0, nil)
	require.NoError(t, err)

	resp, err := client.Matrix(context.Background(), commute.MatrixRequest{})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "INVALID_REQUEST", resp.Status)
	assert.Equal(t, "Invalid request. Missing the 'destinations' parameter.", resp.ErrorMessage)
}

func TestClient_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "maps-key", 0, nil)
	require.NoError(t, err)

	_, err = client.Matrix(context.Background(), commute.MatrixRequest{})
	assert.Error(t, err)
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient("", " ", 0, nil)
	assert.Error(t, err)
}
