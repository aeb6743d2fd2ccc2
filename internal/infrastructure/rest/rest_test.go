package rest_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coinjoin-tools/cjwallet/internal/infrastructure/rest"
	"github.com/stretchr/testify/require"
)

func TestDo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/json", r.Header.Get("Accept"))

		switch r.URL.Path {
		case "/ok":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"value": 42}`))
		case "/failure":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":"invalid","message":"bad request"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := rest.NewClient(server.URL)

	t.Run("valid", func(t *testing.T) {
		var result struct {
			Value int `json:"value"`
		}
		err := rest.Do(client.R().SetResult(&result), http.MethodGet, "/ok")
		require.NoError(t, err)
		require.Equal(t, 42, result.Value)
	})

	t.Run("invalid", func(t *testing.T) {
		tests := []struct {
			path     string
			status   int
			body     rest.ErrorResponse
			notFound bool
		}{
			{"/failure", http.StatusBadRequest, rest.ErrorResponse{Code: "invalid", Message: "bad request"}, false},
			{"/unknown", http.StatusNotFound, rest.ErrorResponse{}, true},
		}
		for _, tt := range tests {
			t.Run(tt.path, func(t *testing.T) {
				err := rest.Do(client.R(), http.MethodGet, tt.path)
				require.Error(t, err)

				var apiErr *rest.Error
				require.ErrorAs(t, err, &apiErr)
				require.Equal(t, tt.status, apiErr.Status)
				require.Equal(t, tt.body, apiErr.Body)
				require.Equal(t, tt.notFound, rest.IsNotFound(err))
				require.Equal(t, tt.notFound, rest.IsNotFound(fmt.Errorf("wrapped: %w", err)))
			})
		}
	})

	t.Run("unreachable", func(t *testing.T) {
		err := rest.Do(rest.NewClient("http://127.0.0.1:1").R(), http.MethodGet, "/ok")
		require.Error(t, err)
		require.False(t, rest.IsNotFound(err))
	})
}
