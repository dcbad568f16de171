package facematch_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/rollcall-io/attendance-api/pkg/facematch"
)

func TestClientVerify(t *testing.T) {
	var received facematch.VerifyRequest
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/verify", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": 200, "message": "faces match"})
	}))
	t.Cleanup(server.Close)

	client, err := facematch.New(facematch.Config{
		BaseURL:     server.URL + "/",
		BearerToken: "service-token",
		Timeout:     5 * time.Second,
	}, zerolog.Nop())
	require.NoError(t, err)

	verdict, err := client.Verify(context.Background(), facematch.VerifyRequest{
		SessionID:  7,
		UserID:     42,
		ImageFront: "front",
		ImageLeft:  "left",
		ImageRight: "right",
	})
	require.NoError(t, err)
	require.True(t, verdict.Accepted())
	require.Equal(t, "faces match", verdict.Message)
	require.Equal(t, "Bearer service-token", gotAuth)
	require.Equal(t, uint(7), received.SessionID)
	require.Equal(t, uint(42), received.UserID)
}

func TestClientVerifyRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": 401, "message": "faces do not match"})
	}))
	t.Cleanup(server.Close)

	client, err := facematch.New(facematch.Config{BaseURL: server.URL}, zerolog.Nop())
	require.NoError(t, err)

	verdict, err := client.Verify(context.Background(), facematch.VerifyRequest{})
	require.NoError(t, err)
	require.False(t, verdict.Accepted())
	require.Equal(t, "faces do not match", verdict.Message)
}

func TestClientVerifyEnforcesResponseContract(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing message", `{"status": 200}`},
		{"status is a string", `{"status": "200", "message": "faces match"}`},
		{"not json", `<html>gateway error</html>`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			}))
			t.Cleanup(server.Close)

			client, err := facematch.New(facematch.Config{BaseURL: server.URL}, zerolog.Nop())
			require.NoError(t, err)

			_, err = client.Verify(context.Background(), facematch.VerifyRequest{})
			require.Error(t, err)
		})
	}
}

func TestClientRequiresBaseURL(t *testing.T) {
	_, err := facematch.New(facematch.Config{}, zerolog.Nop())
	require.Error(t, err)
}

func TestClientVerifyTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client, err := facematch.New(facematch.Config{BaseURL: server.URL}, zerolog.Nop())
	require.NoError(t, err)

	_, err = client.Verify(context.Background(), facematch.VerifyRequest{})
	require.Error(t, err)
}
