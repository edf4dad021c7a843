package speculos_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxen-io/ledger-crawler/internal/speculos"
)

func TestCurrentScreen(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /events", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("currentscreenonly"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"events":[{"text":"Confirm Fee","x":10,"y":3},{"text":"0.0123","x":40,"y":17}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := speculos.New(srv.URL, nil)
	require.NoError(t, err)

	lines, err := c.CurrentScreen(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Confirm Fee", "0.0123"}, lines)
}

func TestPush(t *testing.T) {
	var got []speculos.ButtonRequest
	var paths []string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /button/{which}", func(w http.ResponseWriter, r *http.Request) {
		var req speculos.ButtonRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		got = append(got, req)
		paths = append(paths, r.PathValue("which"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := speculos.New(srv.URL, nil)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Push(ctx, speculos.Right, "", 0))
	require.NoError(t, c.Push(ctx, speculos.Both, "press", 100*time.Millisecond))

	assert.Equal(t, []string{"right", "both"}, paths)
	assert.Equal(t, speculos.ButtonRequest{Action: "press-and-release"}, got[0])
	assert.Equal(t, speculos.ButtonRequest{Action: "press", Delay: 0.1}, got[1])
}

func TestPushUnknownButton(t *testing.T) {
	c, err := speculos.New("http://127.0.0.1:1", nil)
	require.NoError(t, err)

	err = c.Push(context.Background(), "middle", "", 0)
	var apiErr *speculos.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "button", apiErr.Op)
}

func TestStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "emulator exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := speculos.New(srv.URL, nil)
	require.NoError(t, err)

	_, err = c.CurrentScreen(context.Background())
	var apiErr *speculos.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "events", apiErr.Op)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Contains(t, apiErr.Error(), "emulator exploded")
}

func TestUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := speculos.New(url, &http.Client{Timeout: time.Second})
	require.NoError(t, err)

	_, err = c.CurrentScreen(context.Background())
	var apiErr *speculos.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Zero(t, apiErr.Status)
}

func TestNewRejectsBadScheme(t *testing.T) {
	_, err := speculos.New("ftp://127.0.0.1:5000", nil)
	require.Error(t, err)
}

func TestWaitReadyTimeout(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c, err := speculos.New(srv.URL, nil)
	require.NoError(t, err)

	err = c.WaitReady(context.Background(), 120*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not ready")
}
