package history

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai2b/zena/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.New(nil, "silent")
}

func noSleep(e *Exporter) *Exporter {
	e.sleep = func(time.Duration) {}
	return e
}

func sampleTurn() Turn {
	return Turn{
		ChannelID:   "ch-1",
		ChatID:      "chat-1",
		Persona:     "sofia",
		UserMessage: "хочу маникюр",
		Reply:       "записала вас",
		DialogState: "record",
		At:          time.Now(),
	}
}

func TestExportSuccess(t *testing.T) {
	var gotAuth string
	var gotTurn Turn

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotTurn))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	e := New(srv.URL, "tok-1", 3, 10, testLogger())
	require.NoError(t, e.Export(context.Background(), sampleTurn()))

	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.Equal(t, "ch-1", gotTurn.ChannelID)
	assert.Equal(t, "record", gotTurn.DialogState)
}

func TestExportRetriesOnServerError(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	e := noSleep(New(srv.URL, "", 3, 10, testLogger()))
	require.NoError(t, e.Export(context.Background(), sampleTurn()))
	assert.Equal(t, int32(3), attempts.Load())
}

func TestExportGivesUpAfterMaxRetries(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	e := noSleep(New(srv.URL, "", 2, 10, testLogger()))
	err := e.Export(context.Background(), sampleTurn())
	require.Error(t, err)
	assert.Equal(t, int32(3), attempts.Load()) // initial try + 2 retries
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestExportClientErrorIsPermanent(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "bad payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	e := noSleep(New(srv.URL, "", 5, 10, testLogger()))
	err := e.Export(context.Background(), sampleTurn())
	require.Error(t, err)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestExportRetriesOn429(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	e := noSleep(New(srv.URL, "", 3, 10, testLogger()))
	require.NoError(t, e.Export(context.Background(), sampleTurn()))
	assert.Equal(t, int32(2), attempts.Load())
}

func TestNilExporterIsDisabled(t *testing.T) {
	e := New("", "", 3, 10, testLogger())
	require.Nil(t, e)
	// Export on a nil exporter is a no-op
	require.NoError(t, e.Export(context.Background(), sampleTurn()))
}

func TestExportRespectsContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := noSleep(New(srv.URL, "", 5, 10, testLogger()))
	err := e.Export(ctx, sampleTurn())
	require.Error(t, err)
}
