package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/TourGo/internal/rating"
	"github.com/utafrali/TourGo/internal/service"
	apperrors "github.com/utafrali/TourGo/pkg/errors"
	"github.com/utafrali/TourGo/pkg/httputil"
)

type fakeViews map[string]*service.SessionView

func (f fakeViews) GetSession(_ context.Context, id string) (*service.SessionView, error) {
	if v, ok := f[id]; ok {
		return v, nil
	}
	return nil, apperrors.NotFound("session", id)
}

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	views := fakeViews{
		"sess-1": {ID: "sess-1", TourID: "tour-1", Summary: rating.Summary{TotalRating: 8, AverageRating: 4, ReviewCount: 2}},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := NewHub([]string{"*"}, logger)

	r := chi.NewRouter()
	r.Get("/sessions/{sessionId}/ws", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionId")
		view, err := views.GetSession(r.Context(), id)
		if err != nil {
			httputil.WriteError(w, r, err, logger)
			return
		}
		hub.Serve(w, r, id, view)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sessions/" + sessionID + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readView(t *testing.T, conn *websocket.Conn) service.SessionView {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var v service.SessionView
	require.NoError(t, json.Unmarshal(msg, &v))
	return v
}

func TestServe_SendsInitialView(t *testing.T) {
	_, srv := newTestHub(t)
	conn := dial(t, srv, "sess-1")

	v := readView(t, conn)
	assert.Equal(t, "sess-1", v.ID)
	assert.Equal(t, 8, v.Summary.TotalRating)
}

func TestPublish_ReachesEverySubscriber(t *testing.T) {
	hub, srv := newTestHub(t)
	a := dial(t, srv, "sess-1")
	b := dial(t, srv, "sess-1")
	readView(t, a)
	readView(t, b)

	require.Eventually(t, func() bool { return hub.Subscribers("sess-1") == 2 }, time.Second, 10*time.Millisecond)

	hub.Publish("sess-1", &service.SessionView{ID: "sess-1", Summary: rating.Summary{TotalRating: 13, ReviewCount: 3}})

	assert.Equal(t, 13, readView(t, a).Summary.TotalRating)
	assert.Equal(t, 13, readView(t, b).Summary.TotalRating)
}

func TestPublish_OtherSessionNotDelivered(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, srv, "sess-1")
	readView(t, conn)

	hub.Publish("sess-2", &service.SessionView{ID: "sess-2"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestServe_UnknownSession(t *testing.T) {
	_, srv := newTestHub(t)

	resp, err := http.Get(srv.URL + "/sessions/missing/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServe_DisconnectRemovesSubscriber(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, srv, "sess-1")
	readView(t, conn)
	require.Eventually(t, func() bool { return hub.Subscribers("sess-1") == 1 }, time.Second, 10*time.Millisecond)

	_ = conn.Close()

	assert.Eventually(t, func() bool { return hub.Subscribers("sess-1") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://tours.example.com"})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.True(t, check(r))

	r.Header.Set("Origin", "https://tours.example.com")
	assert.True(t, check(r))

	r.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(r))
}
