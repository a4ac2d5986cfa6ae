package session_api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"thirdcoast.systems/pointdeck/cmd/web/internal/realtime"
	"thirdcoast.systems/pointdeck/internal/db"
	"thirdcoast.systems/pointdeck/internal/sessioncode"
)

type fakeSource struct {
	snap *db.Snapshot
	err  error
}

func (f *fakeSource) GetSession(_ context.Context, _ string) (*db.Snapshot, error) {
	return f.snap, f.err
}

func testSnapshot(code string) *db.Snapshot {
	return &db.Snapshot{
		SessionCode:     code,
		Title:           db.DefaultSessionTitle,
		StoryPointScale: db.DefaultStoryPointScale,
		Participants: []db.Participant{
			{Name: "Hana", IsHost: true},
			{Name: "Alice"},
		},
		LastUpdated: time.Now(),
	}
}

// syncRecorder is a ResponseWriter safe to inspect while the handler
// goroutine is still streaming into it.
type syncRecorder struct {
	mu     sync.Mutex
	header http.Header
	status int
	buf    bytes.Buffer
}

func newSyncRecorder() *syncRecorder {
	return &syncRecorder{header: make(http.Header)}
}

func (r *syncRecorder) Header() http.Header { return r.header }

func (r *syncRecorder) WriteHeader(code int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = code
}

func (r *syncRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.Write(p)
}

func (r *syncRecorder) Flush() {}

func (r *syncRecorder) Body() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.String()
}

func (r *syncRecorder) Status() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func eventsContext(e *echo.Echo, ctx context.Context, code, query string, rec http.ResponseWriter) echo.Context {
	req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+code+"/events"+query, nil).WithContext(ctx)
	c := e.NewContext(req, rec)
	c.SetPath("/api/sessions/:code/events")
	c.SetParamNames("code")
	c.SetParamValues(code)
	return c
}

func TestHandleEvents_InvalidCode(t *testing.T) {
	t.Parallel()

	registry := realtime.NewRegistry()
	broadcaster := realtime.NewBroadcaster(registry, &fakeSource{err: db.ErrSessionNotFound})
	h := HandleEvents(registry, broadcaster, time.Minute)

	rec := httptest.NewRecorder()
	c := eventsContext(echo.New(), context.Background(), "nope", "", rec)

	err := h(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, 400, httpErr.Code)
}

func TestHandleEvents_UnknownSession(t *testing.T) {
	t.Parallel()

	registry := realtime.NewRegistry()
	broadcaster := realtime.NewBroadcaster(registry, &fakeSource{err: db.ErrSessionNotFound})
	h := HandleEvents(registry, broadcaster, time.Minute)

	rec := httptest.NewRecorder()
	c := eventsContext(echo.New(), context.Background(), sessioncode.Generate(), "", rec)

	require.NoError(t, h(c))
	require.Equal(t, 404, rec.Code)
	require.False(t, registry.HasSubscribers(c.Param("code")))
}

func TestHandleEvents_SessionFull(t *testing.T) {
	t.Parallel()

	code := sessioncode.Generate()
	registry := realtime.NewRegistry()
	for i := 0; i < realtime.MaxSubscribersPerSession; i++ {
		registry.Subscribe(code)
	}
	broadcaster := realtime.NewBroadcaster(registry, &fakeSource{snap: testSnapshot(code)})
	h := HandleEvents(registry, broadcaster, time.Minute)

	rec := httptest.NewRecorder()
	c := eventsContext(echo.New(), context.Background(), code, "", rec)

	require.NoError(t, h(c))
	require.Equal(t, 503, rec.Code)
}

func TestHandleEvents_StreamsInitialThenBroadcasts(t *testing.T) {
	t.Parallel()

	code := sessioncode.Generate()
	registry := realtime.NewRegistry()
	broadcaster := realtime.NewBroadcaster(registry, &fakeSource{snap: testSnapshot(code)})
	h := HandleEvents(registry, broadcaster, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := newSyncRecorder()
	c := eventsContext(echo.New(), ctx, code, "", rec)

	done := make(chan error, 1)
	go func() { done <- h(c) }()

	require.Eventually(t, func() bool {
		return registry.HasSubscribers(code)
	}, time.Second, 5*time.Millisecond)

	// Initial unicast arrives without any broadcast being scheduled.
	require.Eventually(t, func() bool {
		return strings.Count(rec.Body(), `"type":"session-update"`) == 1
	}, time.Second, 5*time.Millisecond)

	broadcaster.Broadcast(context.Background(), code)

	require.Eventually(t, func() bool {
		return strings.Count(rec.Body(), `"type":"session-update"`) == 2
	}, time.Second, 5*time.Millisecond)

	// Keepalive frames flow while the stream idles.
	require.Eventually(t, func() bool {
		return strings.Contains(rec.Body(), `"type":"heartbeat"`)
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	require.Equal(t, 200, rec.Status())
	require.Equal(t, "text/event-stream", rec.Header().Get(echo.HeaderContentType))
	require.Equal(t, "no", rec.Header().Get("X-Accel-Buffering"))
	require.False(t, registry.HasSubscribers(code))

	for _, line := range strings.Split(strings.TrimSpace(rec.Body()), "\n") {
		if line == "" {
			continue
		}
		require.True(t, strings.HasPrefix(line, "data: "), "unexpected frame line: %q", line)
	}
}

func TestHandleEvents_InitialPaintShowsSelfConnected(t *testing.T) {
	t.Parallel()

	code := sessioncode.Generate()
	registry := realtime.NewRegistry()
	broadcaster := realtime.NewBroadcaster(registry, &fakeSource{snap: testSnapshot(code)})
	h := HandleEvents(registry, broadcaster, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := newSyncRecorder()
	c := eventsContext(echo.New(), ctx, code, "?name=Alice", rec)

	done := make(chan error, 1)
	go func() { done <- h(c) }()

	// The first frame is built after the subscription is tracked, so the
	// connecting participant must already read as connected in it.
	var frame string
	require.Eventually(t, func() bool {
		body := rec.Body()
		idx := strings.Index(body, "\n\n")
		if idx < 0 {
			return false
		}
		frame = strings.TrimPrefix(body[:idx], "data: ")
		return true
	}, time.Second, 5*time.Millisecond)

	var update realtime.SessionUpdate
	require.NoError(t, json.Unmarshal([]byte(frame), &update))
	require.Equal(t, realtime.EventSessionUpdate, update.Type)

	var alice *realtime.ParticipantView
	for i := range update.Participants {
		if update.Participants[i].Name == "Alice" {
			alice = &update.Participants[i]
		}
	}
	require.NotNil(t, alice)
	require.False(t, alice.IsHost)
	require.True(t, alice.Connected)

	cancel()
	require.NoError(t, <-done)
}

func TestHandleEvents_TracksNamedParticipant(t *testing.T) {
	t.Parallel()

	code := sessioncode.Generate()
	registry := realtime.NewRegistry()
	broadcaster := realtime.NewBroadcaster(registry, &fakeSource{snap: testSnapshot(code)})
	h := HandleEvents(registry, broadcaster, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := newSyncRecorder()
	c := eventsContext(echo.New(), ctx, code, "?name=Alice", rec)

	done := make(chan error, 1)
	go func() { done <- h(c) }()

	require.Eventually(t, func() bool {
		return registry.IsConnected(code, "Alice")
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	require.False(t, registry.IsConnected(code, "Alice"))
}
