package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandon/onthisday/internal/config"
	"github.com/brandon/onthisday/internal/progress"
	"github.com/brandon/onthisday/pkg/types"
)

type stubMemories struct {
	mu     sync.Mutex
	groups []types.PhotoGroup
	err    error
	dates  []time.Time
}

func (s *stubMemories) ForDate(ctx context.Context, date time.Time) ([]types.PhotoGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dates = append(s.dates, date)
	if s.err != nil {
		return nil, s.err
	}
	return s.groups, nil
}

func (s *stubMemories) Location() *time.Location {
	return time.UTC
}

type stubDigest struct {
	dates []time.Time
}

func (s *stubDigest) SendWithRetry(ctx context.Context, date time.Time) {
	s.dates = append(s.dates, date)
}

var fixedNow = time.Date(2026, time.October, 17, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, mem *stubMemories) (*Server, *progress.Hub) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	hub := progress.NewHub(8)
	cfg := &config.Config{Port: 8080, CORSOrigins: []string{"http://photos.example"}}

	s, err := New(cfg, mem, hub, logger)
	require.NoError(t, err)
	s.now = func() time.Time { return fixedNow }
	return s, hub
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, &stubMemories{})

	rec := get(t, s.Handler(), "/api/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","service":"onthisday"}`, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestPhotos_ReturnsGroups(t *testing.T) {
	mem := &stubMemories{groups: []types.PhotoGroup{
		{Title: "2022", Photos: []types.Photo{{ID: 2, Time: 1647338400, ThumbnailURL: "http://nas/thumb/2"}}},
		{Title: "2021", Photos: []types.Photo{{ID: 1, Time: 1615802400}}},
	}}
	s, _ := newTestServer(t, mem)

	rec := get(t, s.Handler(), "/api/photos?date=2024-03-15")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Groups []types.PhotoGroup `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Groups, 2)
	assert.Equal(t, "2022", body.Groups[0].Title)
	assert.Equal(t, "http://nas/thumb/2", body.Groups[0].Photos[0].ThumbnailURL)

	require.Len(t, mem.dates, 1)
	assert.Equal(t, time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC), mem.dates[0])
}

func TestPhotos_EmptyGroupsIsArray(t *testing.T) {
	s, _ := newTestServer(t, &stubMemories{groups: []types.PhotoGroup{}})

	rec := get(t, s.Handler(), "/api/photos")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"groups":[]}`, rec.Body.String())
}

func TestPhotos_DefaultsToToday(t *testing.T) {
	for _, target := range []string{"/api/photos", "/api/photos?date=tomorrow", "/api/photos?date=2024-02-30"} {
		mem := &stubMemories{}
		s, _ := newTestServer(t, mem)

		rec := get(t, s.Handler(), target)
		require.Equal(t, http.StatusOK, rec.Code, target)
		require.Len(t, mem.dates, 1)
		assert.Equal(t, time.Date(2026, time.October, 17, 0, 0, 0, 0, time.UTC), mem.dates[0], target)
	}
}

func TestPhotos_FailureHidesDetail(t *testing.T) {
	s, _ := newTestServer(t, &stubMemories{err: errors.New("authentication failed: sid missing")})

	rec := get(t, s.Handler(), "/api/photos?date=2024-03-15")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to fetch photos"}`, rec.Body.String())
}

func TestTestEmail_NotConfigured(t *testing.T) {
	s, _ := newTestServer(t, &stubMemories{})

	rec := get(t, s.Handler(), "/api/test-email")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["error"])
}

func TestTestEmail_StartsDigest(t *testing.T) {
	s, _ := newTestServer(t, &stubMemories{})
	digest := &stubDigest{}
	s.SetDigest(digest)

	rec := get(t, s.Handler(), "/api/test-email?date=2023-12-24")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"message":"Email sending process initiated"}`, rec.Body.String())

	require.Len(t, digest.dates, 1)
	assert.Equal(t, time.Date(2023, time.December, 24, 0, 0, 0, 0, time.UTC), digest.dates[0])
}

func TestHome_RendersPage(t *testing.T) {
	s, _ := newTestServer(t, &stubMemories{})

	rec := get(t, s.Handler(), "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `value="2026-10-17"`)
	assert.Contains(t, rec.Body.String(), "/static/main.js")
}

func TestStatic_ServesAssets(t *testing.T) {
	s, _ := newTestServer(t, &stubMemories{})

	for _, path := range []string{"/static/main.js", "/static/styles.css"} {
		rec := get(t, s.Handler(), path)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.NotEmpty(t, rec.Body.String(), path)
	}
}

func TestCORS(t *testing.T) {
	s, _ := newTestServer(t, &stubMemories{})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://photos.example")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "http://photos.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_NoOriginsConfigured(t *testing.T) {
	logger, _ := test.NewNullLogger()
	mem := &stubMemories{groups: []types.PhotoGroup{
		{Title: "2022", Photos: []types.Photo{{ID: 2, ThumbnailURL: "https://nas/webapi/entry.cgi?_sid=sid-123"}}},
	}}
	s, err := New(&config.Config{Port: 8080}, mem, progress.NewHub(8), logger)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/photos?date=2024-03-15", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/photos", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestProgress_StreamsHubEvents(t *testing.T) {
	s, hub := newTestServer(t, &stubMemories{})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/progress"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.PageFetched(500, 500, 1000)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev progress.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, progress.KindFetch, ev.Kind)
	assert.Equal(t, 1000, ev.Current)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestProgress_RejectsForeignOrigin(t *testing.T) {
	s, _ := newTestServer(t, &stubMemories{})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/progress"
	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	}
}
