package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"followscan/pkg/collector"
	"followscan/pkg/logger"
	"followscan/pkg/models"
	"followscan/pkg/platform"
	"followscan/pkg/ratelimit"
	"followscan/pkg/reconcile"
	"followscan/pkg/scan"
	"followscan/pkg/service"
	"followscan/pkg/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var noSleep = ratelimit.SleeperFunc(func(ctx context.Context, d time.Duration) error { return ctx.Err() })

type staticDriver struct{}

func (staticDriver) Platform() models.Platform { return models.PlatformInstagram }

func (staticDriver) ValidateLocation(location string) (string, error) { return "me", nil }

func (staticDriver) list(names ...string) collector.Collector {
	users := make([]models.BasicUserInfo, len(names))
	for i, n := range names {
		users[i] = models.BasicUserInfo{ID: n, Username: n}
	}
	return collector.NewCursorCollector(collector.PageFetcherFunc(func(ctx context.Context, cursor string) (collector.Page, error) {
		return collector.Page{Users: users}, nil
	}), 0, noSleep, logger.NewNopLogger())
}

func (d staticDriver) Following(ctx context.Context, username string) (collector.Collector, error) {
	return d.list("a", "b", "c"), nil
}

func (d staticDriver) Followers(ctx context.Context, username string) (collector.Collector, error) {
	return d.list("b"), nil
}

func (staticDriver) Dates() reconcile.DateLookup { return nil }

func (staticDriver) Delay() time.Duration { return 0 }

func (staticDriver) ProfileURL(username string) string { return "https://www.instagram.com/" + username + "/" }

func newTestServer(t *testing.T) (*httptest.Server, storage.Store) {
	t.Helper()
	store := storage.NewMemoryStore(logger.NewNopLogger())
	metrics, err := service.NewMetrics()
	require.NoError(t, err)
	hub := service.New(context.Background(), store, platform.NewRegistry(staticDriver{}), logger.NewNopLogger(),
		service.WithMetrics(metrics), service.WithScanOptions(scan.WithSleeper(noSleep)))

	srv := httptest.NewServer(New(hub, metrics, logger.NewNopLogger()).Handler())
	t.Cleanup(srv.Close)
	return srv, store
}

func do(t *testing.T, method, url, body string) (int, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	status, body := do(t, http.MethodGet, srv.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestPostMessage(t *testing.T) {
	srv, store := newTestServer(t)
	require.NoError(t, store.Save(context.Background(), models.PlatformTwitter, []models.Account{{ID: "1", Username: "x1"}}))

	status, body := do(t, http.MethodPost, srv.URL+"/api/messages", `{"type":"GET_ACCOUNTS"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, body["accounts"], 1)

	status, body = do(t, http.MethodPost, srv.URL+"/api/messages", `{"type":"CLEAR_DATA","platform":"twitter"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])

	status, body = do(t, http.MethodPost, srv.URL+"/api/messages", `{"type":"GET_ACCOUNTS","platform":"twitter"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []interface{}{}, body["accounts"])

	status, body = do(t, http.MethodPost, srv.URL+"/api/messages", `{"type":"PING"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"], "unknown message type")

	status, _ = do(t, http.MethodPost, srv.URL+"/api/messages", `{"type":"START_SCAN"}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestScanStreamsEventsAndPersists(t *testing.T) {
	srv, _ := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events?platform=instagram", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	hello, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hello, ": subscriber "))

	status, body := do(t, http.MethodPost, srv.URL+"/api/scans/instagram", `{"location":"https://www.instagram.com/me/","limit":10}`)
	assert.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, "instagram", body["platform"])

	var events []string
	deadline := time.After(5 * time.Second)
	for len(events) == 0 || events[len(events)-1] != "ACCOUNTS_DATA" {
		lineCh := make(chan string, 1)
		go func() {
			line, _ := reader.ReadString('\n')
			lineCh <- line
		}()
		select {
		case line := <-lineCh:
			if strings.HasPrefix(line, "event: ") {
				events = append(events, strings.TrimSpace(strings.TrimPrefix(line, "event: ")))
			}
		case <-deadline:
			t.Fatalf("timed out, events so far: %v", events)
		}
	}
	assert.Equal(t, "SCAN_PROGRESS", events[0])
	assert.Contains(t, events, "ACCOUNT_FOUND")
	assert.Contains(t, events, "SCAN_COMPLETE")

	status, body = do(t, http.MethodGet, srv.URL+"/api/accounts?platform=ig&filter=not_following_back", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, body["accounts"], 2)

	status, body = do(t, http.MethodGet, srv.URL+"/api/accounts?filter=inactive", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []interface{}{}, body["accounts"])

	status, body = do(t, http.MethodGet, srv.URL+"/api/scans/instagram", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "idle", body["status"])

	status, _ = do(t, http.MethodDelete, srv.URL+"/api/accounts?platform=instagram", "")
	assert.Equal(t, http.StatusOK, status)
	_, body = do(t, http.MethodGet, srv.URL+"/api/accounts", "")
	assert.Equal(t, []interface{}{}, body["accounts"])
}

func TestStopWhenIdle(t *testing.T) {
	srv, _ := newTestServer(t)
	status, body := do(t, http.MethodPost, srv.URL+"/api/scans/threads/stop", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
}

func TestBadParameters(t *testing.T) {
	srv, _ := newTestServer(t)

	status, _ := do(t, http.MethodGet, srv.URL+"/api/accounts?platform=myspace", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, http.MethodGet, srv.URL+"/api/accounts?filter=everyone", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, http.MethodPost, srv.URL+"/api/scans/instagram", `{"scanMode":"turbo"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := do(t, http.MethodPost, srv.URL+"/api/scans/instagram", `{"limit":`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid request", body["error"])

	status, _ = do(t, http.MethodPost, srv.URL+"/api/scans/instagram", `"instagram"`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	do(t, http.MethodGet, srv.URL+"/api/accounts", "")

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `followscan_http_requests_total{method="GET",path="/api/accounts",status="200"} 1`)
}
