package service

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"followscan/pkg/collector"
	"followscan/pkg/logger"
	"followscan/pkg/messages"
	"followscan/pkg/models"
	"followscan/pkg/platform"
	"followscan/pkg/ratelimit"
	"followscan/pkg/reconcile"
	"followscan/pkg/scan"
	"followscan/pkg/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var noSleep = ratelimit.SleeperFunc(func(ctx context.Context, d time.Duration) error { return ctx.Err() })

type listDriver struct {
	following []string
	followers []string
}

func (d *listDriver) Platform() models.Platform { return models.PlatformInstagram }

func (d *listDriver) ValidateLocation(location string) (string, error) { return "me", nil }

func (d *listDriver) collector(names []string) collector.Collector {
	users := make([]models.BasicUserInfo, len(names))
	for i, n := range names {
		users[i] = models.BasicUserInfo{ID: n, Username: n}
	}
	return collector.NewCursorCollector(collector.PageFetcherFunc(func(ctx context.Context, cursor string) (collector.Page, error) {
		return collector.Page{Users: users}, nil
	}), 0, noSleep, logger.NewNopLogger())
}

func (d *listDriver) Following(ctx context.Context, username string) (collector.Collector, error) {
	return d.collector(d.following), nil
}

func (d *listDriver) Followers(ctx context.Context, username string) (collector.Collector, error) {
	return d.collector(d.followers), nil
}

func (d *listDriver) Dates() reconcile.DateLookup { return nil }

func (d *listDriver) Delay() time.Duration { return 0 }

func (d *listDriver) ProfileURL(username string) string { return "https://www.instagram.com/" + username + "/" }

type failingStore struct {
	storage.Store
}

func (failingStore) Save(ctx context.Context, p models.Platform, accounts []models.Account) error {
	return stderrors.New("disk full")
}

// locationDriver reports every location it is asked to validate
type locationDriver struct {
	*listDriver
	locations chan string
}

func (d *locationDriver) ValidateLocation(location string) (string, error) {
	d.locations <- location
	if location == "" {
		return "", stderrors.New("Open instagram.com before scanning")
	}
	return "me", nil
}

func newHub(t *testing.T, store storage.Store, d platform.Driver, opts ...Option) (*Hub, *Metrics) {
	t.Helper()
	m, err := NewMetrics()
	require.NoError(t, err)
	opts = append([]Option{WithMetrics(m), WithScanOptions(scan.WithSleeper(noSleep))}, opts...)
	h := New(context.Background(), store, platform.NewRegistry(d), logger.NewNopLogger(), opts...)
	return h, m
}

// next reads messages until one of type want arrives
func next(t *testing.T, ch <-chan messages.Message, want messages.Type) messages.Message {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case msg := <-ch:
			if msg.Type() == want {
				return msg
			}
		case <-timeout:
			t.Fatalf("no %s message", want)
			return nil
		}
	}
}

func TestStartScanSavesAndBroadcasts(t *testing.T) {
	store := storage.NewMemoryStore(logger.NewNopLogger())
	h, m := newHub(t, store, &listDriver{following: []string{"a", "b", "c"}, followers: []string{"b"}})

	ch, cancel := h.Subscribe(64)
	defer cancel()

	resp := h.Handle(context.Background(), messages.StartScan{Platform: models.PlatformInstagram, Location: "https://www.instagram.com/me/"})
	assert.True(t, resp.Success)

	complete := next(t, ch, messages.TypeScanComplete).(messages.ScanComplete)
	assert.Len(t, complete.Accounts, 2)

	data := next(t, ch, messages.TypeAccountsData).(messages.AccountsData)
	assert.Equal(t, models.PlatformInstagram, data.Platform)
	require.Len(t, data.Accounts, 2)
	assert.Equal(t, "a", data.Accounts[0].Username)

	stored, err := store.GetByPlatform(context.Background(), models.PlatformInstagram)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	last, err := store.LastScanDate(context.Background(), models.PlatformInstagram)
	require.NoError(t, err)
	assert.NotNil(t, last)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rr.Body.String()
	assert.Contains(t, body, `followscan_scan_accounts_found_total{platform="instagram"} 2`)
	assert.Contains(t, body, `followscan_scan_finished_total{platform="instagram",result="completed"} 1`)
	assert.Contains(t, body, `followscan_store_accounts{platform="instagram"} 2`)
}

func TestSaveFailureIsReported(t *testing.T) {
	h, _ := newHub(t, failingStore{storage.NewMemoryStore(logger.NewNopLogger())}, &listDriver{following: []string{"a"}})
	ch, cancel := h.Subscribe(64)
	defer cancel()

	h.Publish(messages.ScanComplete{Platform: models.PlatformInstagram, Accounts: []models.Account{{ID: "a", Username: "a"}}})

	scanErr := next(t, ch, messages.TypeScanError).(messages.ScanError)
	assert.Equal(t, "Failed to save scan results", scanErr.Error)
}

func TestGetAccountsAndClear(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore(logger.NewNopLogger())
	require.NoError(t, store.Save(ctx, models.PlatformInstagram, []models.Account{{ID: "1", Username: "ig"}}))
	require.NoError(t, store.Save(ctx, models.PlatformTwitter, []models.Account{{ID: "2", Username: "tw"}}))
	h, _ := newHub(t, store, &listDriver{})

	resp := h.Handle(ctx, messages.GetAccounts{})
	assert.True(t, resp.HasAccounts)
	assert.Len(t, resp.Accounts, 2)

	resp = h.Handle(ctx, messages.GetAccounts{Platform: models.PlatformTwitter})
	require.Len(t, resp.Accounts, 1)
	assert.Equal(t, "tw", resp.Accounts[0].Username)

	assert.True(t, h.Handle(ctx, messages.ClearData{Platform: models.PlatformTwitter}).Success)
	resp = h.Handle(ctx, messages.GetAccounts{})
	require.Len(t, resp.Accounts, 1)
	assert.Equal(t, "ig", resp.Accounts[0].Username)

	assert.True(t, h.Handle(ctx, messages.ClearData{}).Success)
	resp = h.Handle(ctx, messages.GetAccounts{})
	assert.True(t, resp.HasAccounts)
	assert.Empty(t, resp.Accounts)
}

func TestStopScanWhenIdle(t *testing.T) {
	h, _ := newHub(t, storage.NewMemoryStore(logger.NewNopLogger()), &listDriver{})
	assert.True(t, h.Handle(context.Background(), messages.StopScan{Platform: models.PlatformInstagram}).Success)
}

func TestEventsAreForwarded(t *testing.T) {
	h, _ := newHub(t, storage.NewMemoryStore(logger.NewNopLogger()), &listDriver{})
	ch, cancel := h.Subscribe(4)
	defer cancel()

	resp := h.Handle(context.Background(), messages.ScanError{Platform: models.PlatformThreads, Error: "boom"})
	assert.True(t, resp.Success)
	assert.Equal(t, "boom", next(t, ch, messages.TypeScanError).(messages.ScanError).Error)
}

func TestStartScanResolvesMissingLocation(t *testing.T) {
	configured := "https://www.instagram.com/configured/"
	tests := []struct {
		name     string
		location string
		want     string
	}{
		{"missing location uses resolver", "", configured},
		{"explicit location wins", "https://www.instagram.com/me/", "https://www.instagram.com/me/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &locationDriver{listDriver: &listDriver{following: []string{"a"}}, locations: make(chan string, 1)}
			h, _ := newHub(t, storage.NewMemoryStore(logger.NewNopLogger()), d,
				WithLocationResolver(func(p models.Platform) string {
					if p == models.PlatformInstagram {
						return configured
					}
					return ""
				}))
			ch, cancel := h.Subscribe(64)
			defer cancel()

			resp := h.Handle(context.Background(), messages.StartScan{Platform: models.PlatformInstagram, Location: tt.location})
			assert.True(t, resp.Success)

			select {
			case got := <-d.locations:
				assert.Equal(t, tt.want, got)
			case <-time.After(5 * time.Second):
				t.Fatal("location never validated")
			}
			next(t, ch, messages.TypeScanComplete)
		})
	}
}

func TestStartScanWithoutResolverKeepsEmptyLocation(t *testing.T) {
	d := &locationDriver{listDriver: &listDriver{}, locations: make(chan string, 1)}
	h, _ := newHub(t, storage.NewMemoryStore(logger.NewNopLogger()), d)
	ch, cancel := h.Subscribe(64)
	defer cancel()

	h.Handle(context.Background(), messages.StartScan{Platform: models.PlatformInstagram})
	assert.Equal(t, "", <-d.locations)
	scanErr := next(t, ch, messages.TypeScanError).(messages.ScanError)
	assert.Equal(t, models.PlatformInstagram, scanErr.Platform)
}
