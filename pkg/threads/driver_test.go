package threads

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"followscan/pkg/errors"
	"followscan/pkg/logger"
	"followscan/pkg/models"
	"followscan/pkg/upstream"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noSleep struct{}

func (noSleep) Sleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

type never struct{}

func (never) Stopped() bool { return false }

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func doc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return d
}

func TestValidateLocation(t *testing.T) {
	d := NewDriver(Options{Logger: logger.NewNopLogger()})

	got, err := d.ValidateLocation("https://www.threads.net/@me")
	require.NoError(t, err)
	assert.Equal(t, "me", got)

	got, err = d.ValidateLocation("https://threads.com/@me/replies")
	require.NoError(t, err)
	assert.Equal(t, "me", got)

	for _, bad := range []string{"https://www.threads.net/", "https://www.threads.net/search", "https://www.threads.net/@"} {
		_, err := d.ValidateLocation(bad)
		require.Error(t, err, bad)
		assert.Contains(t, err.Error(), "Could not determine your username")
	}

	_, err = d.ValidateLocation("https://x.com/@me")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Contains(t, err.Error(), "Open threads.net before scanning")
}

func TestParseProfileLinks(t *testing.T) {
	page := doc(t, `<div role="listitem">
		<a href="/@alice"><img src="https://scontent.cdninstagram.com/alice.jpg"></a>
		<span>@alice</span><span>alice</span><span>Alice Liddell</span>
	</div>
	<nav><a href="/@me">Profile</a></nav>
	<div role="listitem"><a href="/@bob?hl=ja">bob</a><span>bob</span></div>
	<div role="listitem"><a href="/@alice">again</a></div>`)

	got := ParseProfileLinks(page)
	require.Len(t, got, 2)

	assert.Equal(t, models.BasicUserInfo{
		ID:          "alice",
		Username:    "alice",
		DisplayName: "Alice Liddell",
		AvatarURL:   "https://scontent.cdninstagram.com/alice.jpg",
	}, got[0])
	assert.Equal(t, "bob", got[1].Username)
	assert.Equal(t, "bob", got[1].DisplayName)
	assert.Nil(t, got[1].FollowsYou)
}

func TestParseLastPostDate(t *testing.T) {
	tests := []struct {
		name string
		html string
		want *time.Time
	}{
		{
			name: "time element",
			html: `<article><time datetime="2024-03-01T10:00:00.000Z">3/1</time></article><time datetime="2020-01-01T00:00:00Z"></time>`,
			want: ptr(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)),
		},
		{
			name: "japanese age",
			html: `<div>投稿 3日前</div>`,
			want: ptr(now.Add(-3 * 24 * time.Hour)),
		},
		{
			name: "english age",
			html: `<div>Posted 2 weeks ago</div>`,
			want: ptr(now.Add(-14 * 24 * time.Hour)),
		},
		{
			name: "unparseable datetime falls back to text",
			html: `<time datetime="soon"></time><span>5 hours ago</span>`,
			want: ptr(now.Add(-5 * time.Hour)),
		},
		{
			name: "no posts",
			html: `<div>No threads yet</div>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseLastPostDate(doc(t, tt.html), now)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "want %v got %v", tt.want, got)
		})
	}
}

func ptr(t time.Time) *time.Time { return &t }

func TestFollowingFromSnapshots(t *testing.T) {
	d := NewDriver(Options{
		SnapshotDir: filepath.Join("testdata", "following"),
		Sleeper:     noSleep{},
		Logger:      logger.NewNopLogger(),
	})

	c, err := d.Following(context.Background(), "me")
	require.NoError(t, err)
	got, err := c.Collect(context.Background(), never{}, 100, nil)
	require.NoError(t, err)

	var names []string
	for _, u := range got {
		names = append(names, u.Username)
	}
	assert.Equal(t, []string{"alice", "bob", "carol"}, names)
}

func TestLastPostDateFetchesProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/@alice":
			w.Write([]byte(`<html><body><time datetime="2025-05-30T00:00:00Z"></time></body></html>`))
		case "/@limited":
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := upstream.NewClient(name, 5*time.Second, logger.NewNopLogger())
	d := NewDriver(Options{Client: client, BaseURL: server.URL, Logger: logger.NewNopLogger(), Now: func() time.Time { return now }})
	lookup := d.Dates()
	require.NotNil(t, lookup)

	got, err := lookup.LastPostDate(context.Background(), models.BasicUserInfo{Username: "alice"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2025, got.Year())

	_, err = lookup.LastPostDate(context.Background(), models.BasicUserInfo{Username: "limited"})
	require.Error(t, err)
	assert.True(t, errors.IsRateLimited(err))

	_, err = lookup.LastPostDate(context.Background(), models.BasicUserInfo{Username: "ghost"})
	require.Error(t, err)
	assert.False(t, errors.IsRateLimited(err))
}

func TestNoFollowerSource(t *testing.T) {
	d := NewDriver(Options{Logger: logger.NewNopLogger()})
	c, err := d.Followers(context.Background(), "me")
	assert.NoError(t, err)
	assert.Nil(t, c)
	assert.Equal(t, "https://www.threads.net/@bob", d.ProfileURL("bob"))
	assert.Equal(t, models.PlatformThreads, d.Platform())
}
