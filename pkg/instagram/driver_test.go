package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"followscan/pkg/errors"
	"followscan/pkg/logger"
	"followscan/pkg/models"
	"followscan/pkg/upstream"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noSleep struct{}

func (noSleep) Sleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

type never struct{}

func (never) Stopped() bool { return false }

type mockInstagram struct {
	t           *testing.T
	profiles    map[string]string
	following   [][]string
	followers   [][]string
	rateLimited atomic.Bool
	profileHits atomic.Int32
	cookie      atomic.Value
}

func (m *mockInstagram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.cookie.Store(r.Header.Get("Cookie"))
	if m.rateLimited.Load() {
		w.WriteHeader(http.StatusTooManyRequests)
		return
	}
	switch r.URL.Path {
	case ProfileInfoEndpoint:
		m.profileHits.Add(1)
		assert.Equal(m.t, AppID, r.Header.Get("X-IG-App-ID"))
		username := r.URL.Query().Get("username")
		body, ok := m.profiles[username]
		if !ok {
			w.Write([]byte(`{"data":{"user":null},"status":"ok"}`))
			return
		}
		w.Write([]byte(body))
	case GraphQLEndpoint:
		var vars struct {
			ID    string `json:"id"`
			First int    `json:"first"`
			After string `json:"after"`
		}
		assert.NoError(m.t, json.Unmarshal([]byte(r.URL.Query().Get("variables")), &vars))
		assert.Equal(m.t, "1001", vars.ID)

		pages, edgeName := m.following, "edge_follow"
		if r.URL.Query().Get("query_hash") == FollowersQueryHash {
			pages, edgeName = m.followers, "edge_followed_by"
		}
		idx := 0
		if vars.After != "" {
			fmt.Sscanf(vars.After, "cursor-%d", &idx)
		}
		w.Write([]byte(pageJSON(edgeName, pages, idx)))
	default:
		http.NotFound(w, r)
	}
}

func pageJSON(edgeName string, pages [][]string, idx int) string {
	type node struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		FullName string `json:"full_name"`
	}
	var edges []map[string]node
	for _, u := range pages[idx] {
		edges = append(edges, map[string]node{"node": {ID: "id-" + u, Username: u, FullName: u + " name"}})
	}
	hasNext := idx+1 < len(pages)
	body := map[string]interface{}{
		"data": map[string]interface{}{
			"user": map[string]interface{}{
				edgeName: map[string]interface{}{
					"count":     0,
					"page_info": map[string]interface{}{"has_next_page": hasNext, "end_cursor": fmt.Sprintf("cursor-%d", idx+1)},
					"edges":     edges,
				},
			},
		},
		"status": "ok",
	}
	out, _ := json.Marshal(body)
	return string(out)
}

func profileJSON(id string, takenAt ...int64) string {
	var edges []string
	for _, ts := range takenAt {
		edges = append(edges, fmt.Sprintf(`{"node":{"id":"m","taken_at_timestamp":%d}}`, ts))
	}
	return fmt.Sprintf(`{"data":{"user":{"id":%q,"username":"u","edge_owner_to_timeline_media":{"count":%d,"edges":[%s]}}},"status":"ok"}`,
		id, len(takenAt), joinComma(edges))
}

func joinComma(in []string) string {
	out := ""
	for i, s := range in {
		if i > 0 {
			out += ","
		}
		out += s
	}
	return out
}

func newDriver(t *testing.T, mock *mockInstagram) *Driver {
	t.Helper()
	mock.t = t
	server := httptest.NewServer(mock)
	t.Cleanup(server.Close)
	log := logger.NewNopLogger()
	return NewDriver(Options{
		Client:  upstream.NewClient("instagram", 5*time.Second, log),
		BaseURL: server.URL,
		Delay:   2 * time.Second,
		Sleeper: noSleep{},
		Logger:  log,
	})
}

func TestValidateLocation(t *testing.T) {
	d := NewDriver(Options{Logger: logger.NewNopLogger()})

	tests := []struct {
		location string
		want     string
		wantErr  bool
	}{
		{"https://www.instagram.com/alice/", "alice", false},
		{"https://instagram.com/bob.smith?hl=ja", "bob.smith", false},
		{"https://www.instagram.com/carol/following/", "carol", false},
		{"https://www.instagram.com/", "", true},
		{"https://www.instagram.com/explore/", "", true},
		{"https://www.instagram.com/direct/inbox/", "", true},
		{"https://www.instagram.com/accounts/edit/", "", true},
		{"https://x.com/alice", "", true},
		{"not a url", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			got, err := d.ValidateLocation(tt.location)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFollowingCollectsAllPages(t *testing.T) {
	mock := &mockInstagram{
		profiles:  map[string]string{"me": profileJSON("1001")},
		following: [][]string{{"a", "b"}, {"c"}, {"d", "a"}},
	}
	d := newDriver(t, mock)
	d.client.SetHeader("Cookie", "sessionid=sess; csrftoken=csrf")

	c, err := d.Following(context.Background(), "me")
	require.NoError(t, err)
	users, err := c.Collect(context.Background(), never{}, 0, nil)
	require.NoError(t, err)

	var names []string
	for _, u := range users {
		names = append(names, u.Username)
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, names)
	assert.Equal(t, "id-a", users[0].ID)
	assert.Equal(t, "a name", users[0].DisplayName)
	assert.Equal(t, "sessionid=sess; csrftoken=csrf", mock.cookie.Load())
}

func TestFollowersUseTheirOwnEdge(t *testing.T) {
	mock := &mockInstagram{
		profiles:  map[string]string{"me": profileJSON("1001")},
		followers: [][]string{{"x", "y"}},
	}
	d := newDriver(t, mock)

	c, err := d.Followers(context.Background(), "me")
	require.NoError(t, err)
	users, err := c.Collect(context.Background(), never{}, 0, nil)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	// the user id is cached between following and followers
	_, err = d.Following(context.Background(), "ME")
	require.NoError(t, err)
	assert.Equal(t, int32(1), mock.profileHits.Load())
}

func TestFollowingUnknownUser(t *testing.T) {
	d := newDriver(t, &mockInstagram{profiles: map[string]string{}})

	_, err := d.Following(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeNotFound, errors.TypeOf(err))
}

func TestRateLimitSurfaces(t *testing.T) {
	mock := &mockInstagram{
		profiles:  map[string]string{"me": profileJSON("1001")},
		following: [][]string{{"a"}, {"b"}},
	}
	d := newDriver(t, mock)

	c, err := d.Following(context.Background(), "me")
	require.NoError(t, err)
	mock.rateLimited.Store(true)

	_, err = c.Collect(context.Background(), never{}, 0, nil)
	require.Error(t, err)
	assert.True(t, errors.IsRateLimited(err))
}

func TestLastPostDate(t *testing.T) {
	ts := time.Date(2023, 4, 5, 6, 7, 8, 0, time.UTC)
	mock := &mockInstagram{profiles: map[string]string{
		"poster": profileJSON("1", ts.Unix(), ts.Add(-time.Hour).Unix()),
		"silent": profileJSON("2"),
	}}
	d := newDriver(t, mock)

	got, err := d.Dates().LastPostDate(context.Background(), models.BasicUserInfo{Username: "poster"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, ts, *got)

	got, err = d.LastPostDate(context.Background(), models.BasicUserInfo{Username: "silent"})
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = d.LastPostDate(context.Background(), models.BasicUserInfo{Username: "missing"})
	assert.True(t, errors.IsUnavailable(err))
}

func TestEndpoints(t *testing.T) {
	u, err := url.Parse(GetFollowListURL(BaseURL, FollowingQueryHash, "42", "abc", 500))
	require.NoError(t, err)
	assert.Equal(t, GraphQLEndpoint, u.Path)
	assert.Equal(t, FollowingQueryHash, u.Query().Get("query_hash"))
	assert.JSONEq(t, `{"id":"42","first":50,"after":"abc"}`, u.Query().Get("variables"))

	u, err = url.Parse(GetFollowListURL(BaseURL, FollowersQueryHash, "42", "", 10))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"42","first":10}`, u.Query().Get("variables"))

	assert.Equal(t, BaseURL+ProfileInfoEndpoint+"?username=a.b", GetProfileInfoURL(BaseURL, "a.b"))
	assert.Equal(t, "https://www.instagram.com/alice/", GetUserProfileURL("alice"))
	assert.Equal(t, "", GetUserProfileURL(""))
	assert.Equal(t, "alice", SanitizeUsername(" @alice// "))
	assert.True(t, IsValidUsername("a.b_c1"))
	assert.False(t, IsValidUsername("a-b"))
}
