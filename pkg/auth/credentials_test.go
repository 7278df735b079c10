package auth

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"followscan/pkg/logger"
	"followscan/pkg/models"
	"followscan/pkg/upstream"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func igCredential(username string) *Credential {
	return &Credential{
		Platform: models.PlatformInstagram,
		Username: username,
		Cookies: map[string]string{
			"sessionid": "1234567890%3Aabcdefghij",
			"csrftoken": "YTQHujAgMhyveLvvuwCfw9CPI8ROAHoy",
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cred    Credential
		wantErr bool
	}{
		{"instagram complete", *igCredential("me"), false},
		{"missing username", Credential{Platform: models.PlatformThreads, Cookies: map[string]string{"sessionid": "x"}}, true},
		{"missing csrf", Credential{Platform: models.PlatformInstagram, Username: "me", Cookies: map[string]string{"sessionid": "x"}}, true},
		{"twitter", Credential{Platform: models.PlatformTwitter, Username: "me", Cookies: map[string]string{"auth_token": "a", "ct0": "b"}}, false},
		{"unknown platform", Credential{Platform: "myspace", Username: "me"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cred.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCookieHeaderAndApply(t *testing.T) {
	cred := &Credential{
		Platform:  models.PlatformTwitter,
		Username:  "me",
		Cookies:   map[string]string{"ct0": "csrf", "auth_token": "tok"},
		UserAgent: "TestAgent/1.0",
	}
	assert.Equal(t, "auth_token=tok; ct0=csrf", cred.CookieHeader())

	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte("{}"))
	}))
	defer srv.Close()

	client := upstream.NewClient(string(models.PlatformTwitter), time.Second, logger.NewNopLogger())
	cred.Apply(client)
	var out map[string]interface{}
	require.NoError(t, client.GetJSON(context.Background(), srv.URL, &out))

	assert.Equal(t, "auth_token=tok; ct0=csrf", got.Get("Cookie"))
	assert.Equal(t, "csrf", got.Get("X-Csrf-Token"))
	assert.Equal(t, "TestAgent/1.0", got.Get("User-Agent"))
}

func TestManager(t *testing.T) {
	manager, mock := NewMockManager()

	require.NoError(t, manager.Store(igCredential("testuser")))
	assert.Equal(t, 1, mock.Count())

	got, err := manager.Retrieve(models.PlatformInstagram, "TestUser")
	require.NoError(t, err)
	assert.Equal(t, "testuser", got.Username)
	assert.False(t, got.LastModified.IsZero())

	_, err = manager.Retrieve(models.PlatformThreads, "testuser")
	assert.True(t, errors.Is(err, ErrCredentialsNotFound))

	def, err := manager.RetrieveDefault(models.PlatformInstagram)
	require.NoError(t, err)
	assert.Equal(t, "testuser", def.Username)

	require.NoError(t, manager.Delete(models.PlatformInstagram, "testuser"))
	assert.Equal(t, 0, mock.Count())
	assert.True(t, errors.Is(manager.Delete(models.PlatformInstagram, "testuser"), ErrCredentialsNotFound))

	assert.Error(t, manager.Store(&Credential{Platform: models.PlatformInstagram, Username: "x"}))
}

func TestManagerFallsBack(t *testing.T) {
	broken := NewMockStore()
	broken.StoreError = errors.New("keychain locked")
	working := NewMockStore()
	manager := NewManagerWithStores(broken, working, NewEnvironmentStore())

	require.NoError(t, manager.Store(igCredential("me")))
	assert.Equal(t, 0, broken.Count())
	assert.Equal(t, 1, working.Count())

	require.NoError(t, manager.Delete(models.PlatformInstagram, "me"))
}

func TestManagerListPrefersNewest(t *testing.T) {
	older, newer := NewMockStore(), NewMockStore()
	stale := igCredential("me")
	stale.LastModified = time.Now().Add(-time.Hour)
	stale.Cookies["sessionid"] = "stale-session-value"
	fresh := igCredential("me")
	fresh.LastModified = time.Now()
	require.NoError(t, older.Store(stale))
	require.NoError(t, newer.Store(fresh))

	creds, err := NewManagerWithStores(older, newer).List()
	require.NoError(t, err)
	require.Len(t, creds, 1)
	assert.Equal(t, fresh.Cookies["sessionid"], creds[0].Cookies["sessionid"])
}

func TestEncryptedFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.enc")
	store, err := NewEncryptedFileStoreWithPassphrase(path, "correct horse")
	require.NoError(t, err)

	assert.False(t, store.Exists(models.PlatformInstagram, "me"))
	require.NoError(t, store.Store(igCredential("me")))
	require.NoError(t, store.Store(&Credential{Platform: models.PlatformThreads, Username: "me", Cookies: map[string]string{"sessionid": "t"}}))

	reopened, err := NewEncryptedFileStoreWithPassphrase(path, "correct horse")
	require.NoError(t, err)
	got, err := reopened.Retrieve(models.PlatformInstagram, "me")
	require.NoError(t, err)
	assert.Equal(t, igCredential("me").Cookies, got.Cookies)

	creds, err := reopened.List()
	require.NoError(t, err)
	require.Len(t, creds, 2)
	assert.Equal(t, models.PlatformInstagram, creds[0].Platform)

	wrong, err := NewEncryptedFileStoreWithPassphrase(path, "wrong")
	require.NoError(t, err)
	_, err = wrong.Retrieve(models.PlatformInstagram, "me")
	assert.Error(t, err)

	require.NoError(t, reopened.Delete(models.PlatformInstagram, "me"))
	require.NoError(t, reopened.Delete(models.PlatformThreads, "me"))
	assert.NoFileExists(t, path)
	assert.True(t, errors.Is(reopened.Delete(models.PlatformThreads, "me"), ErrCredentialsNotFound))
}

func TestEncryptedFileStoreGeneratesPassphrase(t *testing.T) {
	t.Setenv("FOLLOWSCAN_PASSPHRASE", "")
	dir := t.TempDir()
	store, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, ".passphrase"))
	require.NoError(t, store.Store(igCredential("me")))

	again, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	require.NoError(t, err)
	assert.True(t, again.Exists(models.PlatformInstagram, "me"))
}

func TestEnvironmentStore(t *testing.T) {
	env := map[string]string{
		"FOLLOWSCAN_INSTAGRAM_SESSIONID": "sid",
		"FOLLOWSCAN_INSTAGRAM_CSRFTOKEN": "csrf",
		"FOLLOWSCAN_THREADS_SESSIONID":   "tsid",
		"FOLLOWSCAN_THREADS_USERNAME":    "threader",
	}
	store := &EnvironmentStore{getenv: func(k string) string { return env[k] }}

	cred, err := store.Retrieve(models.PlatformInstagram, "")
	require.NoError(t, err)
	assert.Equal(t, "default", cred.Username)
	assert.Equal(t, "sid", cred.Cookies["sessionid"])

	cred, err = store.Retrieve(models.PlatformThreads, "")
	require.NoError(t, err)
	assert.Equal(t, "threader", cred.Username)
	_, err = store.Retrieve(models.PlatformThreads, "someone_else")
	assert.Error(t, err)

	_, err = store.Retrieve(models.PlatformTwitter, "")
	assert.True(t, errors.Is(err, ErrCredentialsNotFound))

	creds, err := store.List()
	require.NoError(t, err)
	assert.Len(t, creds, 2)

	assert.Equal(t, ErrStoreUnavailable, store.Store(igCredential("me")))
	assert.Equal(t, ErrStoreUnavailable, store.Delete(models.PlatformInstagram, "me"))
}

func TestSanitize(t *testing.T) {
	cred := igCredential("me")
	masked := Sanitize(cred)
	assert.Equal(t, "1234...ghij", masked.Cookies["sessionid"])
	assert.Equal(t, "me", masked.Username)
	assert.Equal(t, "1234567890%3Aabcdefghij", cred.Cookies["sessionid"], "original untouched")
	assert.Nil(t, Sanitize(nil))
	assert.Equal(t, "********", maskString("short"))
}

func TestShowCookieGuide(t *testing.T) {
	var buf bytes.Buffer
	ShowCookieGuide(&buf, models.PlatformTwitter)
	assert.Contains(t, buf.String(), "https://x.com")
	assert.Contains(t, buf.String(), "auth_token")

	buf.Reset()
	ShowQuickGuide(&buf, models.PlatformInstagram)
	assert.Contains(t, buf.String(), "sessionid, csrftoken")
}
