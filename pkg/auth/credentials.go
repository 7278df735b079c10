// Package auth keeps the session cookies followscan sends to each platform.
// Credentials are looked up in the system keychain first, then in an
// encrypted file, then in the environment.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"followscan/pkg/config"
	"followscan/pkg/models"
	"followscan/pkg/upstream"
)

// Credential is the browser session of one account on one platform
type Credential struct {
	Platform     models.Platform   `json:"platform"`
	Username     string            `json:"username"`
	Cookies      map[string]string `json:"cookies"`
	UserAgent    string            `json:"user_agent,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// RequiredCookies lists the cookies a platform session cannot work without
func RequiredCookies(p models.Platform) []string {
	switch p {
	case models.PlatformInstagram:
		return []string{"sessionid", "csrftoken"}
	case models.PlatformTwitter:
		return []string{"auth_token", "ct0"}
	case models.PlatformThreads:
		return []string{"sessionid"}
	}
	return nil
}

// Key identifies the credential inside a store
func (c *Credential) Key() string {
	return key(c.Platform, c.Username)
}

func key(p models.Platform, username string) string {
	return string(p) + "_" + strings.ToLower(username)
}

// Validate checks that every required cookie is present
func (c *Credential) Validate() error {
	if c.Username == "" {
		return errors.New("username is required")
	}
	if _, err := models.ParsePlatform(string(c.Platform)); err != nil {
		return err
	}
	for _, name := range RequiredCookies(c.Platform) {
		if c.Cookies[name] == "" {
			return fmt.Errorf("%s cookie is required for %s", name, c.Platform)
		}
	}
	return nil
}

// CookieHeader renders the cookies as a Cookie header value in name order
func (c *Credential) CookieHeader() string {
	names := make([]string, 0, len(c.Cookies))
	for name := range c.Cookies {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+c.Cookies[name])
	}
	return strings.Join(parts, "; ")
}

// Apply installs the session on an upstream client
func (c *Credential) Apply(client *upstream.Client) {
	client.SetHeader("Cookie", c.CookieHeader())
	switch c.Platform {
	case models.PlatformInstagram:
		client.SetHeader("X-CSRFToken", c.Cookies["csrftoken"])
	case models.PlatformTwitter:
		client.SetHeader("X-Csrf-Token", c.Cookies["ct0"])
	}
	if c.UserAgent != "" {
		client.SetHeader("User-Agent", c.UserAgent)
	}
}

// CredentialStore is a place credentials can be kept in
type CredentialStore interface {
	Store(cred *Credential) error
	Retrieve(platform models.Platform, username string) (*Credential, error)
	List() ([]*Credential, error)
	Delete(platform models.Platform, username string) error
	Exists(platform models.Platform, username string) bool
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a manager over the keychain, the encrypted file and the environment
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)
	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a manager that consults stores in order
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves the credential in the first store that accepts it
func (m *Manager) Store(cred *Credential) error {
	if cred == nil {
		return ErrInvalidCredentials
	}
	if err := cred.Validate(); err != nil {
		return err
	}
	cred.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		err := store.Store(cred)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return errors.New("no available credential stores")
}

// Retrieve gets the credential from the first store that has it
func (m *Manager) Retrieve(platform models.Platform, username string) (*Credential, error) {
	for _, store := range m.stores {
		if cred, err := store.Retrieve(platform, username); err == nil && cred != nil {
			return cred, nil
		}
	}
	return nil, fmt.Errorf("%w for %s user %s", ErrCredentialsNotFound, platform, username)
}

// RetrieveDefault returns the most recently saved credential of platform
func (m *Manager) RetrieveDefault(platform models.Platform) (*Credential, error) {
	creds, err := m.List()
	if err != nil {
		return nil, err
	}
	for _, cred := range creds {
		if cred.Platform == platform {
			return cred, nil
		}
	}
	return nil, fmt.Errorf("%w for %s", ErrCredentialsNotFound, platform)
}

// List returns every known credential, newest first. When several stores
// hold the same account the most recently modified copy wins.
func (m *Manager) List() ([]*Credential, error) {
	byKey := make(map[string]*Credential)

	for _, store := range m.stores {
		creds, err := store.List()
		if err != nil {
			continue
		}
		for _, cred := range creds {
			if existing, ok := byKey[cred.Key()]; !ok || cred.LastModified.After(existing.LastModified) {
				byKey[cred.Key()] = cred
			}
		}
	}

	result := make([]*Credential, 0, len(byKey))
	for _, cred := range byKey {
		result = append(result, cred)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].LastModified.Equal(result[j].LastModified) {
			return result[i].LastModified.After(result[j].LastModified)
		}
		return result[i].Key() < result[j].Key()
	})
	return result, nil
}

// Delete removes the credential from every store
func (m *Manager) Delete(platform models.Platform, username string) error {
	var deleted bool
	var failure error

	for _, store := range m.stores {
		err := store.Delete(platform, username)
		switch {
		case err == nil:
			deleted = true
		case errors.Is(err, ErrCredentialsNotFound), errors.Is(err, ErrStoreUnavailable):
		default:
			failure = err
		}
	}

	if deleted {
		return nil
	}
	if failure != nil {
		return fmt.Errorf("failed to delete credentials: %w", failure)
	}
	return fmt.Errorf("%w for %s user %s", ErrCredentialsNotFound, platform, username)
}

func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", config.AppName)
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), config.AppName)
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, config.AppName)
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", config.AppName)
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return configDir, nil
}

// Sanitize returns a copy with every cookie value masked
func Sanitize(cred *Credential) *Credential {
	if cred == nil {
		return nil
	}
	out := *cred
	out.Cookies = make(map[string]string, len(cred.Cookies))
	for name, value := range cred.Cookies {
		out.Cookies[name] = maskString(value)
	}
	return &out
}

// maskString masks all but the first 4 and last 4 characters of a string
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
