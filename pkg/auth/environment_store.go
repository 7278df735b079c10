package auth

import (
	"os"
	"strings"
	"time"

	"followscan/pkg/models"
)

// EnvironmentStore reads credentials from FOLLOWSCAN_<PLATFORM>_<COOKIE>
// variables, e.g. FOLLOWSCAN_INSTAGRAM_SESSIONID. It is read-only.
type EnvironmentStore struct {
	getenv func(string) string
}

// NewEnvironmentStore creates a store over the process environment
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{getenv: os.Getenv}
}

func envName(p models.Platform, suffix string) string {
	return "FOLLOWSCAN_" + strings.ToUpper(string(p)) + "_" + strings.ToUpper(suffix)
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(cred *Credential) error {
	return ErrStoreUnavailable
}

// Retrieve builds the credential of platform from the environment. username
// only has to match when FOLLOWSCAN_<PLATFORM>_USERNAME is set.
func (e *EnvironmentStore) Retrieve(platform models.Platform, username string) (*Credential, error) {
	required := RequiredCookies(platform)
	if len(required) == 0 {
		return nil, ErrCredentialsNotFound
	}

	cookies := make(map[string]string, len(required))
	for _, name := range required {
		value := e.getenv(envName(platform, name))
		if value == "" {
			return nil, ErrCredentialsNotFound
		}
		cookies[name] = value
	}

	envUser := e.getenv(envName(platform, "username"))
	switch {
	case envUser != "" && username != "" && !strings.EqualFold(envUser, username):
		return nil, ErrCredentialsNotFound
	case envUser != "":
		username = envUser
	case username == "":
		username = "default"
	}

	return &Credential{
		Platform:     platform,
		Username:     username,
		Cookies:      cookies,
		UserAgent:    e.getenv(envName(platform, "user_agent")),
		LastModified: time.Time{},
	}, nil
}

// List returns the credentials of every platform configured in the environment
func (e *EnvironmentStore) List() ([]*Credential, error) {
	var creds []*Credential
	for _, p := range models.Platforms() {
		if cred, err := e.Retrieve(p, ""); err == nil {
			creds = append(creds, cred)
		}
	}
	return creds, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(platform models.Platform, username string) error {
	return ErrStoreUnavailable
}

// Exists checks if the environment carries a session for platform
func (e *EnvironmentStore) Exists(platform models.Platform, username string) bool {
	_, err := e.Retrieve(platform, username)
	return err == nil
}
