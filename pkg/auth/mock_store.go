package auth

import (
	"sort"
	"sync"

	"followscan/pkg/models"
)

// MockStore is an in-memory CredentialStore with error injection
type MockStore struct {
	creds map[string]*Credential
	mu    sync.RWMutex

	StoreError    error
	RetrieveError error
	ListError     error
	DeleteError   error
}

// NewMockStore creates an empty mock store
func NewMockStore() *MockStore {
	return &MockStore{creds: make(map[string]*Credential)}
}

// NewMockManager creates a Manager over a single mock store
func NewMockManager() (*Manager, *MockStore) {
	store := NewMockStore()
	return NewManagerWithStores(store), store
}

func clone(c *Credential) *Credential {
	out := *c
	out.Cookies = make(map[string]string, len(c.Cookies))
	for k, v := range c.Cookies {
		out.Cookies[k] = v
	}
	return &out
}

func (m *MockStore) Store(cred *Credential) error {
	if m.StoreError != nil {
		return m.StoreError
	}
	if cred == nil || cred.Username == "" {
		return ErrInvalidCredentials
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds[cred.Key()] = clone(cred)
	return nil
}

func (m *MockStore) Retrieve(platform models.Platform, username string) (*Credential, error) {
	if m.RetrieveError != nil {
		return nil, m.RetrieveError
	}
	if username == "" {
		return nil, ErrInvalidCredentials
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	cred, ok := m.creds[key(platform, username)]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return clone(cred), nil
}

func (m *MockStore) List() ([]*Credential, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Credential, 0, len(m.creds))
	for _, cred := range m.creds {
		out = append(out, clone(cred))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

func (m *MockStore) Delete(platform models.Platform, username string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	if username == "" {
		return ErrInvalidCredentials
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(platform, username)
	if _, ok := m.creds[k]; !ok {
		return ErrCredentialsNotFound
	}
	delete(m.creds, k)
	return nil
}

func (m *MockStore) Exists(platform models.Platform, username string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.creds[key(platform, username)]
	return ok
}

// Count returns the number of stored credentials
func (m *MockStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.creds)
}
