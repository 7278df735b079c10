package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"followscan/pkg/config"
	"followscan/pkg/models"

	"github.com/zalando/go-keyring"
)

// indexKey holds the list of stored keys; the keychain API cannot enumerate
const indexKey = "_index"

// KeyringStore implements CredentialStore using the system keychain
type KeyringStore struct {
	service string
}

// NewKeyringStore creates a keyring-backed store, failing when no keychain is reachable
func NewKeyringStore() (*KeyringStore, error) {
	testKey := "test_availability"
	if err := keyring.Set(config.AppName, testKey, "test"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(config.AppName, testKey)

	return &KeyringStore{service: config.AppName}, nil
}

// Store saves the credential to the keychain
func (k *KeyringStore) Store(cred *Credential) error {
	if cred == nil || cred.Username == "" {
		return ErrInvalidCredentials
	}

	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}
	if err := keyring.Set(k.service, cred.Key(), string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return k.updateIndex(cred.Key(), true)
}

// Retrieve gets a credential from the keychain
func (k *KeyringStore) Retrieve(platform models.Platform, username string) (*Credential, error) {
	if username == "" {
		return nil, ErrInvalidCredentials
	}
	return k.get(key(platform, username))
}

func (k *KeyringStore) get(name string) (*Credential, error) {
	data, err := keyring.Get(k.service, name)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrCredentialsNotFound
		}
		return nil, fmt.Errorf("failed to retrieve from keyring: %w", err)
	}

	var cred Credential
	if err := json.Unmarshal([]byte(data), &cred); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credential: %w", err)
	}
	return &cred, nil
}

// List returns the credentials recorded in the index entry
func (k *KeyringStore) List() ([]*Credential, error) {
	keys, err := k.index()
	if err != nil {
		return nil, err
	}
	creds := make([]*Credential, 0, len(keys))
	for _, name := range keys {
		if cred, err := k.get(name); err == nil {
			creds = append(creds, cred)
		}
	}
	return creds, nil
}

// Delete removes a credential from the keychain
func (k *KeyringStore) Delete(platform models.Platform, username string) error {
	if username == "" {
		return ErrInvalidCredentials
	}
	name := key(platform, username)
	if err := keyring.Delete(k.service, name); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrCredentialsNotFound
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return k.updateIndex(name, false)
}

// Exists checks if the keychain holds the credential
func (k *KeyringStore) Exists(platform models.Platform, username string) bool {
	if username == "" {
		return false
	}
	_, err := keyring.Get(k.service, key(platform, username))
	return err == nil
}

func (k *KeyringStore) index() ([]string, error) {
	data, err := keyring.Get(k.service, indexKey)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read keyring index: %w", err)
	}
	if data == "" {
		return nil, nil
	}
	return strings.Split(data, "\n"), nil
}

func (k *KeyringStore) updateIndex(name string, present bool) error {
	keys, err := k.index()
	if err != nil {
		return err
	}
	out := make([]string, 0, len(keys)+1)
	for _, existing := range keys {
		if existing != name {
			out = append(out, existing)
		}
	}
	if present {
		out = append(out, name)
	}
	if len(out) == 0 {
		if err := keyring.Delete(k.service, indexKey); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("failed to clear keyring index: %w", err)
		}
		return nil
	}
	if err := keyring.Set(k.service, indexKey, strings.Join(out, "\n")); err != nil {
		return fmt.Errorf("failed to write keyring index: %w", err)
	}
	return nil
}
