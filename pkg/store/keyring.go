package store

import (
	"errors"

	"github.com/zalando/go-keyring"
)

// KeyringStore keeps records in the OS keychain. Service scopes the
// records to one identity, mirroring the directory scoping of FileStore.
type KeyringStore struct {
	Service string
}

func NewKeyringStore(service string) *KeyringStore {
	return &KeyringStore{Service: service}
}

func (s *KeyringStore) Get(name string) ([]byte, bool, error) {
	value, err := keyring.Get(s.Service, name)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return []byte(value), true, nil
}

func (s *KeyringStore) Set(name string, value []byte) error {
	return keyring.Set(s.Service, name, string(value))
}

func (s *KeyringStore) Delete(name string) error {
	err := keyring.Delete(s.Service, name)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}
