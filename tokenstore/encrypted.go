package tokenstore

import (
	"context"
	"errors"

	"github.com/kbukum/querykit/encryption"
)

// EncryptedStore seals values before handing them to the wrapped store.
// Each value is bound to its key.
type EncryptedStore struct {
	inner Store
	enc   encryption.Encryptor
}

var _ Store = (*EncryptedStore)(nil)

// NewEncryptedStore wraps inner so values are stored encrypted with enc.
func NewEncryptedStore(inner Store, enc encryption.Encryptor) *EncryptedStore {
	return &EncryptedStore{inner: inner, enc: enc}
}

// Get returns the decrypted value. A value that cannot be decrypted, for
// example one written before encryption was enabled or under another
// passphrase, reads as ErrNotFound.
func (s *EncryptedStore) Get(ctx context.Context, key string) (string, error) {
	sealed, err := s.inner.Get(ctx, key)
	if err != nil {
		return "", err
	}
	v, err := s.enc.Decrypt(sealed, key)
	if errors.Is(err, encryption.ErrDecrypt) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (s *EncryptedStore) Set(ctx context.Context, key, value string) error {
	sealed, err := s.enc.Encrypt(value, key)
	if err != nil {
		return err
	}
	return s.inner.Set(ctx, key, sealed)
}

func (s *EncryptedStore) Clear(ctx context.Context, key string) error {
	return s.inner.Clear(ctx, key)
}
