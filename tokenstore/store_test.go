package tokenstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kbukum/querykit/encryption"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx, DefaultKey); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Set(ctx, DefaultKey, "tok-1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, err := s.Get(ctx, DefaultKey); err != nil || v != "tok-1" {
		t.Fatalf("Get = %q, %v", v, err)
	}
	if err := s.Set(ctx, DefaultKey, "tok-2"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if v, ok, err := Lookup(ctx, s, DefaultKey); err != nil || !ok || v != "tok-2" {
		t.Fatalf("Lookup = %q, %v, %v", v, ok, err)
	}
	if err := s.Clear(ctx, DefaultKey); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok, err := Lookup(ctx, s, DefaultKey); err != nil || ok {
		t.Fatalf("expected cleared, got ok=%v err=%v", ok, err)
	}
	if err := s.Clear(ctx, "absent"); err != nil {
		t.Errorf("clearing an absent key should succeed: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "storage.json")
	exerciseStore(t, NewFileStore(path))
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "storage.json")

	if err := NewFileStore(path).Set(ctx, DefaultKey, "persisted"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, err := NewFileStore(path).Get(ctx, DefaultKey)
	if err != nil || v != "persisted" {
		t.Fatalf("expected persisted value, got %q, %v", v, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("expected 0600, got %v", info.Mode().Perm())
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(path).Get(context.Background(), DefaultKey); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("expected decode error, got %v", err)
	}
}

func TestEncryptedStore(t *testing.T) {
	enc, err := encryption.New("passphrase")
	if err != nil {
		t.Fatal(err)
	}
	exerciseStore(t, NewEncryptedStore(NewMemoryStore(), enc))
}

func TestEncryptedStore_SealsAtRest(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	enc, _ := encryption.New("passphrase", encryption.WithAlgorithm(encryption.AlgorithmChaCha20))
	s := NewEncryptedStore(inner, enc)

	if err := s.Set(ctx, DefaultKey, "secret-token"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	raw, _ := inner.Get(ctx, DefaultKey)
	if raw == "" || raw == "secret-token" {
		t.Errorf("expected sealed value at rest, got %q", raw)
	}

	other, _ := encryption.New("another passphrase")
	if _, err := NewEncryptedStore(inner, other).Get(ctx, DefaultKey); !errors.Is(err, ErrNotFound) {
		t.Errorf("undecryptable value should read as absent, got %v", err)
	}

	_ = inner.Set(ctx, DefaultKey, "plaintext-from-before")
	if _, ok, err := Lookup(ctx, s, DefaultKey); ok || err != nil {
		t.Errorf("plaintext value should read as absent, got ok=%v err=%v", ok, err)
	}
}
