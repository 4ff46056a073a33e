package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrDecrypt is returned when a ciphertext is malformed, was sealed with a
// different key, or was sealed under a different label.
var ErrDecrypt = errors.New("encryption: cannot decrypt value")

// Encryptor seals and opens values bound to a label.
type Encryptor interface {
	Encrypt(plaintext, label string) (string, error)
	Decrypt(ciphertext, label string) (string, error)
}

// Algorithm names a supported AEAD cipher.
type Algorithm string

const (
	// AlgorithmAESGCM is AES-256-GCM, the default.
	AlgorithmAESGCM Algorithm = "aes-256-gcm"
	// AlgorithmChaCha20 is ChaCha20-Poly1305, fast on CPUs without AES-NI.
	AlgorithmChaCha20 Algorithm = "chacha20-poly1305"
)

// Option configures New.
type Option func(*options)

type options struct {
	algorithm Algorithm
}

// WithAlgorithm selects the cipher. An empty algorithm keeps the default.
func WithAlgorithm(alg Algorithm) Option {
	return func(o *options) {
		if alg != "" {
			o.algorithm = alg
		}
	}
}

// Service is an Encryptor over one AEAD cipher.
type Service struct {
	aead      cipher.AEAD
	algorithm Algorithm
}

var _ Encryptor = (*Service)(nil)

// New creates a Service keyed from passphrase.
func New(passphrase string, opts ...Option) (*Service, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("encryption: empty passphrase")
	}
	o := &options{algorithm: AlgorithmAESGCM}
	for _, opt := range opts {
		opt(o)
	}

	key := sha256.Sum256([]byte(passphrase))

	var (
		aead cipher.AEAD
		err  error
	)
	switch o.algorithm {
	case AlgorithmAESGCM:
		var block cipher.Block
		block, err = aes.NewCipher(key[:])
		if err == nil {
			aead, err = cipher.NewGCM(block)
		}
	case AlgorithmChaCha20:
		aead, err = chacha20poly1305.New(key[:])
	default:
		return nil, fmt.Errorf("encryption: unknown algorithm %q", o.algorithm)
	}
	if err != nil {
		return nil, fmt.Errorf("encryption: create %s: %w", o.algorithm, err)
	}
	return &Service{aead: aead, algorithm: o.algorithm}, nil
}

// Algorithm returns the cipher in use.
func (s *Service) Algorithm() Algorithm { return s.algorithm }

// Encrypt seals plaintext under label and returns nonce||ciphertext in
// standard base64.
func (s *Service) Encrypt(plaintext, label string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), []byte(label))
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt with the same label.
func (s *Service) Decrypt(ciphertext, label string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	n := s.aead.NonceSize()
	if len(data) < n+s.aead.Overhead() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecrypt)
	}
	plaintext, err := s.aead.Open(nil, data[:n], data[n:], []byte(label))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return string(plaintext), nil
}
