package encryption

import (
	"errors"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	for _, alg := range []Algorithm{AlgorithmAESGCM, AlgorithmChaCha20} {
		t.Run(string(alg), func(t *testing.T) {
			svc, err := New("my-secret-key", WithAlgorithm(alg))
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			if svc.Algorithm() != alg {
				t.Errorf("expected %s, got %s", alg, svc.Algorithm())
			}

			for _, plaintext := range []string{"", "eyJhbGciOiJIUzI1NiJ9.e30.sig", "こんにちは世界"} {
				sealed, err := svc.Encrypt(plaintext, "auth_token")
				if err != nil {
					t.Fatalf("Encrypt failed: %v", err)
				}
				if plaintext != "" && sealed == plaintext {
					t.Error("sealed value should differ from plaintext")
				}
				got, err := svc.Decrypt(sealed, "auth_token")
				if err != nil {
					t.Fatalf("Decrypt failed: %v", err)
				}
				if got != plaintext {
					t.Errorf("expected %q, got %q", plaintext, got)
				}
			}
		})
	}
}

func TestEncrypt_FreshNonce(t *testing.T) {
	svc, _ := New("k")
	a, _ := svc.Encrypt("same", "l")
	b, _ := svc.Encrypt("same", "l")
	if a == b {
		t.Error("two encryptions of the same value should differ")
	}
}

func TestDecrypt_Failures(t *testing.T) {
	svc, _ := New("right")
	other, _ := New("wrong")
	sealed, _ := svc.Encrypt("token", "auth_token")

	tests := []struct {
		name  string
		svc   *Service
		value string
		label string
	}{
		{"wrong label", svc, sealed, "other_key"},
		{"wrong key", other, sealed, "auth_token"},
		{"not base64", svc, "%%%", "auth_token"},
		{"too short", svc, "AAAA", "auth_token"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.svc.Decrypt(tc.value, tc.label); !errors.Is(err, ErrDecrypt) {
				t.Errorf("expected ErrDecrypt, got %v", err)
			}
		})
	}
}

func TestNew_Invalid(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("expected error for empty passphrase")
	}
	if _, err := New("k", WithAlgorithm("rot13")); err == nil {
		t.Error("expected error for unknown algorithm")
	}
}
