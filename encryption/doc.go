// Package encryption seals small values, such as the stored bearer token,
// with an AEAD cipher keyed from a passphrase.
//
// The passphrase is hashed with SHA-256 into a 256-bit key. Every value is
// sealed with a fresh random nonce and bound to a label (the storage key it
// is kept under), so a ciphertext copied to another key fails to open.
//
//	enc, err := encryption.New(passphrase, encryption.WithAlgorithm(encryption.AlgorithmChaCha20))
//	sealed, err := enc.Encrypt(token, "auth_token")
//	token, err = enc.Decrypt(sealed, "auth_token")
package encryption
