// Package crypto implements the password and key primitives: salt generation,
// PBKDF2 key derivation, password hashing, AES-GCM authenticated encryption
// and DEK wrap/unwrap. It has no storage dependencies so it can be tested in
// isolation. Nothing in this package ever logs key material.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"github.com/and161185/shopvault/internal/errs"
)

// Params.
const (
	SaltLen = 16
	KeyLen  = 32 // 256-bit AES-GCM keys
	ivLen   = 12 // standard GCM nonce size

	// kdfIters matches the original protocol; existing wrapped DEKs are only
	// recoverable with this exact value.
	kdfIters = 100_000
)

// RandBytes returns n cryptographically secure random bytes. Failure means
// the entropy source is unavailable and is not recoverable.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// GenerateSalt returns a fresh random salt. Salts are unique per user and
// never reused, even within one shop.
func GenerateSalt() ([]byte, error) {
	return RandBytes(SaltLen)
}

// DeriveKey derives a KEK from password and salt using PBKDF2-SHA256.
// Deterministic for identical inputs; different salts yield keys whose
// ciphertexts are mutually undecryptable.
func DeriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, kdfIters, KeyLen, sha256.New)
}

// HashPassword returns derived bits for login verification only. It uses the
// same KDF family as DeriveKey but its own independent salt, so the hash is
// never equal to nor derivable into the KEK.
func HashPassword(password string, authSalt []byte) []byte {
	return pbkdf2.Key([]byte(password), authSalt, kdfIters, KeyLen, sha256.New)
}

// VerifyPassword verifies password against the stored hash in constant time.
func VerifyPassword(password string, authSalt, expected []byte) bool {
	got := HashPassword(password, authSalt)
	return subtle.ConstantTimeCompare(got, expected) == 1
}

// GenerateDataKey returns a random 256-bit DEK, independent of any password.
func GenerateDataKey() ([]byte, error) {
	return RandBytes(KeyLen)
}

// Encrypt seals plaintext under key with AES-GCM and a fresh random IV.
// Returns base64(IV || ciphertext).
func Encrypt(plaintext, key []byte) (string, error) {
	aead, err := newGCM(key)
	if err != nil {
		return "", err
	}
	iv, err := RandBytes(ivLen)
	if err != nil {
		return "", err
	}
	out := make([]byte, 0, ivLen+len(plaintext)+aead.Overhead())
	out = append(out, iv...)
	out = append(out, aead.Seal(nil, iv, plaintext, nil)...)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt opens a base64(IV || ciphertext) blob. Any authentication failure
// (wrong key, corrupted or tampered ciphertext) returns errs.ErrIntegrity.
func Decrypt(blob string, key []byte) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrIntegrity, err)
	}
	if len(raw) < ivLen {
		return nil, fmt.Errorf("%w: blob too short", errs.ErrIntegrity)
	}
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	pt, err := aead.Open(nil, raw[:ivLen], raw[ivLen:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrIntegrity, err)
	}
	return pt, nil
}

// WrapDEK encrypts raw DEK bytes under the KEK. Same wire shape as Encrypt,
// applied to key material instead of a JSON document.
func WrapDEK(dek, kek []byte) (string, error) {
	if len(dek) != KeyLen {
		return "", fmt.Errorf("wrap: dek must be %d bytes", KeyLen)
	}
	return Encrypt(dek, kek)
}

// UnwrapDEK recovers the DEK from its wrapped form. A wrong KEK surfaces as
// errs.ErrIntegrity, which login maps to invalid credentials.
func UnwrapDEK(wrapped string, kek []byte) ([]byte, error) {
	dek, err := Decrypt(wrapped, kek)
	if err != nil {
		return nil, err
	}
	if len(dek) != KeyLen {
		return nil, fmt.Errorf("%w: unwrapped key has wrong length", errs.ErrIntegrity)
	}
	return dek, nil
}

// Zero overwrites a byte slice in memory with zeros. Best-effort scrubbing
// for key material on logout.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
