package attrs

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// Sealing errors.
var (
	ErrNoSealKey       = errors.New("attrs: no seal key configured")
	ErrSealedDecrypt   = errors.New("attrs: decryption failed (authentication error)")
	ErrSealedShortData = errors.New("attrs: sealed value too short")
)

const pbkdf2Iterations = 210_000 // OWASP 2023 minimum for PBKDF2-HMAC-SHA256

// Sealer derives an AES-256-GCM key from a passphrase via PBKDF2 and
// seals/opens individual attribute string values. It exists so a property
// can be marked sensitive (e.g. a credential stashed in a node's attribute
// set) and stored encrypted at rest, without requiring the structural
// matrix data to know anything about encryption.
//
// This is a single-key primitive: one key, derived once from a passphrase
// and salt, seals and opens every value. Key rotation is out of scope; see
// DESIGN.md.
type Sealer struct {
	key [32]byte
}

// NewSealer derives a Sealer's key from passphrase and salt using PBKDF2-HMAC-SHA256.
func NewSealer(passphrase, salt []byte) *Sealer {
	var s Sealer
	copy(s.key[:], pbkdf2.Key(passphrase, salt, pbkdf2Iterations, 32, sha256.New))
	return &s
}

// Seal encrypts plaintext, returning nonce||ciphertext.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(s.key[:])
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a value produced by Seal.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	block, err := aes.NewCipher(s.key[:])
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, ErrSealedShortData
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrSealedDecrypt
	}
	return plaintext, nil
}

// SealString is a convenience wrapper that seals a Value of KindString,
// returning the raw nonce||ciphertext bytes; the caller wraps them in a
// Value of its own to store under a "sealed:"-prefixed attribute name.
func (s *Sealer) SealString(v Value) ([]byte, error) {
	if v.Kind != KindString {
		return nil, errors.New("attrs: SealString requires a KindString value")
	}
	return s.Seal([]byte(v.Str))
}

// OpenString is the inverse of SealString.
func (s *Sealer) OpenString(sealed []byte) (Value, error) {
	plain, err := s.Open(sealed)
	if err != nil {
		return NullValue, err
	}
	return StringValue(string(plain)), nil
}
