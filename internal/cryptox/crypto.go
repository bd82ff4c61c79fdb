// Package cryptox encrypts small values persisted on the device, such as
// the cached current user.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	saltSize = 16
	keySize  = 32
)

var (
	ErrEmptySecret     = errors.New("encryption secret is empty")
	ErrMalformedSealed = errors.New("malformed ciphertext")
)

// DeriveKey stretches secret into a 256-bit AES key with argon2id.
func DeriveKey(secret, salt []byte) []byte {
	return argon2.IDKey(secret, salt, 1, 64*1024, 4, keySize)
}

// Seal encrypts plaintext with AES-GCM under key. A fresh random nonce is
// generated for each call and returned alongside the ciphertext.
func Seal(plaintext, key []byte) (nonce, ciphertext []byte, err error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, aesgcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}

	return nonce, aesgcm.Seal(nil, nonce, plaintext, nil), nil
}

// Open reverses Seal.
func Open(nonce, ciphertext, key []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	return aesgcm.Open(nil, nonce, ciphertext, nil)
}

// Wipe zeroes b in place. Used on derived keys once they are no longer needed.
func Wipe(b []byte) {
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

// AESGCM implements controllers.CryptoController. Its output is
// base64(salt | nonce | ciphertext); the key is derived per value.
type AESGCM struct{}

func (AESGCM) Encrypt(plaintext []byte, secret string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	key := DeriveKey([]byte(secret), salt)
	defer Wipe(key)

	nonce, ct, err := Seal(plaintext, key)
	if err != nil {
		return "", fmt.Errorf("seal: %w", err)
	}

	out := make([]byte, 0, len(salt)+len(nonce)+len(ct))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, ct...)
	return base64.StdEncoding.EncodeToString(out), nil
}

func (AESGCM) Decrypt(sealed string, secret string) ([]byte, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSealed, err)
	}

	// GCM's standard nonce size is 12 bytes.
	const nonceSize = 12
	if len(raw) < saltSize+nonceSize {
		return nil, ErrMalformedSealed
	}
	salt, nonce, ct := raw[:saltSize], raw[saltSize:saltSize+nonceSize], raw[saltSize+nonceSize:]

	key := DeriveKey([]byte(secret), salt)
	defer Wipe(key)

	plaintext, err := Open(nonce, ct, key)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	return plaintext, nil
}
