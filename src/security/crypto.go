package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
)

var (
	ErrNoKey   = errors.New("EXCHANGE_CREDENTIALS_KEY is not set")
	ErrDecrypt = errors.New("decryption failed")
)

// GenerateKey returns a fresh random key, base64 encoded.
func GenerateKey() (string, error) {
	var key [keySize]byte
	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key[:]), nil
}

func ParseKey(encoded string) (*[keySize]byte, error) {
	if encoded == "" {
		return nil, ErrNoKey
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	if len(raw) != keySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", keySize, len(raw))
	}
	var key [keySize]byte
	copy(key[:], raw)
	return &key, nil
}

// EncryptWithKey seals plaintext; the output is base64(nonce || box).
func EncryptWithKey(plaintext string, key *[keySize]byte) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func DecryptWithKey(ciphertext string, key *[keySize]byte) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecrypt, err)
	}
	if len(raw) < nonceSize+secretbox.Overhead {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecrypt)
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, key)
	if !ok {
		return "", fmt.Errorf("%w: wrong key or corrupted value", ErrDecrypt)
	}
	return string(plain), nil
}

// EncryptString encrypts with the key from EXCHANGE_CREDENTIALS_KEY.
func EncryptString(plaintext string) (string, error) {
	key, err := ParseKey(GetConfig().ExchangeCRKey)
	if err != nil {
		return "", err
	}
	return EncryptWithKey(plaintext, key)
}

// DecryptString decrypts with the key from EXCHANGE_CREDENTIALS_KEY.
func DecryptString(ciphertext string) (string, error) {
	key, err := ParseKey(GetConfig().ExchangeCRKey)
	if err != nil {
		return "", err
	}
	return DecryptWithKey(ciphertext, key)
}

// ResolveSecret picks the encrypted value when present, the plain one otherwise.
func ResolveSecret(plain, encrypted string) (string, error) {
	if encrypted == "" {
		return plain, nil
	}
	return DecryptString(encrypted)
}
