// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

// Package secrets seals appliance credentials for storage at rest.
//
// Target passwords are the only long-lived secret Checkpoint holds; they are
// sealed with AES-256-GCM before they reach the metadata store and opened
// only at the moment a session is established. The sealing key is derived
// from the operator-supplied secret via HKDF-SHA256, so rotating the secret
// invalidates every stored credential at once.
//
// Ciphertext format: base64(nonce || ciphertext || tag).
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// keyDerivationSalt binds derived keys to credential sealing; other
	// future uses of the operator secret must pick their own salt.
	keyDerivationSalt = "checkpoint-target-credentials"

	// keyDerivationInfo versions the derivation so the scheme can evolve.
	keyDerivationInfo = "credential-sealing-v1"

	// aesKeySize is the size of the AES key in bytes (256 bits).
	aesKeySize = 32

	// gcmNonceSize is the size of the GCM nonce in bytes.
	gcmNonceSize = 12
)

var (
	// ErrEmptySecret is returned when an empty sealing secret is provided.
	ErrEmptySecret = errors.New("sealing secret cannot be empty")

	// ErrEmptyPlaintext is returned when attempting to seal empty data.
	ErrEmptyPlaintext = errors.New("plaintext cannot be empty")

	// ErrEmptyCiphertext is returned when attempting to open empty data.
	ErrEmptyCiphertext = errors.New("ciphertext cannot be empty")

	// ErrOpenFailed is returned when opening fails (tampered or foreign data).
	ErrOpenFailed = errors.New("open failed: invalid ciphertext or authentication tag")

	// ErrInvalidCiphertext is returned when the ciphertext format is invalid.
	ErrInvalidCiphertext = errors.New("invalid ciphertext format")

	// ErrCiphertextTooShort is returned when the ciphertext is shorter than the minimum length.
	ErrCiphertextTooShort = errors.New("ciphertext too short")
)

// Keeper seals and opens credentials with a key derived from the operator
// secret. Construct once at startup and share; it is safe for concurrent use.
type Keeper struct {
	aead cipher.AEAD
}

// NewKeeper derives the sealing key from the operator secret and prepares
// the AEAD. The secret must not be empty.
func NewKeeper(secret string) (*Keeper, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	key, err := deriveKey(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to derive sealing key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Keeper{aead: gcm}, nil
}

// Seal encrypts a credential and returns a base64-encoded ciphertext.
func (k *Keeper) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPlaintext
	}

	nonce := make([]byte, gcmNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := k.aead.Seal(nonce, nonce, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Open decrypts a base64-encoded ciphertext produced by Seal.
func (k *Keeper) Open(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", ErrEmptyCiphertext
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: base64 decode failed: %s", ErrInvalidCiphertext, err.Error())
	}

	// Minimum length: nonce (12) + at least 1 byte + tag (16)
	minLength := gcmNonceSize + 1 + k.aead.Overhead()
	if len(data) < minLength {
		return "", ErrCiphertextTooShort
	}

	nonce := data[:gcmNonceSize]
	sealed := data[gcmNonceSize:]

	plaintext, err := k.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrOpenFailed
	}

	return string(plaintext), nil
}

// SelfCheck performs a round-trip seal/open to verify the keeper works with
// the configured secret. Called once at startup.
func (k *Keeper) SelfCheck() error {
	const probe = "sealing-self-check"

	sealed, err := k.Seal(probe)
	if err != nil {
		return fmt.Errorf("seal check failed: %w", err)
	}

	opened, err := k.Open(sealed)
	if err != nil {
		return fmt.Errorf("open check failed: %w", err)
	}

	if opened != probe {
		return errors.New("round-trip check failed: data mismatch")
	}

	return nil
}

// MaskCredential returns a display-safe form of a credential, keeping only
// the last 4 characters.
func MaskCredential(credential string) string {
	if credential == "" {
		return ""
	}

	if len(credential) <= 4 {
		return "****"
	}

	return "****..." + credential[len(credential)-4:]
}

// deriveKey derives a 256-bit AES key from the operator secret using HKDF-SHA256.
func deriveKey(secret string) ([]byte, error) {
	hkdfReader := hkdf.New(
		sha256.New,
		[]byte(secret),
		[]byte(keyDerivationSalt),
		[]byte(keyDerivationInfo),
	)

	key := make([]byte, aesKeySize)
	if _, err := io.ReadFull(hkdfReader, key); err != nil {
		return nil, fmt.Errorf("failed to read HKDF output: %w", err)
	}

	return key, nil
}
