/*
SPDX-License-Identifier: Apache-2.0

Copyright 2026 ConfVault

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package vault stores per-namespace secrets as an encrypted JSON file
// inside the namespace repository. Values on disk carry the VAULT: envelope;
// values in memory are plaintext.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"strings"

	"github.com/go-logr/logr"

	"github.com/confvault/confserver/internal/errs"
)

// EncryptedPrefix marks a ciphertext envelope. Everything after it is
// base64(nonce || ciphertext || tag).
const EncryptedPrefix = "VAULT:"

const (
	keySize   = 32 // AES-256
	nonceSize = 12 // GCM standard nonce
)

// Cipher encrypts and decrypts vault values with AES-256-GCM under a single
// master key. Safe for concurrent use.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher builds a cipher from a base64-encoded 32-byte master key.
// fromEnv reports whether the key came from the environment; a key read from
// a config file triggers a loud warning since config files tend to end up in
// version control.
func NewCipher(masterKeyBase64 string, fromEnv bool, log logr.Logger) (*Cipher, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(masterKeyBase64))
	if err != nil {
		return nil, errs.Wrap(errs.CodeKeyLoadFailed, err, "master key is not valid base64")
	}
	if len(key) != keySize {
		return nil, errs.New(errs.CodeKeyLoadFailed,
			"master key must decode to %d bytes, got %d", keySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errs.Wrap(errs.CodeKeyInitializationFailed, err, "failed to initialize AES cipher")
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errs.Wrap(errs.CodeKeyInitializationFailed, err, "failed to initialize GCM mode")
	}

	if !fromEnv {
		log.Info("SECURITY WARNING: vault master key loaded from configuration file; " +
			"set VAULT_MASTER_KEY in the environment instead")
	}

	return &Cipher{aead: aead}, nil
}

// Encrypt seals a plaintext value into the VAULT: envelope with a fresh
// random nonce. Empty and whitespace-only values are refused.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if strings.TrimSpace(plaintext) == "" {
		return "", errs.New(errs.CodeEncryptionFailed, "cannot encrypt an empty value")
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", errs.Wrap(errs.CodeEncryptionFailed, err, "failed to generate nonce")
	}
	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	envelope := append(nonce, sealed...)
	return EncryptedPrefix + base64.StdEncoding.EncodeToString(envelope), nil
}

// Decrypt opens a VAULT: envelope. A value without the envelope prefix is
// already plaintext and is returned unchanged; tampered or truncated input
// fails the GCM tag check and returns DECRYPTION_FAILED.
func (c *Cipher) Decrypt(envelope string) (string, error) {
	if !strings.HasPrefix(envelope, EncryptedPrefix) {
		return envelope, nil
	}
	raw, err := base64.StdEncoding.DecodeString(envelope[len(EncryptedPrefix):])
	if err != nil {
		return "", errs.Wrap(errs.CodeDecryptionFailed, err, "envelope is not valid base64")
	}
	if len(raw) < nonceSize+c.aead.Overhead() {
		return "", errs.New(errs.CodeDecryptionFailed, "envelope too short")
	}
	plain, err := c.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", errs.Wrap(errs.CodeDecryptionFailed, err, "authentication failed")
	}
	return string(plain), nil
}

// IsEncrypted reports whether a stored value carries the envelope prefix.
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, EncryptedPrefix)
}
