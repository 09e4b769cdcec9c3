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

package vault

import (
	"bytes"
	"encoding/json"
	"fmt"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-logr/logr"

	"github.com/confvault/confserver/internal/cache"
	"github.com/confvault/confserver/internal/errs"
	"github.com/confvault/confserver/internal/gitrepo"
	"github.com/confvault/confserver/internal/validate"
)

// Store manages the per-namespace vault file. Reads return plaintext maps;
// the file on disk only ever holds VAULT: envelopes.
type Store struct {
	gateway     *gitrepo.Gateway
	cipher      *Cipher
	secrets     *cache.Region
	invalidator *cache.Invalidator
	log         logr.Logger
}

// NewStore wires the vault store.
func NewStore(gateway *gitrepo.Gateway, cipher *Cipher, c *cache.Cache, inv *cache.Invalidator, log logr.Logger) *Store {
	return &Store{
		gateway:     gateway,
		cipher:      cipher,
		secrets:     c.Region(cache.RegionVaultSecrets),
		invalidator: inv,
		log:         log.WithName("vault"),
	}
}

// FilePath returns the vault file path relative to the namespace root.
func FilePath(namespace string) string {
	return fmt.Sprintf("%s/%s-vault.json", gitrepo.VaultDir, namespace)
}

// GetVault returns the decrypted secret map for a namespace. A missing vault
// file is an empty map. Results are cached; writers evict on update.
func (s *Store) GetVault(namespace string) (map[string]string, error) {
	if err := validate.Namespace(namespace); err != nil {
		return nil, err
	}
	return cache.GetOrLoad(s.secrets, namespace, func() (map[string]string, error) {
		return gitrepo.WithRepo(s.gateway, namespace, func(repo *gogit.Repository) (map[string]string, error) {
			return s.load(repo, namespace)
		})
	})
}

func (s *Store) load(repo *gogit.Repository, namespace string) (map[string]string, error) {
	relPath := FilePath(namespace)
	exists, err := gitrepo.FileExists(repo, relPath)
	if err != nil {
		return nil, err
	}
	if !exists {
		return map[string]string{}, nil
	}

	raw, err := gitrepo.ReadFile(repo, relPath)
	if err != nil {
		return nil, errs.Wrap(errs.CodeVaultOperationFailed, err, "failed to read vault file")
	}

	// Strict shape: anything but a flat object of strings is a hard error.
	encrypted := map[string]string{}
	decoder := json.NewDecoder(bytes.NewReader([]byte(raw)))
	if err := decoder.Decode(&encrypted); err != nil {
		return nil, errs.Wrap(errs.CodeVaultOperationFailed, err,
			"vault file for %q is not a flat JSON object of strings", namespace)
	}

	plain := make(map[string]string, len(encrypted))
	for key, value := range encrypted {
		decrypted, err := s.cipher.Decrypt(value)
		if err != nil {
			return nil, errs.Wrap(errs.CodeDecryptionFailed, err,
				"failed to decrypt vault key %q in namespace %q", key, namespace)
		}
		plain[key] = decrypted
	}
	return plain, nil
}

// UpdateVault replaces the entire vault content: keys absent from secrets
// are removed. Every key is validated, every value freshly encrypted, and
// the file committed with the supplied message.
func (s *Store) UpdateVault(namespace string, secrets map[string]string, email, message string) (string, error) {
	if err := validate.Namespace(namespace); err != nil {
		return "", err
	}
	if err := validate.Email(email); err != nil {
		return "", err
	}
	if err := validate.CommitMessage(message); err != nil {
		return "", err
	}
	for key := range secrets {
		if err := validate.SecretKey(key); err != nil {
			return "", err
		}
	}

	encrypted := make(map[string]string, len(secrets))
	for key, value := range secrets {
		sealed, err := s.cipher.Encrypt(value)
		if err != nil {
			return "", err
		}
		encrypted[key] = sealed
	}

	content, err := marshalVault(encrypted)
	if err != nil {
		return "", err
	}

	commitID, err := gitrepo.WithRepo(s.gateway, namespace, func(repo *gogit.Repository) (string, error) {
		return gitrepo.WriteAndCommit(repo, FilePath(namespace), content, email, message)
	})
	if err != nil {
		return "", err
	}

	s.invalidator.VaultUpdated(namespace)
	s.log.Info("vault updated", "namespace", namespace, "keys", len(secrets), "commit", commitID)
	return commitID, nil
}

// marshalVault renders the vault file: pretty-printed JSON (keys sorted by
// encoding/json) with a trailing newline.
func marshalVault(encrypted map[string]string) (string, error) {
	data, err := json.MarshalIndent(encrypted, "", "  ")
	if err != nil {
		return "", errs.Wrap(errs.CodeVaultOperationFailed, err, "failed to serialize vault file")
	}
	return string(data) + "\n", nil
}
