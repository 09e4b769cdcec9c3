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

// Package store implements configuration file lifecycle on top of the
// repository gateway: create, read, update, delete, history and diffs, with
// secret redaction and cache maintenance on every path.
package store

import (
	"fmt"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-logr/logr"

	"github.com/confvault/confserver/internal/cache"
	"github.com/confvault/confserver/internal/errs"
	"github.com/confvault/confserver/internal/gitrepo"
	"github.com/confvault/confserver/internal/notify"
	"github.com/confvault/confserver/internal/secrets"
	"github.com/confvault/confserver/internal/validate"
)

// UpdatePayload carries the fields of a config update request.
type UpdatePayload struct {
	AppName          string
	Content          string
	Message          string
	Email            string
	ExpectedCommitID string
}

// DeletePayload carries the fields of a config delete request.
type DeletePayload struct {
	Message string
	Email   string
}

// Store orchestrates config file operations for all namespaces.
type Store struct {
	gateway     *gitrepo.Gateway
	processor   *secrets.Processor
	notifier    *notify.Notifier
	invalidator *cache.Invalidator
	log         logr.Logger

	content    *cache.Region
	history    *cache.Region
	latest     *cache.Region
	details    *cache.Region
	events     *cache.Region
	listings   *cache.Region
	namespaces *cache.Region

	historySize int
}

// New wires a config store.
func New(
	gateway *gitrepo.Gateway,
	processor *secrets.Processor,
	notifier *notify.Notifier,
	c *cache.Cache,
	invalidator *cache.Invalidator,
	historySize int,
	log logr.Logger,
) *Store {
	return &Store{
		gateway:     gateway,
		processor:   processor,
		notifier:    notifier,
		invalidator: invalidator,
		log:         log.WithName("store"),
		content:     c.Region(cache.RegionConfigContent),
		history:     c.Region(cache.RegionCommitHistory),
		latest:      c.Region(cache.RegionLatestCommit),
		details:     c.Region(cache.RegionCommitDetails),
		events:      c.Region(cache.RegionNamespaceEvents),
		listings:    c.Region(cache.RegionDirectoryList),
		namespaces:  c.Region(cache.RegionNamespaces),
		historySize: historySize,
	}
}

// Initialize creates a new config file from the default template and commits
// it. Fails when the file already exists.
func (s *Store) Initialize(namespace, relPath, appName, email string) (string, error) {
	if err := validate.Namespace(namespace); err != nil {
		return "", err
	}
	if err := validate.AppName(appName); err != nil {
		return "", err
	}
	if err := validate.Email(email); err != nil {
		return "", err
	}
	clean, err := cleanRelPath(relPath)
	if err != nil {
		return "", err
	}

	commitID, err := gitrepo.WithRepo(s.gateway, namespace, func(repo *gogit.Repository) (string, error) {
		exists, err := gitrepo.FileExists(repo, clean)
		if err != nil {
			return "", err
		}
		if exists {
			return "", errs.New(errs.CodeConfigFileAlreadyExists, "config file %q already exists", clean)
		}
		message := fmt.Sprintf("First commit ApplicationName - %s", appName)
		return gitrepo.WriteAndCommit(repo, clean, renderDefaultTemplate(appName), email, message)
	})
	if err != nil {
		return "", err
	}

	s.invalidator.ConfigFileCreated(namespace)
	s.log.Info("config created", "namespace", namespace, "path", clean, "commit", commitID)
	return commitID, nil
}

// Read returns the file content with internal-mode redaction applied. The
// read path is best-effort: a redaction failure logs and returns the raw
// content rather than failing the request.
func (s *Store) Read(namespace, relPath string) (string, error) {
	if err := validate.Namespace(namespace); err != nil {
		return "", err
	}
	clean, err := cleanRelPath(relPath)
	if err != nil {
		return "", err
	}

	return cache.GetOrLoad(s.content, cacheKey(namespace, clean), func() (string, error) {
		raw, err := gitrepo.WithRepo(s.gateway, namespace, func(repo *gogit.Repository) (string, error) {
			return gitrepo.ReadFile(repo, clean)
		})
		if err != nil {
			return "", err
		}
		redacted, err := s.processor.ForInternal(raw, namespace)
		if err != nil {
			s.log.Error(err, "secret redaction failed, returning raw content",
				"namespace", namespace, "path", clean)
			return raw, nil
		}
		return redacted, nil
	})
}

// Update commits new content after the optimistic-concurrency check and
// schedules a refresh notification. Returns the new commit ID.
func (s *Store) Update(namespace, relPath string, payload UpdatePayload) (string, error) {
	if err := validate.Namespace(namespace); err != nil {
		return "", err
	}
	clean, err := cleanRelPath(relPath)
	if err != nil {
		return "", err
	}
	if err := validate.YAMLContent(payload.Content); err != nil {
		return "", err
	}
	if err := validate.CommitMessage(payload.Message); err != nil {
		return "", err
	}
	if err := validate.Email(payload.Email); err != nil {
		return "", err
	}
	if err := validate.CommitID(payload.ExpectedCommitID); err != nil {
		return "", err
	}

	// Write-path redaction is fatal: plaintext secrets must not be committed
	// when the vault is unreadable.
	content, err := s.processor.ForInternal(payload.Content, namespace)
	if err != nil {
		return "", err
	}

	commitID, err := gitrepo.WithRepo(s.gateway, namespace, func(repo *gogit.Repository) (string, error) {
		current, err := gitrepo.LatestCommitID(repo, clean)
		if err != nil {
			return "", err
		}
		if current != payload.ExpectedCommitID {
			return "", errs.New(errs.CodeConfigConflict,
				"config %q was modified concurrently: expected commit %s, found %s",
				clean, payload.ExpectedCommitID, current)
		}
		return gitrepo.WriteAndCommit(repo, clean, content, payload.Email, payload.Message)
	})
	if err != nil {
		return "", err
	}

	s.invalidator.ConfigFileUpdated(namespace, cacheKey(namespace, clean))
	s.notifier.SendRefresh(namespace, payload.AppName, commitID)
	s.log.Info("config updated", "namespace", namespace, "path", clean, "commit", commitID)
	return commitID, nil
}

// Delete removes the file and commits the removal.
func (s *Store) Delete(namespace, relPath string, payload DeletePayload) (string, error) {
	if err := validate.Namespace(namespace); err != nil {
		return "", err
	}
	clean, err := cleanRelPath(relPath)
	if err != nil {
		return "", err
	}
	if err := validate.CommitMessage(payload.Message); err != nil {
		return "", err
	}
	if err := validate.Email(payload.Email); err != nil {
		return "", err
	}

	commitID, err := gitrepo.WithRepo(s.gateway, namespace, func(repo *gogit.Repository) (string, error) {
		exists, err := gitrepo.FileExists(repo, clean)
		if err != nil {
			return "", err
		}
		if !exists {
			return "", errs.New(errs.CodeConfigFileNotFound, "config file %q not found", clean)
		}
		return gitrepo.RemoveAndCommit(repo, clean, payload.Email, payload.Message)
	})
	if err != nil {
		return "", err
	}

	s.invalidator.ConfigFileDeleted(namespace, cacheKey(namespace, clean))
	s.log.Info("config deleted", "namespace", namespace, "path", clean, "commit", commitID)
	return commitID, nil
}

// LatestCommitID returns the most recent commit touching the file.
func (s *Store) LatestCommitID(namespace, relPath string) (string, error) {
	if err := validate.Namespace(namespace); err != nil {
		return "", err
	}
	clean, err := cleanRelPath(relPath)
	if err != nil {
		return "", err
	}
	return cache.GetOrLoad(s.latest, cacheKey(namespace, clean), func() (string, error) {
		return gitrepo.WithRepo(s.gateway, namespace, func(repo *gogit.Repository) (string, error) {
			return gitrepo.LatestCommitID(repo, clean)
		})
	})
}

// History returns the most recent commits touching the file, newest first,
// bounded by the configured history size.
func (s *Store) History(namespace, relPath string) ([]gitrepo.CommitRecord, error) {
	if err := validate.Namespace(namespace); err != nil {
		return nil, err
	}
	clean, err := cleanRelPath(relPath)
	if err != nil {
		return nil, err
	}
	return cache.GetOrLoad(s.history, cacheKey(namespace, clean), func() ([]gitrepo.CommitRecord, error) {
		return gitrepo.WithRepo(s.gateway, namespace, func(repo *gogit.Repository) ([]gitrepo.CommitRecord, error) {
			return gitrepo.History(repo, clean, s.historySize)
		})
	})
}

// CommitChanges returns metadata and the cleaned diff of one commit.
func (s *Store) CommitChanges(namespace, commitID string) (gitrepo.CommitDetails, error) {
	if err := validate.Namespace(namespace); err != nil {
		return gitrepo.CommitDetails{}, err
	}
	if err := validate.CommitID(commitID); err != nil {
		return gitrepo.CommitDetails{}, err
	}
	return cache.GetOrLoad(s.details, detailsKey(commitID, namespace), func() (gitrepo.CommitDetails, error) {
		return gitrepo.WithRepo(s.gateway, namespace, func(repo *gogit.Repository) (gitrepo.CommitDetails, error) {
			return gitrepo.CommitChanges(repo, commitID)
		})
	})
}
