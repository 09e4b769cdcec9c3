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

// Package gitrepo owns the directory-to-repository mapping. Every namespace
// is one plain Git repository under the base path; all access to a namespace
// goes through WithRepo, which serializes operations on that namespace while
// leaving different namespaces fully parallel.
package gitrepo

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-logr/logr"

	"github.com/confvault/confserver/internal/errs"
	"github.com/confvault/confserver/internal/validate"
)

// VaultDir is the per-namespace directory holding the encrypted secret file.
const VaultDir = ".vault"

// Gateway maps namespaces to repositories on disk and hands out serialized
// access to them.
type Gateway struct {
	basePath string
	log      logr.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewGateway creates a gateway rooted at basePath. The base directory must
// already exist; startup checks that before constructing one.
func NewGateway(basePath string, log logr.Logger) *Gateway {
	return &Gateway{
		basePath: basePath,
		log:      log.WithName("gitrepo"),
		locks:    make(map[string]*sync.Mutex),
	}
}

// BasePath returns the root directory holding all namespaces.
func (g *Gateway) BasePath() string { return g.basePath }

// NamespacePath returns the on-disk directory of a namespace.
func (g *Gateway) NamespacePath(namespace string) string {
	return filepath.Join(g.basePath, namespace)
}

// lockFor returns the mutex serializing one namespace, creating it lazily.
func (g *Gateway) lockFor(namespace string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	lock, exists := g.locks[namespace]
	if !exists {
		lock = &sync.Mutex{}
		g.locks[namespace] = lock
	}
	return lock
}

// open opens the namespace repository. Caller must hold the namespace lock.
func (g *Gateway) open(namespace string) (*git.Repository, error) {
	dir := g.NamespacePath(namespace)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, errs.New(errs.CodeNamespaceNotFound, "namespace %q not found", namespace)
	}
	if gitInfo, err := os.Stat(filepath.Join(dir, git.GitDirName)); err != nil || !gitInfo.IsDir() {
		return nil, errs.New(errs.CodeNamespaceNotFound, "namespace %q is not a repository", namespace)
	}
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, errs.Wrap(errs.CodeGitRepositoryAccessFailed, err,
			"failed to open repository for namespace %q", namespace)
	}
	return repo, nil
}

// WithRepo runs op with the namespace repository under the namespace mutex,
// held from open to return. Generic so callers get typed results without
// assertions.
func WithRepo[T any](g *Gateway, namespace string, op func(repo *git.Repository) (T, error)) (T, error) {
	lock := g.lockFor(namespace)
	lock.Lock()
	defer lock.Unlock()

	var zero T
	repo, err := g.open(namespace)
	if err != nil {
		return zero, err
	}
	return op(repo)
}

// WithRepoVoid is WithRepo for operations without a result.
func (g *Gateway) WithRepoVoid(namespace string, op func(repo *git.Repository) error) error {
	_, err := WithRepo(g, namespace, func(repo *git.Repository) (struct{}, error) {
		return struct{}{}, op(repo)
	})
	return err
}

// CreateNamespace creates the namespace directory, initializes an empty
// repository and creates the vault directory.
func (g *Gateway) CreateNamespace(namespace string) error {
	lock := g.lockFor(namespace)
	lock.Lock()
	defer lock.Unlock()

	dir := g.NamespacePath(namespace)
	if _, err := os.Stat(dir); err == nil {
		return errs.New(errs.CodeNamespaceAlreadyExists, "namespace %q already exists", namespace)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Wrap(errs.CodeNamespaceCreateFailed, err, "failed to create namespace directory")
	}
	if _, err := git.PlainInit(dir, false); err != nil {
		// Leave no half-created namespace behind.
		_ = os.RemoveAll(dir)
		return errs.Wrap(errs.CodeGitInitFailed, err, "failed to initialize repository for %q", namespace)
	}
	if err := os.MkdirAll(filepath.Join(dir, VaultDir), 0o755); err != nil {
		_ = os.RemoveAll(dir)
		return errs.Wrap(errs.CodeNamespaceCreateFailed, err, "failed to create vault directory")
	}
	g.log.Info("created namespace", "namespace", namespace)
	return nil
}

// DeleteNamespace removes the namespace directory recursively.
func (g *Gateway) DeleteNamespace(namespace string) error {
	lock := g.lockFor(namespace)
	lock.Lock()
	defer lock.Unlock()

	dir := g.NamespacePath(namespace)
	if _, err := os.Stat(dir); err != nil {
		return errs.New(errs.CodeNamespaceNotFound, "namespace %q not found", namespace)
	}
	if err := os.RemoveAll(dir); err != nil {
		return errs.Wrap(errs.CodeGitRepositoryAccessFailed, err,
			"failed to delete namespace %q", namespace)
	}
	g.log.Info("deleted namespace", "namespace", namespace)
	return nil
}

// NamespaceExists reports whether the namespace directory holds a repository.
func (g *Gateway) NamespaceExists(namespace string) bool {
	info, err := os.Stat(filepath.Join(g.NamespacePath(namespace), git.GitDirName))
	return err == nil && info.IsDir()
}

// ListNamespaces returns all valid namespace directories under the base
// path, sorted alphabetically. Directories failing namespace validation or
// lacking a .git directory are skipped.
func (g *Gateway) ListNamespaces() ([]string, error) {
	entries, err := os.ReadDir(g.basePath)
	if err != nil {
		return nil, errs.Wrap(errs.CodeGitRepositoryAccessFailed, err, "failed to read base directory")
	}
	namespaces := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		if validate.Namespace(name) != nil {
			continue
		}
		if !g.NamespaceExists(name) {
			continue
		}
		namespaces = append(namespaces, name)
	}
	sort.Strings(namespaces)
	return namespaces, nil
}
