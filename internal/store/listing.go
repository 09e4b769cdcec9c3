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

package store

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	gogit "github.com/go-git/go-git/v5"

	"github.com/confvault/confserver/internal/cache"
	"github.com/confvault/confserver/internal/errs"
	"github.com/confvault/confserver/internal/gitrepo"
	"github.com/confvault/confserver/internal/validate"
)

// ListNamespaces returns all namespaces under the base path. The listing is
// cached under a single key; namespace create/delete evicts the region.
func (s *Store) ListNamespaces() ([]string, error) {
	return cache.GetOrLoad(s.namespaces, "all", func() ([]string, error) {
		return s.gateway.ListNamespaces()
	})
}

// ListDirectory lists a directory inside a namespace: .yml files with the
// suffix stripped, subdirectories suffixed with "/", dot entries excluded,
// sorted case-insensitively.
func (s *Store) ListDirectory(namespace, subPath string) ([]string, error) {
	if err := validate.Namespace(namespace); err != nil {
		return nil, err
	}
	clean := strings.TrimSpace(subPath)
	clean = strings.Trim(clean, "/")
	if clean != "" {
		var err error
		if clean, err = cleanRelPath(clean); err != nil {
			return nil, err
		}
	}

	key := namespace + ":" + clean
	return cache.GetOrLoad(s.listings, key, func() ([]string, error) {
		return gitrepo.WithRepo(s.gateway, namespace, func(repo *gogit.Repository) ([]string, error) {
			dir := filepath.Join(s.gateway.NamespacePath(namespace), filepath.FromSlash(clean))
			entries, err := os.ReadDir(dir)
			if err != nil {
				if os.IsNotExist(err) {
					return nil, errs.New(errs.CodeConfigFileNotFound, "directory %q not found", clean)
				}
				return nil, errs.Wrap(errs.CodeGitRepositoryAccessFailed, err, "failed to list %q", clean)
			}

			names := make([]string, 0, len(entries))
			for _, entry := range entries {
				name := entry.Name()
				if strings.HasPrefix(name, ".") {
					continue
				}
				if entry.IsDir() {
					names = append(names, name+"/")
					continue
				}
				if strings.HasSuffix(name, ".yml") {
					names = append(names, strings.TrimSuffix(name, ".yml"))
				}
			}
			sort.Slice(names, func(i, j int) bool {
				return strings.ToLower(names[i]) < strings.ToLower(names[j])
			})
			return names, nil
		})
	})
}

// NamespaceEvents returns the most recent commits on the namespace's default
// branch, newest first. Empty repositories return an empty list.
func (s *Store) NamespaceEvents(namespace string) ([]gitrepo.CommitRecord, error) {
	if err := validate.Namespace(namespace); err != nil {
		return nil, err
	}
	return cache.GetOrLoad(s.events, namespace, func() ([]gitrepo.CommitRecord, error) {
		return gitrepo.WithRepo(s.gateway, namespace, func(repo *gogit.Repository) ([]gitrepo.CommitRecord, error) {
			return gitrepo.HeadCommits(repo, s.historySize)
		})
	})
}
