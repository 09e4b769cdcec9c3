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

package cache

import (
	"github.com/go-logr/logr"
)

// Invalidator centralizes the eviction policy so writers call one method per
// event instead of spreading region knowledge across call sites.
type Invalidator struct {
	cache *Cache
	log   logr.Logger
}

// NewInvalidator wraps a cache with the eviction policy.
func NewInvalidator(c *Cache, log logr.Logger) *Invalidator {
	return &Invalidator{cache: c, log: log.WithName("cache-invalidator")}
}

// NamespaceChanged handles namespace creation: the namespace list and all
// directory listings go stale.
func (i *Invalidator) NamespaceChanged() {
	i.cache.Region(RegionNamespaces).EvictAll()
	i.cache.Region(RegionDirectoryList).EvictAll()
	i.log.V(1).Info("evicted namespace and directory-listing regions")
}

// NamespaceDeleted evicts everything the namespace could have populated.
func (i *Invalidator) NamespaceDeleted(namespace string) {
	i.NamespaceChanged()
	i.VaultUpdated(namespace)
	i.cache.Region(RegionNamespaceEvents).EvictKey(namespace)
	i.cache.Region(RegionNamespaceNotify).EvictKey(namespace)
	i.log.V(1).Info("evicted all entries for deleted namespace", "namespace", namespace)
}

// ConfigFileCreated handles file creation and deletion at the namespace
// level; per-path evictions for deletes go through ConfigFileUpdated.
func (i *Invalidator) ConfigFileCreated(namespace string) {
	i.cache.Region(RegionDirectoryList).EvictAll()
	i.cache.Region(RegionNamespaceEvents).EvictKey(namespace)
	i.cache.Region(RegionNamespaceNotify).EvictKey(namespace)
}

// ConfigFileUpdated evicts the per-path entries plus the namespace-level
// event and notification lists.
func (i *Invalidator) ConfigFileUpdated(namespace, path string) {
	i.cache.Region(RegionConfigContent).EvictKey(path)
	i.cache.Region(RegionCommitHistory).EvictKey(path)
	i.cache.Region(RegionLatestCommit).EvictKey(path)
	i.cache.Region(RegionNamespaceEvents).EvictKey(namespace)
	i.cache.Region(RegionNamespaceNotify).EvictKey(namespace)
}

// ConfigFileDeleted combines the per-path and the listing evictions.
func (i *Invalidator) ConfigFileDeleted(namespace, path string) {
	i.ConfigFileUpdated(namespace, path)
	i.cache.Region(RegionDirectoryList).EvictAll()
}

// VaultUpdated drops the vault snapshot and every cached artifact derived
// from it: any file content, history or diff under the namespace may embed
// secret substitutions.
func (i *Invalidator) VaultUpdated(namespace string) {
	i.cache.Region(RegionVaultSecrets).EvictKey(namespace)
	prefix := namespace + "/"
	i.cache.Region(RegionConfigContent).EvictByPrefix(prefix)
	i.cache.Region(RegionCommitHistory).EvictByPrefix(prefix)
	i.cache.Region(RegionLatestCommit).EvictByPrefix(prefix)
	// commit-details keys are <commitId>_<namespace>; scan by suffix via the
	// only separator the key format allows.
	details := i.cache.Region(RegionCommitDetails)
	details.EvictBySuffix("_" + namespace)
	i.log.V(1).Info("evicted vault-derived entries", "namespace", namespace)
}
