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
	"github.com/confvault/confserver/internal/validate"
)

// CreateNamespace validates the name, creates the repository and refreshes
// the listing caches.
func (s *Store) CreateNamespace(namespace string) error {
	if err := validate.Namespace(namespace); err != nil {
		return err
	}
	if err := s.gateway.CreateNamespace(namespace); err != nil {
		return err
	}
	s.invalidator.NamespaceChanged()
	return nil
}

// DeleteNamespace removes the namespace and everything cached under it.
func (s *Store) DeleteNamespace(namespace string) error {
	if err := validate.Namespace(namespace); err != nil {
		return err
	}
	if err := s.gateway.DeleteNamespace(namespace); err != nil {
		return err
	}
	s.invalidator.NamespaceDeleted(namespace)
	return nil
}
