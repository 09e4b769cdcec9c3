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
	"strings"

	"github.com/confvault/confserver/internal/errs"
	"github.com/confvault/confserver/internal/validate"
)

// defaultTemplate is written on config creation, with <app-name> replaced by
// the application name.
const defaultTemplate = "server:\n" +
	"  port: 8080\n" +
	"  servlet.context-path: /<app-name>\n" +
	"\n" +
	"spring:\n" +
	"  application:\n" +
	"    name: <app-name>\n" +
	"\n"

// renderDefaultTemplate substitutes the application name into the template.
func renderDefaultTemplate(appName string) string {
	return strings.ReplaceAll(defaultTemplate, "<app-name>", appName)
}

// cleanRelPath validates and normalizes a path relative to the namespace
// root: trimmed, no leading slash, forward slashes only.
func cleanRelPath(relPath string) (string, error) {
	if err := validate.SafePath(relPath); err != nil {
		return "", err
	}
	clean := strings.TrimSpace(relPath)
	clean = strings.TrimPrefix(clean, "/")
	if clean == "" {
		return "", errs.New(errs.CodeInvalidPath, "path cannot be empty")
	}
	return clean, nil
}

// cacheKey builds the namespace-qualified key used by the per-path cache
// regions; vault updates evict these by the "<ns>/" prefix.
func cacheKey(namespace, relPath string) string {
	return namespace + "/" + relPath
}

// detailsKey builds the commit-details key; vault updates evict these by the
// "_<ns>" suffix.
func detailsKey(commitID, namespace string) string {
	return commitID + "_" + namespace
}
