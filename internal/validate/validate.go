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

// Package validate holds the pure input validation applied at every external
// boundary before any filesystem or Git operation runs. Functions have no
// side effects and return coded errors from internal/errs.
package validate

import (
	"errors"
	"io"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/confvault/confserver/internal/errs"
)

const (
	maxNameLength          = 50
	maxEmailLength         = 100
	maxSecretKeyLength     = 100
	maxCommitMessageLength = 500
	maxProfileListLength   = 200
	maxProfileLength       = 50
)

var (
	safeNamePattern    = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9_-]*[a-zA-Z0-9])?$`)
	safePathPattern    = regexp.MustCompile(`^[a-zA-Z0-9/_.-]+$`)
	secretKeyPattern   = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
	keySegmentPattern  = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	emailPattern       = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@([A-Za-z0-9.-]+\.[A-Za-z]{2,})$`)
	commitIDPattern    = regexp.MustCompile(`^[a-fA-F0-9]{7,64}$`)
	reservedNamespaces = map[string]struct{}{
		"system":    {},
		"admin":     {},
		"dashboard": {},
		"default":   {},
		"log":       {},
		"root":      {},
	}
)

// Namespace checks length, character set and the reserved-name list. The
// reserved set is compared case-insensitively.
func Namespace(namespace string) error {
	clean := strings.TrimSpace(namespace)
	if clean == "" {
		return errs.New(errs.CodeInvalidNamespace, "namespace cannot be empty")
	}
	if len(clean) > maxNameLength {
		return errs.New(errs.CodeInvalidNamespace, "namespace too long (max %d characters)", maxNameLength)
	}
	if !safeNamePattern.MatchString(clean) {
		return errs.New(errs.CodeInvalidNamespace,
			"invalid namespace format, only alphanumeric, dash and underscore are allowed")
	}
	if _, reserved := reservedNamespaces[strings.ToLower(clean)]; reserved {
		return errs.New(errs.CodeInvalidNamespace, "namespace %q is reserved", clean)
	}
	return nil
}

// AppName checks the application name against the safe-name rules.
func AppName(appName string) error {
	clean := strings.TrimSpace(appName)
	if clean == "" {
		return errs.New(errs.CodeInvalidAppName, "application name cannot be empty")
	}
	if len(clean) > maxNameLength {
		return errs.New(errs.CodeInvalidAppName, "application name too long (max %d characters)", maxNameLength)
	}
	if !safeNamePattern.MatchString(clean) {
		return errs.New(errs.CodeInvalidAppName,
			"invalid application name format, only alphanumeric, dash and underscore are allowed")
	}
	return nil
}

// SafePath rejects traversal sequences and unsafe characters. A single
// leading slash is tolerated and stripped before the character check.
func SafePath(filePath string) error {
	clean := strings.TrimSpace(filePath)
	if clean == "" {
		return errs.New(errs.CodeInvalidPath, "path cannot be empty")
	}
	if strings.Contains(clean, "..") || strings.Contains(clean, "./") || strings.Contains(clean, `\`) {
		return errs.New(errs.CodeInvalidPath, "path contains traversal patterns")
	}
	if strings.HasPrefix(clean, "/") && len(clean) > 1 {
		clean = clean[1:]
	}
	if !safePathPattern.MatchString(clean) {
		return errs.New(errs.CodeInvalidPath,
			"path contains unsafe characters, only alphanumeric, dash, underscore, slash and dot are allowed")
	}
	return nil
}

// SecretKey validates a dotted vault key: safe characters, no leading,
// trailing or consecutive dots, every segment non-empty.
func SecretKey(key string) error {
	clean := strings.TrimSpace(key)
	if clean == "" {
		return errs.New(errs.CodeInvalidPath, "secret key cannot be empty")
	}
	if strings.Contains(clean, " ") {
		return errs.New(errs.CodeInvalidPath,
			"secret key cannot contain spaces, use dot notation for nested keys")
	}
	if !secretKeyPattern.MatchString(clean) {
		return errs.New(errs.CodeInvalidPath,
			"secret key contains invalid characters, only alphanumeric, dot, dash and underscore are allowed")
	}
	if strings.Contains(clean, "..") || strings.HasPrefix(clean, ".") || strings.HasSuffix(clean, ".") {
		return errs.New(errs.CodeInvalidPath, "secret key has invalid dot usage")
	}
	for _, segment := range strings.Split(clean, ".") {
		if !keySegmentPattern.MatchString(segment) {
			return errs.New(errs.CodeInvalidPath, "secret key segment %q contains invalid characters", segment)
		}
	}
	if len(clean) > maxSecretKeyLength {
		return errs.New(errs.CodeInvalidPath, "secret key too long (max %d characters)", maxSecretKeyLength)
	}
	return nil
}

// Email applies a basic format check; the local part becomes the Git author
// name, so an @ is mandatory.
func Email(email string) error {
	clean := strings.TrimSpace(email)
	if clean == "" {
		return errs.New(errs.CodeInvalidEmail, "email cannot be empty")
	}
	if !emailPattern.MatchString(clean) {
		return errs.New(errs.CodeInvalidEmail, "invalid email format")
	}
	if len(clean) > maxEmailLength {
		return errs.New(errs.CodeInvalidEmail, "email too long (max %d characters)", maxEmailLength)
	}
	return nil
}

// CommitID accepts hex strings between 7 (abbreviated) and 64 (SHA-256)
// characters.
func CommitID(commitID string) error {
	clean := strings.TrimSpace(commitID)
	if clean == "" {
		return errs.New(errs.CodeMissingCommitID, "commit id is required")
	}
	if !commitIDPattern.MatchString(clean) {
		return errs.New(errs.CodeInvalidCommitID, "invalid commit id format")
	}
	return nil
}

// YAMLContent parses the content as one or more YAML documents. Multi
// document streams (separated by ---) are allowed.
func YAMLContent(content string) error {
	if content == "" {
		return errs.New(errs.CodeInvalidContent, "configuration content cannot be empty")
	}
	decoder := yaml.NewDecoder(strings.NewReader(content))
	for {
		var doc any
		err := decoder.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errs.Wrap(errs.CodeInvalidYAML, err, "invalid YAML syntax")
		}
	}
}

// CommitMessage enforces length limits and rejects markup that could be
// replayed into a UI.
func CommitMessage(message string) error {
	clean := strings.TrimSpace(message)
	if clean == "" {
		return errs.New(errs.CodeInvalidCommitMessage, "commit message cannot be empty")
	}
	if len(clean) > maxCommitMessageLength {
		return errs.New(errs.CodeInvalidCommitMessage,
			"commit message exceeds maximum length of %d characters", maxCommitMessageLength)
	}
	lowered := strings.ToLower(clean)
	if strings.Contains(lowered, "<script") || strings.Contains(lowered, "javascript:") ||
		strings.Contains(lowered, "data:text/html") {
		return errs.New(errs.CodeInvalidCommitMessage, "commit message contains potentially malicious content")
	}
	return nil
}

// Profile validates a comma-separated profile list. Each entry must be
// "default" or a safe name; an empty list is fine.
func Profile(profile string) error {
	clean := strings.TrimSpace(profile)
	if clean == "" {
		return nil
	}
	if len(clean) > maxProfileListLength {
		return errs.New(errs.CodeInvalidPath, "profile string too long (max %d characters)", maxProfileListLength)
	}
	for _, single := range strings.Split(clean, ",") {
		if err := singleProfile(strings.TrimSpace(single)); err != nil {
			return err
		}
	}
	return nil
}

func singleProfile(profile string) error {
	if profile == "" {
		return errs.New(errs.CodeInvalidPath, "profile name cannot be empty")
	}
	if len(profile) > maxProfileLength {
		return errs.New(errs.CodeInvalidPath, "profile name too long (max %d characters)", maxProfileLength)
	}
	if profile != "default" && !safeNamePattern.MatchString(profile) {
		return errs.New(errs.CodeInvalidPath,
			"invalid profile format %q, only alphanumeric, dash and underscore are allowed", profile)
	}
	return nil
}

// ResolveRequest validates the (application, profile, label) triple of a
// resolver call. The label may be empty; it defaults downstream.
func ResolveRequest(application, profile, label string) error {
	if err := AppName(application); err != nil {
		return err
	}
	if strings.Contains(application, "../") || strings.Contains(application, `..\`) {
		return errs.New(errs.CodeInvalidAppName, "application name contains invalid path characters")
	}
	if profile != "" && (strings.Contains(profile, "../") || strings.Contains(profile, `..\`)) {
		return errs.New(errs.CodeInvalidPath, "profile contains invalid path characters")
	}
	if err := Profile(profile); err != nil {
		return err
	}
	if label != "" && (strings.Contains(label, "../") || strings.Contains(label, `..\`)) {
		return errs.New(errs.CodeInvalidPath, "label contains invalid path characters")
	}
	return nil
}
