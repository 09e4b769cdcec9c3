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

package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/confvault/confserver/internal/errs"
)

func TestNamespace_Valid(t *testing.T) {
	for _, ns := range []string{"team-a", "prod", "a", "my_namespace", "Team42", "x1-y2_z3"} {
		assert.NoError(t, Namespace(ns), "namespace %q should be valid", ns)
	}
}

func TestNamespace_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		namespace string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"leading dash", "-team"},
		{"trailing underscore", "team_"},
		{"slash", "team/a"},
		{"dot", "team.a"},
		{"too long", strings.Repeat("a", 51)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Namespace(tt.namespace)
			require.Error(t, err)
			assert.Equal(t, errs.CodeInvalidNamespace, errs.CodeOf(err))
		})
	}
}

func TestNamespace_ReservedCaseInsensitive(t *testing.T) {
	for _, ns := range []string{"system", "Admin", "DASHBOARD", "default", "Log", "root"} {
		err := Namespace(ns)
		require.Error(t, err, "reserved namespace %q must be rejected", ns)
		assert.Equal(t, errs.CodeInvalidNamespace, errs.CodeOf(err))
	}
}

func TestAppName(t *testing.T) {
	assert.NoError(t, AppName("payment-service"))
	assert.NoError(t, AppName("app1"))

	for _, name := range []string{"", "-app", "app-", "app name", strings.Repeat("a", 51)} {
		err := AppName(name)
		require.Error(t, err, "app name %q must be rejected", name)
		assert.Equal(t, errs.CodeInvalidAppName, errs.CodeOf(err))
	}
}

func TestSafePath(t *testing.T) {
	assert.NoError(t, SafePath("payment-service/payment-service.yml"))
	assert.NoError(t, SafePath("/team/app.yml"))
	assert.NoError(t, SafePath("a/b/c.yaml"))

	tests := []struct {
		name string
		path string
	}{
		{"empty", ""},
		{"parent traversal", "../etc/passwd"},
		{"embedded traversal", "a/../b"},
		{"current dir", "./config.yml"},
		{"backslash", `a\b.yml`},
		{"space", "my file.yml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SafePath(tt.path)
			require.Error(t, err)
			assert.Equal(t, errs.CodeInvalidPath, errs.CodeOf(err))
		})
	}
}

func TestSecretKey(t *testing.T) {
	assert.NoError(t, SecretKey("database.password"))
	assert.NoError(t, SecretKey("api-key"))
	assert.NoError(t, SecretKey("a.b.c_d"))

	for _, key := range []string{
		"",
		"has space",
		".leading",
		"trailing.",
		"double..dot",
		"bad$char",
		strings.Repeat("a", 101),
	} {
		err := SecretKey(key)
		require.Error(t, err, "secret key %q must be rejected", key)
	}
}

func TestEmail(t *testing.T) {
	assert.NoError(t, Email("dev@example.com"))
	assert.NoError(t, Email("first.last+tag@sub.example.org"))

	for _, email := range []string{"", "no-at-sign", "a@b", "a@.com", "x@" + strings.Repeat("d", 100) + ".com"} {
		err := Email(email)
		require.Error(t, err, "email %q must be rejected", email)
		assert.Equal(t, errs.CodeInvalidEmail, errs.CodeOf(err))
	}
}

func TestCommitID(t *testing.T) {
	assert.NoError(t, CommitID("abc1234"))
	assert.NoError(t, CommitID("ABCDEF1234567890abcdef1234567890abcdef12"))
	assert.NoError(t, CommitID(strings.Repeat("a", 64)))

	err := CommitID("")
	require.Error(t, err)
	assert.Equal(t, errs.CodeMissingCommitID, errs.CodeOf(err))

	for _, id := range []string{"abc123", "zzzzzzz", strings.Repeat("a", 65), "abc 1234"} {
		err := CommitID(id)
		require.Error(t, err, "commit id %q must be rejected", id)
		assert.Equal(t, errs.CodeInvalidCommitID, errs.CodeOf(err))
	}
}

func TestYAMLContent(t *testing.T) {
	assert.NoError(t, YAMLContent("server:\n  port: 8080\n"))
	assert.NoError(t, YAMLContent("---\na: 1\n---\nb: 2\n"), "multi-document streams are allowed")
	assert.NoError(t, YAMLContent("just a scalar"))

	err := YAMLContent("")
	require.Error(t, err)
	assert.Equal(t, errs.CodeInvalidContent, errs.CodeOf(err))

	err = YAMLContent("key: [unclosed")
	require.Error(t, err)
	assert.Equal(t, errs.CodeInvalidYAML, errs.CodeOf(err))

	err = YAMLContent("a: 1\n  b: bad indent\n")
	require.Error(t, err)
	assert.Equal(t, errs.CodeInvalidYAML, errs.CodeOf(err))
}

func TestCommitMessage(t *testing.T) {
	assert.NoError(t, CommitMessage("Update database settings"))

	tests := []struct {
		name    string
		message string
	}{
		{"empty", ""},
		{"too long", strings.Repeat("m", 501)},
		{"script tag", "hello <script>alert(1)</script>"},
		{"script tag upper", "hello <SCRIPT>x</SCRIPT>"},
		{"javascript url", "click javascript:alert(1)"},
		{"data url", "see data:text/html,<b>x</b>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CommitMessage(tt.message)
			require.Error(t, err)
			assert.Equal(t, errs.CodeInvalidCommitMessage, errs.CodeOf(err))
		})
	}
}

func TestProfile(t *testing.T) {
	assert.NoError(t, Profile(""))
	assert.NoError(t, Profile("dev"))
	assert.NoError(t, Profile("default"))
	assert.NoError(t, Profile("dev, staging ,prod"))

	for _, profile := range []string{
		"dev,,prod",
		"bad profile",
		strings.Repeat("p", 201),
		"ok," + strings.Repeat("p", 51),
	} {
		assert.Error(t, Profile(profile), "profile %q must be rejected", profile)
	}
}

func TestResolveRequest(t *testing.T) {
	assert.NoError(t, ResolveRequest("payment-service", "dev,prod", "team-a/sub"))
	assert.NoError(t, ResolveRequest("app", "", ""))

	assert.Error(t, ResolveRequest("", "dev", ""))
	assert.Error(t, ResolveRequest("app", "../dev", ""))
	assert.Error(t, ResolveRequest("app", "dev", "../escape"))
}
