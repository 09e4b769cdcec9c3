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

package gitrepo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/confvault/confserver/internal/errs"
)

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	return NewGateway(t.TempDir(), logr.Discard())
}

func TestCreateNamespace(t *testing.T) {
	g := newTestGateway(t)

	require.NoError(t, g.CreateNamespace("team-a"))

	assert.DirExists(t, filepath.Join(g.NamespacePath("team-a"), ".git"))
	assert.DirExists(t, filepath.Join(g.NamespacePath("team-a"), VaultDir))
	assert.True(t, g.NamespaceExists("team-a"))
}

func TestCreateNamespace_AlreadyExists(t *testing.T) {
	g := newTestGateway(t)
	require.NoError(t, g.CreateNamespace("team-a"))

	err := g.CreateNamespace("team-a")
	require.Error(t, err)
	assert.Equal(t, errs.CodeNamespaceAlreadyExists, errs.CodeOf(err))
}

func TestDeleteNamespace(t *testing.T) {
	g := newTestGateway(t)
	require.NoError(t, g.CreateNamespace("team-a"))

	require.NoError(t, g.DeleteNamespace("team-a"))
	assert.NoDirExists(t, g.NamespacePath("team-a"))

	err := g.DeleteNamespace("team-a")
	require.Error(t, err)
	assert.Equal(t, errs.CodeNamespaceNotFound, errs.CodeOf(err))
}

func TestWithRepo_NamespaceNotFound(t *testing.T) {
	g := newTestGateway(t)

	_, err := WithRepo(g, "ghost", func(repo *git.Repository) (string, error) {
		return "", nil
	})
	require.Error(t, err)
	assert.Equal(t, errs.CodeNamespaceNotFound, errs.CodeOf(err))
}

func TestWithRepo_PlainDirectoryIsNotANamespace(t *testing.T) {
	g := newTestGateway(t)
	require.NoError(t, os.MkdirAll(g.NamespacePath("plain"), 0o755))

	err := g.WithRepoVoid("plain", func(repo *git.Repository) error { return nil })
	require.Error(t, err)
	assert.Equal(t, errs.CodeNamespaceNotFound, errs.CodeOf(err))
}

func TestListNamespaces(t *testing.T) {
	g := newTestGateway(t)
	require.NoError(t, g.CreateNamespace("zeta"))
	require.NoError(t, g.CreateNamespace("alpha"))
	// Plain directory without .git is skipped.
	require.NoError(t, os.MkdirAll(g.NamespacePath("not-a-repo"), 0o755))

	namespaces, err := g.ListNamespaces()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, namespaces)
}

func TestWriteAndCommit_RoundTrip(t *testing.T) {
	g := newTestGateway(t)
	require.NoError(t, g.CreateNamespace("team"))

	commitID, err := WithRepo(g, "team", func(repo *git.Repository) (string, error) {
		return WriteAndCommit(repo, "app/app.yml", "server:\n  port: 8080\n", "dev@example.com", "initial config")
	})
	require.NoError(t, err)
	assert.Len(t, commitID, 40)

	content, err := WithRepo(g, "team", func(repo *git.Repository) (string, error) {
		return ReadFile(repo, "app/app.yml")
	})
	require.NoError(t, err)
	assert.Equal(t, "server:\n  port: 8080\n", content)

	latest, err := WithRepo(g, "team", func(repo *git.Repository) (string, error) {
		return LatestCommitID(repo, "app/app.yml")
	})
	require.NoError(t, err)
	assert.Equal(t, commitID, latest)
}

func TestWriteAndCommit_AuthorFromEmail(t *testing.T) {
	g := newTestGateway(t)
	require.NoError(t, g.CreateNamespace("team"))

	_, err := WithRepo(g, "team", func(repo *git.Repository) (string, error) {
		return WriteAndCommit(repo, "a.yml", "a: 1\n", "jane.doe@example.com", "add a")
	})
	require.NoError(t, err)

	records, err := WithRepo(g, "team", func(repo *git.Repository) ([]CommitRecord, error) {
		return History(repo, "a.yml", 10)
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "jane.doe", records[0].Author)
	assert.Equal(t, "jane.doe@example.com", records[0].Email)
	assert.Equal(t, "add a", records[0].CommitMessage)
}

func TestHistory_LimitAndOrder(t *testing.T) {
	g := newTestGateway(t)
	require.NoError(t, g.CreateNamespace("team"))

	var last string
	for _, content := range []string{"v: 1\n", "v: 2\n", "v: 3\n"} {
		id, err := WithRepo(g, "team", func(repo *git.Repository) (string, error) {
			return WriteAndCommit(repo, "app.yml", content, "dev@example.com", "update "+content[3:4])
		})
		require.NoError(t, err)
		last = id
	}

	records, err := WithRepo(g, "team", func(repo *git.Repository) ([]CommitRecord, error) {
		return History(repo, "app.yml", 2)
	})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, last, records[0].CommitID, "newest first")
}

func TestHistory_UntouchedFileNotFound(t *testing.T) {
	g := newTestGateway(t)
	require.NoError(t, g.CreateNamespace("team"))
	_, err := WithRepo(g, "team", func(repo *git.Repository) (string, error) {
		return WriteAndCommit(repo, "other.yml", "x: 1\n", "dev@example.com", "add other")
	})
	require.NoError(t, err)

	_, err = WithRepo(g, "team", func(repo *git.Repository) ([]CommitRecord, error) {
		return History(repo, "missing.yml", 10)
	})
	require.Error(t, err)
	assert.Equal(t, errs.CodeConfigFileNotFound, errs.CodeOf(err))
}

func TestHeadCommits_EmptyRepository(t *testing.T) {
	g := newTestGateway(t)
	require.NoError(t, g.CreateNamespace("team"))

	records, err := WithRepo(g, "team", func(repo *git.Repository) ([]CommitRecord, error) {
		return HeadCommits(repo, 20)
	})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRemoveAndCommit(t *testing.T) {
	g := newTestGateway(t)
	require.NoError(t, g.CreateNamespace("team"))

	_, err := WithRepo(g, "team", func(repo *git.Repository) (string, error) {
		return WriteAndCommit(repo, "app.yml", "a: 1\n", "dev@example.com", "add")
	})
	require.NoError(t, err)

	_, err = WithRepo(g, "team", func(repo *git.Repository) (string, error) {
		return RemoveAndCommit(repo, "app.yml", "dev@example.com", "remove app.yml")
	})
	require.NoError(t, err)

	exists, err := WithRepo(g, "team", func(repo *git.Repository) (bool, error) {
		return FileExists(repo, "app.yml")
	})
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCommitChanges_RootCommitAgainstEmptyTree(t *testing.T) {
	g := newTestGateway(t)
	require.NoError(t, g.CreateNamespace("team"))

	commitID, err := WithRepo(g, "team", func(repo *git.Repository) (string, error) {
		return WriteAndCommit(repo, "app.yml", "server:\n  port: 8080\n", "dev@example.com", "first commit")
	})
	require.NoError(t, err)

	details, err := WithRepo(g, "team", func(repo *git.Repository) (CommitDetails, error) {
		return CommitChanges(repo, commitID)
	})
	require.NoError(t, err)

	assert.Equal(t, commitID, details.CommitID)
	assert.Equal(t, "first commit", details.CommitMessage)
	assert.Contains(t, details.Changes, "@@", "hunk headers preserved")
	assert.Contains(t, details.Changes, "+server:")
	assert.NotContains(t, details.Changes, "diff --git")
	assert.NotContains(t, details.Changes, "+++ ")
	assert.NotContains(t, details.Changes, "new file mode")
}

func TestCommitChanges_AbbreviatedID(t *testing.T) {
	g := newTestGateway(t)
	require.NoError(t, g.CreateNamespace("team"))

	commitID, err := WithRepo(g, "team", func(repo *git.Repository) (string, error) {
		return WriteAndCommit(repo, "app.yml", "a: 1\n", "dev@example.com", "add")
	})
	require.NoError(t, err)

	details, err := WithRepo(g, "team", func(repo *git.Repository) (CommitDetails, error) {
		return CommitChanges(repo, commitID[:8])
	})
	require.NoError(t, err)
	assert.Equal(t, commitID, details.CommitID)
}

func TestCommitChanges_UnknownCommit(t *testing.T) {
	g := newTestGateway(t)
	require.NoError(t, g.CreateNamespace("team"))
	_, err := WithRepo(g, "team", func(repo *git.Repository) (string, error) {
		return WriteAndCommit(repo, "app.yml", "a: 1\n", "dev@example.com", "add")
	})
	require.NoError(t, err)

	_, err = WithRepo(g, "team", func(repo *git.Repository) (CommitDetails, error) {
		return CommitChanges(repo, "deadbeefdeadbeefdeadbeefdeadbeefdeadbeef")
	})
	require.Error(t, err)
	assert.Equal(t, errs.CodeConfigFileNotFound, errs.CodeOf(err))
}

func TestStripDiffMetadata(t *testing.T) {
	raw := "diff --git a/app.yml b/app.yml\n" +
		"index 0000000..1111111 100644\n" +
		"--- a/app.yml\n" +
		"+++ b/app.yml\n" +
		"@@ -1,2 +1,2 @@\n" +
		" server:\n" +
		"-  port: 8080\n" +
		"+  port: 9090\n"

	cleaned := stripDiffMetadata(raw)
	assert.Equal(t, "@@ -1,2 +1,2 @@\n server:\n-  port: 8080\n+  port: 9090", cleaned)
}
