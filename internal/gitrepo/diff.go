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
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/confvault/confserver/internal/errs"
)

// CommitDetails is the metadata plus cleaned unified diff of one commit.
type CommitDetails struct {
	CommitID      string `json:"commitId"`
	CommitMessage string `json:"commitMessage"`
	Author        string `json:"author"`
	CommitTime    string `json:"commitTime"`
	Changes       string `json:"changes"`
}

// diffMetadataPrefixes are the unified-diff header lines stripped from the
// returned diff. Hunk headers (@@) and content lines are kept. Matching is
// by prefix, so a YAML value line that itself starts with one of these
// prefixes inside a hunk would be removed too; known limitation.
var diffMetadataPrefixes = []string{
	"diff --git",
	"index ",
	"--- ",
	"+++ ",
	"new file mode",
	"deleted file mode",
	"similarity index",
	"rename from",
	"rename to",
	"copy from",
	"copy to",
}

// CommitChanges resolves commitID (full or abbreviated), diffs the commit
// against its first parent (or the empty tree for a root commit) and returns
// metadata plus the cleaned diff.
func CommitChanges(repo *git.Repository, commitID string) (CommitDetails, error) {
	var details CommitDetails

	hash, err := repo.ResolveRevision(plumbing.Revision(commitID))
	if err != nil {
		return details, errs.Wrap(errs.CodeConfigFileNotFound, err, "commit %q not found", commitID)
	}
	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return details, errs.Wrap(errs.CodeConfigFileNotFound, err, "commit %q not found", commitID)
	}

	commitTree, err := commit.Tree()
	if err != nil {
		return details, errs.Wrap(errs.CodeGitDiffFailed, err, "failed to load commit tree")
	}

	var parentTree *object.Tree
	if commit.NumParents() > 0 {
		parent, err := commit.Parent(0)
		if err != nil {
			return details, errs.Wrap(errs.CodeGitDiffFailed, err, "failed to load parent commit")
		}
		parentTree, err = parent.Tree()
		if err != nil {
			return details, errs.Wrap(errs.CodeGitDiffFailed, err, "failed to load parent tree")
		}
	}

	changes, err := object.DiffTree(parentTree, commitTree)
	if err != nil {
		return details, errs.Wrap(errs.CodeGitDiffFailed, err, "failed to diff commit %s", commitID)
	}
	patch, err := changes.Patch()
	if err != nil {
		return details, errs.Wrap(errs.CodeGitDiffFailed, err, "failed to render diff for %s", commitID)
	}

	details = CommitDetails{
		CommitID:      commit.Hash.String(),
		CommitMessage: strings.TrimSpace(commit.Message),
		Author:        commit.Author.Name,
		CommitTime:    commit.Author.When.Local().Format(commitDateFormat),
		Changes:       stripDiffMetadata(patch.String()),
	}
	return details, nil
}

// stripDiffMetadata removes header lines while preserving hunk headers and
// content lines.
func stripDiffMetadata(diff string) string {
	lines := strings.Split(diff, "\n")
	kept := make([]string, 0, len(lines))
lineLoop:
	for _, line := range lines {
		for _, prefix := range diffMetadataPrefixes {
			if strings.HasPrefix(line, prefix) {
				continue lineLoop
			}
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
