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
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/confvault/confserver/internal/errs"
)

// commitDateFormat is the wire format for commit timestamps.
const commitDateFormat = "2006-01-02 15:04:05"

// CommitRecord is the canonical structured form of a commit returned by the
// API.
type CommitRecord struct {
	CommitID      string `json:"commitId"`
	Author        string `json:"author"`
	Email         string `json:"email"`
	Date          string `json:"date"`
	CommitMessage string `json:"commitMessage"`
}

// Signature derives the Git author from an email: the name is everything
// before the @.
func Signature(email string) *object.Signature {
	name := email
	if at := strings.Index(email, "@"); at > 0 {
		name = email[:at]
	}
	return &object.Signature{Name: name, Email: email, When: time.Now()}
}

func recordFromCommit(c *object.Commit) CommitRecord {
	return CommitRecord{
		CommitID:      c.Hash.String(),
		Author:        c.Author.Name,
		Email:         c.Author.Email,
		Date:          c.Author.When.Local().Format(commitDateFormat),
		CommitMessage: strings.TrimSpace(c.Message),
	}
}

// WriteAndCommit writes content to relPath inside the worktree, stages it
// and commits. Returns the new commit ID. Caller runs inside WithRepo.
func WriteAndCommit(repo *git.Repository, relPath, content, email, message string) (string, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return "", errs.Wrap(errs.CodeGitRepositoryAccessFailed, err, "failed to open worktree")
	}

	full := filepath.Join(wt.Filesystem.Root(), filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", errs.Wrap(errs.CodeConfigFileUpdateFailed, err, "failed to create parent directories")
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return "", errs.Wrap(errs.CodeConfigFileUpdateFailed, err, "failed to write %s", relPath)
	}

	if _, err := wt.Add(relPath); err != nil {
		return "", errs.Wrap(errs.CodeGitCommitFailed, err, "failed to stage %s", relPath)
	}
	hash, err := wt.Commit(message, &git.CommitOptions{Author: Signature(email)})
	if err != nil {
		return "", errs.Wrap(errs.CodeGitCommitFailed, err, "failed to commit %s", relPath)
	}
	return hash.String(), nil
}

// RemoveAndCommit deletes relPath from the worktree, stages the removal and
// commits.
func RemoveAndCommit(repo *git.Repository, relPath, email, message string) (string, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return "", errs.Wrap(errs.CodeGitRepositoryAccessFailed, err, "failed to open worktree")
	}
	if _, err := wt.Remove(relPath); err != nil {
		return "", errs.Wrap(errs.CodeGitCommitFailed, err, "failed to stage removal of %s", relPath)
	}
	hash, err := wt.Commit(message, &git.CommitOptions{Author: Signature(email)})
	if err != nil {
		return "", errs.Wrap(errs.CodeGitCommitFailed, err, "failed to commit removal of %s", relPath)
	}
	return hash.String(), nil
}

// FileExists reports whether relPath exists inside the repository worktree.
func FileExists(repo *git.Repository, relPath string) (bool, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return false, errs.Wrap(errs.CodeGitRepositoryAccessFailed, err, "failed to open worktree")
	}
	_, err = wt.Filesystem.Stat(relPath)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errs.Wrap(errs.CodeGitRepositoryAccessFailed, err, "failed to stat %s", relPath)
}

// ReadFile returns the worktree content of relPath.
func ReadFile(repo *git.Repository, relPath string) (string, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return "", errs.Wrap(errs.CodeGitRepositoryAccessFailed, err, "failed to open worktree")
	}
	full := filepath.Join(wt.Filesystem.Root(), filepath.FromSlash(relPath))
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errs.New(errs.CodeConfigFileNotFound, "file %q not found", relPath)
		}
		return "", errs.Wrap(errs.CodeConfigFileReadFailed, err, "failed to read %s", relPath)
	}
	return string(data), nil
}

// LatestCommitID returns the most recent commit touching relPath, walking
// back from HEAD.
func LatestCommitID(repo *git.Repository, relPath string) (string, error) {
	iter, err := repo.Log(&git.LogOptions{FileName: &relPath})
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", errs.New(errs.CodeConfigFileNotFound, "no commits for %q", relPath)
		}
		return "", errs.Wrap(errs.CodeGitLogFailed, err, "failed to walk log for %s", relPath)
	}
	defer iter.Close()

	commit, err := iter.Next()
	if err != nil {
		return "", errs.New(errs.CodeConfigFileNotFound, "no commits for %q", relPath)
	}
	return commit.Hash.String(), nil
}

// History returns up to limit commit records touching relPath, newest first.
func History(repo *git.Repository, relPath string, limit int) ([]CommitRecord, error) {
	iter, err := repo.Log(&git.LogOptions{FileName: &relPath})
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, errs.New(errs.CodeConfigFileNotFound, "no commits for %q", relPath)
		}
		return nil, errs.Wrap(errs.CodeGitLogFailed, err, "failed to walk log for %s", relPath)
	}
	defer iter.Close()

	records := make([]CommitRecord, 0, limit)
	for len(records) < limit {
		commit, err := iter.Next()
		if err != nil {
			break
		}
		records = append(records, recordFromCommit(commit))
	}
	if len(records) == 0 {
		return nil, errs.New(errs.CodeConfigFileNotFound, "no commits for %q", relPath)
	}
	return records, nil
}

// HeadCommits returns up to limit commit records from HEAD across the whole
// repository. An empty repository yields an empty slice.
func HeadCommits(repo *git.Repository, limit int) ([]CommitRecord, error) {
	iter, err := repo.Log(&git.LogOptions{})
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return []CommitRecord{}, nil
		}
		return nil, errs.Wrap(errs.CodeGitLogFailed, err, "failed to walk repository log")
	}
	defer iter.Close()

	records := make([]CommitRecord, 0, limit)
	for len(records) < limit {
		commit, err := iter.Next()
		if err != nil {
			break
		}
		records = append(records, recordFromCommit(commit))
	}
	return records, nil
}
