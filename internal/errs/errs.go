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

// Package errs defines the coded errors shared by every component. Each
// error carries a stable machine-readable code and the HTTP status it maps
// to at the API boundary.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies an error category with a stable, machine-readable string.
type Code string

const (
	// Validation errors (400).
	CodeInvalidNamespace     Code = "INVALID_NAMESPACE"
	CodeInvalidPath          Code = "INVALID_PATH"
	CodeInvalidAppName       Code = "INVALID_APP_NAME"
	CodeInvalidEmail         Code = "INVALID_EMAIL"
	CodeInvalidCommitID      Code = "INVALID_COMMIT_ID"
	CodeInvalidContent       Code = "INVALID_CONTENT"
	CodeInvalidYAML          Code = "INVALID_YAML"
	CodeInvalidCommitMessage Code = "INVALID_COMMIT_MESSAGE"
	CodeMissingCommitID      Code = "MISSING_COMMIT_ID"
	CodeInvalidActionType    Code = "INVALID_ACTION_TYPE"

	// Namespace errors.
	CodeNamespaceNotFound      Code = "NAMESPACE_NOT_FOUND"
	CodeNamespaceAlreadyExists Code = "NAMESPACE_ALREADY_EXISTS"
	CodeNamespaceCreateFailed  Code = "NAMESPACE_CREATION_FAILED"

	// Configuration file errors.
	CodeConfigFileNotFound      Code = "CONFIG_FILE_NOT_FOUND"
	CodeConfigFileAlreadyExists Code = "CONFIG_FILE_ALREADY_EXISTS"
	CodeConfigFileReadFailed    Code = "CONFIG_FILE_READ_FAILED"
	CodeConfigFileUpdateFailed  Code = "CONFIG_FILE_UPDATE_FAILED"
	CodeConfigFileCreateFailed  Code = "CONFIG_FILE_CREATION_FAILED"

	// Optimistic concurrency.
	CodeConfigConflict Code = "CONFIG_CONFLICT"

	// Vault errors.
	CodeEncryptionFailed        Code = "ENCRYPTION_FAILED"
	CodeDecryptionFailed        Code = "DECRYPTION_FAILED"
	CodeKeyLoadFailed           Code = "KEY_LOAD_FAILED"
	CodeKeyInitializationFailed Code = "KEY_INITIALIZATION_FAILED"
	CodeVaultFileNotFound       Code = "VAULT_FILE_NOT_FOUND"
	CodeVaultOperationFailed    Code = "VAULT_OPERATION_FAILED"
	CodeSecretNotFound          Code = "SECRET_NOT_FOUND"

	// Git errors.
	CodeGitInitFailed             Code = "GIT_INIT_FAILED"
	CodeGitCommitFailed           Code = "GIT_COMMIT_FAILED"
	CodeGitLogFailed              Code = "GIT_LOG_FAILED"
	CodeGitDiffFailed             Code = "GIT_DIFF_FAILED"
	CodeGitRepositoryAccessFailed Code = "GIT_REPOSITORY_ACCESS_FAILED"

	// Fallback for anything uncategorized.
	CodeInternal Code = "INTERNAL_ERROR"
)

// statusByCode maps each code to the HTTP status returned to API callers.
var statusByCode = map[Code]int{
	CodeInvalidNamespace:     http.StatusBadRequest,
	CodeInvalidPath:          http.StatusBadRequest,
	CodeInvalidAppName:       http.StatusBadRequest,
	CodeInvalidEmail:         http.StatusBadRequest,
	CodeInvalidCommitID:      http.StatusBadRequest,
	CodeInvalidContent:       http.StatusBadRequest,
	CodeInvalidYAML:          http.StatusBadRequest,
	CodeInvalidCommitMessage: http.StatusBadRequest,
	CodeMissingCommitID:      http.StatusBadRequest,
	CodeInvalidActionType:    http.StatusBadRequest,

	CodeNamespaceNotFound:      http.StatusNotFound,
	CodeNamespaceAlreadyExists: http.StatusConflict,
	CodeNamespaceCreateFailed:  http.StatusInternalServerError,

	CodeConfigFileNotFound:      http.StatusNotFound,
	CodeConfigFileAlreadyExists: http.StatusConflict,
	CodeConfigFileReadFailed:    http.StatusInternalServerError,
	CodeConfigFileUpdateFailed:  http.StatusInternalServerError,
	CodeConfigFileCreateFailed:  http.StatusInternalServerError,

	CodeConfigConflict: http.StatusConflict,

	CodeEncryptionFailed:        http.StatusInternalServerError,
	CodeDecryptionFailed:        http.StatusInternalServerError,
	CodeKeyLoadFailed:           http.StatusInternalServerError,
	CodeKeyInitializationFailed: http.StatusInternalServerError,
	CodeVaultFileNotFound:       http.StatusNotFound,
	CodeVaultOperationFailed:    http.StatusInternalServerError,
	CodeSecretNotFound:          http.StatusNotFound,

	CodeGitInitFailed:             http.StatusInternalServerError,
	CodeGitCommitFailed:           http.StatusInternalServerError,
	CodeGitLogFailed:              http.StatusInternalServerError,
	CodeGitDiffFailed:             http.StatusInternalServerError,
	CodeGitRepositoryAccessFailed: http.StatusInternalServerError,

	CodeInternal: http.StatusInternalServerError,
}

// Error is a coded error. It wraps an optional cause and compares equal
// (via errors.Is) to any other Error with the same code.
type Error struct {
	Code    Code
	Message string
	cause   error
}

// New creates a coded error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a coded error wrapping an underlying cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error carrying the same code, so callers can test
// errors.Is(err, errs.New(errs.CodeConfigConflict, "")) or use HasCode.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// CodeOf extracts the code from err, or CodeInternal for uncoded errors.
func CodeOf(err error) Code {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return CodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// StatusOf returns the HTTP status for err's code.
func StatusOf(err error) int {
	if status, ok := statusByCode[CodeOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// MessageOf returns the human-readable message without the code prefix.
func MessageOf(err error) string {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Message
	}
	return "internal server error"
}
