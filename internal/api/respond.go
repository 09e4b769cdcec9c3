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

package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/confvault/confserver/internal/errs"
	"github.com/confvault/confserver/internal/metrics"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}

// requestID returns a short correlation id for log lines.
func requestID() string {
	return uuid.NewString()[:8]
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error(err, "failed to encode response")
	}
}

// writeError maps a coded error to its HTTP status. Uncoded errors become a
// generic 500; the cause is logged, never returned.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, reqID string, err error) {
	status := errs.StatusOf(err)
	code := errs.CodeOf(err)
	if status >= http.StatusInternalServerError {
		s.log.Error(err, "request failed", "requestId", reqID, "path", r.URL.Path)
	} else {
		s.log.V(1).Info("request rejected",
			"requestId", reqID, "path", r.URL.Path, "code", string(code))
	}
	metrics.AddCounter(r.Context(), metrics.RequestErrorsTotal, 1)
	s.writeJSON(w, status, errorBody{
		ErrorCode: string(code),
		Message:   errs.MessageOf(err),
	})
}

// decodeBody parses the JSON request body into dst.
func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errs.Wrap(errs.CodeInvalidContent, err, "invalid JSON request body")
	}
	return nil
}
