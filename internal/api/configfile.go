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
	"net/http"

	"github.com/confvault/confserver/internal/errs"
	"github.com/confvault/confserver/internal/metrics"
	"github.com/confvault/confserver/internal/store"
)

// configRequest is the shared body of all /config endpoints; which fields
// are required depends on the action.
type configRequest struct {
	Action    string `json:"action"`
	AppName   string `json:"appName"`
	Namespace string `json:"namespace"`
	Path      string `json:"path"`
	Email     string `json:"email"`
	Content   string `json:"content"`
	Message   string `json:"message"`
	CommitID  string `json:"commitId"`
}

// handleConfigAction decodes the body, enforces that the declared action
// matches the endpoint, and dispatches.
func (s *Server) handleConfigAction(
	action string,
	handler func(w http.ResponseWriter, r *http.Request, reqID string, req configRequest),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqID := requestID()
		var req configRequest
		if err := decodeBody(r, &req); err != nil {
			s.writeError(w, r, reqID, err)
			return
		}
		if req.Action != action {
			s.writeError(w, r, reqID, errs.New(errs.CodeInvalidActionType,
				"action %q does not match endpoint action %q", req.Action, action))
			return
		}
		handler(w, r, reqID, req)
	}
}

func (s *Server) configCreate(w http.ResponseWriter, r *http.Request, reqID string, req configRequest) {
	commitID, err := s.store.Initialize(req.Namespace, req.Path, req.AppName, req.Email)
	if err != nil {
		s.writeError(w, r, reqID, err)
		return
	}
	metrics.AddCounter(r.Context(), metrics.ConfigWritesTotal, 1)
	s.log.Info("config created", "requestId", reqID,
		"namespace", req.Namespace, "path", req.Path, "commit", commitID)
	s.writeJSON(w, http.StatusCreated, map[string]string{
		"namespace": req.Namespace,
		"path":      req.Path,
		"commitId":  commitID,
	})
}

func (s *Server) configFetch(w http.ResponseWriter, r *http.Request, reqID string, req configRequest) {
	content, err := s.store.Read(req.Namespace, req.Path)
	if err != nil {
		s.writeError(w, r, reqID, err)
		return
	}
	commitID, err := s.store.LatestCommitID(req.Namespace, req.Path)
	if err != nil {
		s.writeError(w, r, reqID, err)
		return
	}
	metrics.AddCounter(r.Context(), metrics.ConfigReadsTotal, 1)
	s.writeJSON(w, http.StatusOK, map[string]string{
		"namespace": req.Namespace,
		"path":      req.Path,
		"content":   content,
		"commitId":  commitID,
	})
}

func (s *Server) configUpdate(w http.ResponseWriter, r *http.Request, reqID string, req configRequest) {
	commitID, err := s.store.Update(req.Namespace, req.Path, store.UpdatePayload{
		AppName:          req.AppName,
		Content:          req.Content,
		Message:          req.Message,
		Email:            req.Email,
		ExpectedCommitID: req.CommitID,
	})
	if err != nil {
		if errs.HasCode(err, errs.CodeConfigConflict) {
			metrics.AddCounter(r.Context(), metrics.ConfigConflictsTotal, 1)
		}
		s.writeError(w, r, reqID, err)
		return
	}
	metrics.AddCounter(r.Context(), metrics.ConfigWritesTotal, 1)
	s.log.Info("config updated", "requestId", reqID,
		"namespace", req.Namespace, "path", req.Path, "commit", commitID)
	s.writeJSON(w, http.StatusOK, map[string]string{
		"namespace": req.Namespace,
		"path":      req.Path,
		"commitId":  commitID,
	})
}

func (s *Server) configHistory(w http.ResponseWriter, r *http.Request, reqID string, req configRequest) {
	commits, err := s.store.History(req.Namespace, req.Path)
	if err != nil {
		s.writeError(w, r, reqID, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"filePath": req.Path,
		"commits":  commits,
	})
}

func (s *Server) configChanges(w http.ResponseWriter, r *http.Request, reqID string, req configRequest) {
	details, err := s.store.CommitChanges(req.Namespace, req.CommitID)
	if err != nil {
		s.writeError(w, r, reqID, err)
		return
	}
	s.writeJSON(w, http.StatusOK, details)
}

func (s *Server) configDelete(w http.ResponseWriter, r *http.Request, reqID string, req configRequest) {
	commitID, err := s.store.Delete(req.Namespace, req.Path, store.DeletePayload{
		Message: req.Message,
		Email:   req.Email,
	})
	if err != nil {
		s.writeError(w, r, reqID, err)
		return
	}
	metrics.AddCounter(r.Context(), metrics.ConfigWritesTotal, 1)
	s.log.Info("config deleted", "requestId", reqID,
		"namespace", req.Namespace, "path", req.Path, "commit", commitID)
	s.writeJSON(w, http.StatusOK, map[string]string{
		"namespace": req.Namespace,
		"path":      req.Path,
		"commitId":  commitID,
	})
}
