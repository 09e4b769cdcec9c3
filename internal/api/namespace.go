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

	"github.com/confvault/confserver/internal/notify"
)

type namespaceRequest struct {
	Namespace string `json:"namespace"`
	Path      string `json:"path"`
}

func (s *Server) handleNamespaceCreate(w http.ResponseWriter, r *http.Request) {
	reqID := requestID()
	var req namespaceRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, reqID, err)
		return
	}
	if err := s.store.CreateNamespace(req.Namespace); err != nil {
		s.writeError(w, r, reqID, err)
		return
	}
	s.log.Info("namespace created", "requestId", reqID, "namespace", req.Namespace)
	s.writeJSON(w, http.StatusCreated, map[string]string{
		"namespace": req.Namespace,
		"message":   "namespace created",
	})
}

func (s *Server) handleNamespaceList(w http.ResponseWriter, r *http.Request) {
	reqID := requestID()
	namespaces, err := s.store.ListNamespaces()
	if err != nil {
		s.writeError(w, r, reqID, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"namespaces": namespaces,
		"total":      len(namespaces),
	})
}

func (s *Server) handleNamespaceFiles(w http.ResponseWriter, r *http.Request) {
	reqID := requestID()
	var req namespaceRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, reqID, err)
		return
	}
	files, err := s.store.ListDirectory(req.Namespace, req.Path)
	if err != nil {
		s.writeError(w, r, reqID, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"namespace": req.Namespace,
		"path":      req.Path,
		"files":     files,
	})
}

func (s *Server) handleNamespaceDelete(w http.ResponseWriter, r *http.Request) {
	reqID := requestID()
	var req namespaceRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, reqID, err)
		return
	}
	if err := s.store.DeleteNamespace(req.Namespace); err != nil {
		s.writeError(w, r, reqID, err)
		return
	}
	s.notifications.EvictNamespace(req.Namespace)
	s.log.Info("namespace deleted", "requestId", reqID, "namespace", req.Namespace)
	s.writeJSON(w, http.StatusOK, map[string]string{
		"namespace": req.Namespace,
		"message":   "namespace deleted",
	})
}

func (s *Server) handleNamespaceEvents(w http.ResponseWriter, r *http.Request) {
	reqID := requestID()
	var req namespaceRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, reqID, err)
		return
	}
	commits, err := s.store.NamespaceEvents(req.Namespace)
	if err != nil {
		s.writeError(w, r, reqID, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"namespace":    req.Namespace,
		"commits":      commits,
		"totalCommits": len(commits),
	})
}

func (s *Server) handleNamespaceNotify(w http.ResponseWriter, r *http.Request) {
	reqID := requestID()
	var req namespaceRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, reqID, err)
		return
	}
	notifications := s.notifications.Recent(req.Namespace, notify.MaxPerNamespace)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"namespace":          req.Namespace,
		"notifications":      notifications,
		"totalNotifications": len(notifications),
		"maxNotifications":   notify.MaxPerNamespace,
	})
}
