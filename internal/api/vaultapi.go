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
)

func (s *Server) handleVaultGet(w http.ResponseWriter, r *http.Request) {
	reqID := requestID()
	var req namespaceRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, reqID, err)
		return
	}
	secrets, err := s.vaults.GetVault(req.Namespace)
	if err != nil {
		s.writeError(w, r, reqID, err)
		return
	}
	metrics.AddCounter(r.Context(), metrics.VaultOperationsTotal, 1)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"namespace": req.Namespace,
		"secrets":   secrets,
	})
}

// vaultUpdateReservedFields are body keys that are request metadata, not
// secrets. Everything else at the top level is treated as a secret entry.
var vaultUpdateReservedFields = map[string]struct{}{
	"namespace":     {},
	"email":         {},
	"commitMessage": {},
}

func (s *Server) handleVaultUpdate(w http.ResponseWriter, r *http.Request) {
	reqID := requestID()

	raw := map[string]any{}
	if err := decodeBody(r, &raw); err != nil {
		s.writeError(w, r, reqID, err)
		return
	}

	namespace, _ := raw["namespace"].(string)
	email, _ := raw["email"].(string)
	message, _ := raw["commitMessage"].(string)

	secrets := make(map[string]string)
	for key, value := range raw {
		if _, reserved := vaultUpdateReservedFields[key]; reserved {
			continue
		}
		text, ok := value.(string)
		if !ok {
			s.writeError(w, r, reqID, errs.New(errs.CodeInvalidContent,
				"secret %q must be a string value", key))
			return
		}
		secrets[key] = text
	}

	commitID, err := s.vaults.UpdateVault(namespace, secrets, email, message)
	if err != nil {
		s.writeError(w, r, reqID, err)
		return
	}
	metrics.AddCounter(r.Context(), metrics.VaultOperationsTotal, 1)
	s.log.Info("vault updated", "requestId", reqID,
		"namespace", namespace, "keys", len(secrets), "commit", commitID)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"namespace": namespace,
		"commitId":  commitID,
		"keys":      len(secrets),
	})
}
