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

	"github.com/confvault/confserver/internal/metrics"
)

// handleResolve serves the pull-client contract:
// GET /{application}/{profile}[/{label...}].
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	reqID := requestID()
	application := r.PathValue("application")
	profile := r.PathValue("profile")
	label := r.PathValue("label")

	if profile == "default" {
		profile = ""
	}

	env, err := s.resolver.Resolve(application, profile, label)
	if err != nil {
		s.writeError(w, r, reqID, err)
		return
	}
	metrics.AddCounter(r.Context(), metrics.ResolveRequestsTotal, 1)
	s.log.V(1).Info("resolved environment", "requestId", reqID,
		"application", application, "profile", profile, "label", label, "version", env.Version)
	s.writeJSON(w, http.StatusOK, env)
}
