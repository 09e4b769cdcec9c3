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

// Package api exposes the management endpoints and the pull-client resolver
// over HTTP. Handlers validate, delegate to the domain packages and map
// coded errors to statuses; no business logic lives here.
package api

import (
	"net/http"

	"github.com/go-logr/logr"

	"github.com/confvault/confserver/internal/notify"
	"github.com/confvault/confserver/internal/resolver"
	"github.com/confvault/confserver/internal/store"
	"github.com/confvault/confserver/internal/vault"
)

// Server holds the handler dependencies.
type Server struct {
	store         *store.Store
	vaults        *vault.Store
	resolver      *resolver.Resolver
	notifications *notify.Store
	log           logr.Logger
}

// NewServer wires the HTTP layer.
func NewServer(
	s *store.Store,
	vaults *vault.Store,
	r *resolver.Resolver,
	notifications *notify.Store,
	log logr.Logger,
) *Server {
	return &Server{
		store:         s,
		vaults:        vaults,
		resolver:      r,
		notifications: notifications,
		log:           log.WithName("api"),
	}
}

// Routes builds the request multiplexer. Management endpoints are POST-only;
// the resolver answers GET with path parameters.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /namespace/create", s.handleNamespaceCreate)
	mux.HandleFunc("POST /namespace/list", s.handleNamespaceList)
	mux.HandleFunc("POST /namespace/files", s.handleNamespaceFiles)
	mux.HandleFunc("POST /namespace/delete", s.handleNamespaceDelete)
	mux.HandleFunc("POST /namespace/events", s.handleNamespaceEvents)
	mux.HandleFunc("POST /namespace/notify", s.handleNamespaceNotify)

	mux.HandleFunc("POST /config/create", s.handleConfigAction("create", s.configCreate))
	mux.HandleFunc("POST /config/fetch", s.handleConfigAction("fetch", s.configFetch))
	mux.HandleFunc("POST /config/update", s.handleConfigAction("update", s.configUpdate))
	mux.HandleFunc("POST /config/history", s.handleConfigAction("history", s.configHistory))
	mux.HandleFunc("POST /config/changes", s.handleConfigAction("changes", s.configChanges))
	mux.HandleFunc("POST /config/delete", s.handleConfigAction("delete", s.configDelete))

	mux.HandleFunc("POST /vault/get", s.handleVaultGet)
	mux.HandleFunc("POST /vault/update", s.handleVaultUpdate)

	mux.HandleFunc("GET /{application}/{profile}", s.handleResolve)
	mux.HandleFunc("GET /{application}/{profile}/{label...}", s.handleResolve)

	return mux
}
