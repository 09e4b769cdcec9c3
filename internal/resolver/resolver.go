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

// Package resolver implements the pull-client contract: merge the layered
// config files of an application into one flat property source with decrypted
// secrets and a version identifier.
package resolver

import (
	"strings"

	"github.com/go-logr/logr"

	"github.com/confvault/confserver/internal/errs"
	"github.com/confvault/confserver/internal/secrets"
	"github.com/confvault/confserver/internal/store"
	"github.com/confvault/confserver/internal/validate"
	"github.com/confvault/confserver/internal/yamlops"
)

// defaultNamespace is used when the label is empty.
const defaultNamespace = "main"

// PropertySource is one named flat map of properties.
type PropertySource struct {
	Name   string         `json:"name"`
	Source map[string]any `json:"source"`
}

// Environment is the resolver response.
type Environment struct {
	Name            string           `json:"name"`
	Profiles        []string         `json:"profiles"`
	Label           string           `json:"label,omitempty"`
	Version         string           `json:"version,omitempty"`
	PropertySources []PropertySource `json:"propertySources"`
}

// Resolver merges config sources via the store and substitutes secrets via
// the processor.
type Resolver struct {
	store     *store.Store
	processor *secrets.Processor
	log       logr.Logger
}

// New wires a resolver.
func New(s *store.Store, p *secrets.Processor, log logr.Logger) *Resolver {
	return &Resolver{store: s, processor: p, log: log.WithName("resolver")}
}

// Resolve builds the merged environment for (application, profile, label).
// The label has the shape <namespace>[/<subpath>]; empty defaults to the
// "main" namespace.
func (r *Resolver) Resolve(application, profile, label string) (*Environment, error) {
	if err := validate.ResolveRequest(application, profile, label); err != nil {
		return nil, err
	}

	namespace, subPath := splitLabel(label)
	if err := validate.Namespace(namespace); err != nil {
		return nil, err
	}

	profiles := activeProfiles(profile)
	primary := joinPath(subPath, application+".yml")

	merged := map[string]any{}
	loaded := 0
	for _, relPath := range r.sourcePaths(application, profiles, subPath) {
		tree, ok := r.loadSource(namespace, relPath)
		if !ok {
			continue
		}
		merged = yamlops.DeepMerge(merged, tree)
		loaded++
	}
	if loaded == 0 {
		return nil, errs.New(errs.CodeConfigFileNotFound,
			"no configuration found for %q in namespace %q", primary, namespace)
	}

	source, err := r.substituteSecrets(namespace, yamlops.Flatten(merged))
	if err != nil {
		return nil, err
	}

	// Version is the tip commit of the application base file; best-effort
	// when only application.yml contributed.
	version := ""
	if commitID, err := r.store.LatestCommitID(namespace, primary); err == nil {
		version = commitID
	}

	profileLabel := "default"
	if profile != "" {
		profileLabel = profile
	}

	return &Environment{
		Name:     application,
		Profiles: profiles,
		Label:    label,
		Version:  version,
		PropertySources: []PropertySource{{
			Name:   "merged-" + application + "-" + profileLabel,
			Source: source,
		}},
	}, nil
}

// sourcePaths lists candidate files in merge order: namespace base,
// application base, then one overlay per profile (skipping "default").
func (r *Resolver) sourcePaths(application string, profiles []string, subPath string) []string {
	paths := []string{
		joinPath(subPath, "application.yml"),
		joinPath(subPath, application+".yml"),
	}
	for _, p := range profiles {
		if p == "default" {
			continue
		}
		paths = append(paths, joinPath(subPath, application+"-"+p+".yml"))
	}
	return paths
}

// loadSource reads and parses one source file. Missing and malformed files
// are skipped per the best-effort read policy; malformed files are logged.
func (r *Resolver) loadSource(namespace, relPath string) (map[string]any, bool) {
	content, err := r.store.Read(namespace, relPath)
	if err != nil {
		if errs.HasCode(err, errs.CodeConfigFileNotFound) {
			r.log.V(1).Info("source file absent, skipping", "namespace", namespace, "path", relPath)
		} else {
			r.log.Error(err, "failed to read source, skipping", "namespace", namespace, "path", relPath)
		}
		return nil, false
	}
	tree, err := yamlops.Parse(content)
	if err != nil {
		r.log.Error(err, "malformed source, skipping", "namespace", namespace, "path", relPath)
		return nil, false
	}
	return tree, true
}

// substituteSecrets round-trips the flattened map through client-mode secret
// processing, so vault keys resolve to their decrypted values. Substitution
// is best-effort: on failure the merged properties are served as-is.
func (r *Resolver) substituteSecrets(namespace string, flat map[string]any) (map[string]any, error) {
	text, err := yamlops.Dump(flat)
	if err != nil {
		return nil, err
	}
	resolved, err := r.processor.ForClient(text, namespace)
	if err != nil {
		r.log.Error(err, "secret substitution failed, serving unsubstituted properties",
			"namespace", namespace)
		return flat, nil
	}
	return yamlops.Parse(resolved)
}

// splitLabel separates <namespace>[/<subpath>].
func splitLabel(label string) (namespace, subPath string) {
	clean := strings.Trim(strings.TrimSpace(label), "/")
	if clean == "" {
		return defaultNamespace, ""
	}
	if slash := strings.Index(clean, "/"); slash >= 0 {
		return clean[:slash], clean[slash+1:]
	}
	return clean, ""
}

// activeProfiles splits the comma-separated profile list, trimming entries;
// empty input means the default profile.
func activeProfiles(profile string) []string {
	clean := strings.TrimSpace(profile)
	if clean == "" {
		return []string{"default"}
	}
	parts := strings.Split(clean, ",")
	profiles := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			profiles = append(profiles, trimmed)
		}
	}
	return profiles
}

func joinPath(subPath, file string) string {
	if subPath == "" {
		return file
	}
	return subPath + "/" + file
}
