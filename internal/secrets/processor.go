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

// Package secrets rewrites secret-bearing leaves of YAML documents. Client
// mode substitutes decrypted vault values; internal mode redacts them, so
// management surfaces never see plaintext and pull clients never see
// placeholders.
package secrets

import (
	"strings"

	"github.com/go-logr/logr"
	"gopkg.in/yaml.v3"

	"github.com/confvault/confserver/internal/errs"
)

// Placeholder replaces secret values on internal surfaces. It must never be
// returned to pull clients.
const Placeholder = "<ENCRYPTED_VALUE>"

// VaultReader supplies the decrypted secret map of a namespace. Declared
// here so this package does not depend on the vault store.
type VaultReader interface {
	GetVault(namespace string) (map[string]string, error)
}

// Processor walks YAML documents and applies one of the two leaf
// transformations.
type Processor struct {
	vaults VaultReader
	log    logr.Logger
}

// NewProcessor wires the processor to a vault reader.
func NewProcessor(vaults VaultReader, log logr.Logger) *Processor {
	return &Processor{vaults: vaults, log: log.WithName("secrets")}
}

// ForClient substitutes every leaf whose dotted path is a vault key with the
// decrypted value. A literal placeholder without a matching vault entry is
// logged and left as is.
func (p *Processor) ForClient(yamlText, namespace string) (string, error) {
	vault, err := p.vaults.GetVault(namespace)
	if err != nil {
		return "", err
	}
	return p.rewrite(yamlText, func(path string, leaf *yaml.Node) {
		value, present := vault[path]
		if present {
			setScalar(leaf, value)
			return
		}
		if leaf.Value == Placeholder {
			p.log.Info("orphaned placeholder: no vault entry for key", "namespace", namespace, "key", path)
		}
	})
}

// ForInternal overwrites every leaf whose dotted path is a vault key with
// the placeholder.
func (p *Processor) ForInternal(yamlText, namespace string) (string, error) {
	vault, err := p.vaults.GetVault(namespace)
	if err != nil {
		return "", err
	}
	return p.rewrite(yamlText, func(path string, leaf *yaml.Node) {
		if _, present := vault[path]; present {
			setScalar(leaf, Placeholder)
		}
	})
}

// rewrite parses the text into a node tree (preserving key order and
// comments), applies leafOp to every scalar mapping leaf, and re-dumps.
func (p *Processor) rewrite(yamlText string, leafOp func(path string, leaf *yaml.Node)) (string, error) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(yamlText), &root); err != nil {
		return "", errs.Wrap(errs.CodeInvalidYAML, err, "failed to parse YAML")
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return yamlText, nil
	}
	walk(root.Content[0], "", leafOp)

	var sb strings.Builder
	enc := yaml.NewEncoder(&sb)
	enc.SetIndent(2)
	if err := enc.Encode(root.Content[0]); err != nil {
		return "", errs.Wrap(errs.CodeInternal, err, "failed to serialize YAML")
	}
	if err := enc.Close(); err != nil {
		return "", errs.Wrap(errs.CodeInternal, err, "failed to serialize YAML")
	}
	return sb.String(), nil
}

// walk descends mapping nodes, building the dotted path. Sequences are
// leaves: vault keys never address into lists.
func walk(node *yaml.Node, prefix string, leafOp func(path string, leaf *yaml.Node)) {
	if node.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		path := key.Value
		if prefix != "" {
			path = prefix + "." + key.Value
		}
		switch value.Kind {
		case yaml.MappingNode:
			walk(value, path, leafOp)
		case yaml.ScalarNode:
			leafOp(path, value)
		}
	}
}

// setScalar rewrites a leaf as a plain string scalar, dropping any tag the
// previous value carried.
func setScalar(leaf *yaml.Node, value string) {
	leaf.SetString(value)
}
