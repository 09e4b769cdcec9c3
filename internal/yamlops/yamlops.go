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

// Package yamlops provides the YAML tree operations behind config
// resolution: parse, dump, deep merge, and dot-notation flattening.
package yamlops

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/confvault/confserver/internal/errs"
)

// Parse decodes a single YAML document into a string-keyed map. An empty
// document yields an empty map; a non-mapping top level is an error.
func Parse(content string) (map[string]any, error) {
	var raw any
	if err := yaml.Unmarshal([]byte(content), &raw); err != nil {
		return nil, errs.Wrap(errs.CodeInvalidYAML, err, "failed to parse YAML")
	}
	if raw == nil {
		return map[string]any{}, nil
	}
	tree, ok := normalize(raw).(map[string]any)
	if !ok {
		return nil, errs.New(errs.CodeInvalidYAML, "top-level YAML structure must be a mapping")
	}
	return tree, nil
}

// Dump serializes a tree back to YAML with two-space indentation. Keys come
// out sorted, which keeps output deterministic across calls.
func Dump(tree map[string]any) (string, error) {
	var sb strings.Builder
	enc := yaml.NewEncoder(&sb)
	enc.SetIndent(2)
	if err := enc.Encode(tree); err != nil {
		return "", errs.Wrap(errs.CodeInternal, err, "failed to serialize YAML")
	}
	if err := enc.Close(); err != nil {
		return "", errs.Wrap(errs.CodeInternal, err, "failed to serialize YAML")
	}
	return sb.String(), nil
}

// DeepMerge merges override into base, recursing where both sides hold
// mappings. Any other collision replaces the base value wholesale; lists are
// replaced, never concatenated. Neither input is mutated.
func DeepMerge(base, override map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(override))
	for key, value := range base {
		merged[key] = value
	}
	for key, value := range override {
		baseMap, baseOK := merged[key].(map[string]any)
		overrideMap, overrideOK := value.(map[string]any)
		if baseOK && overrideOK {
			merged[key] = DeepMerge(baseMap, overrideMap)
			continue
		}
		merged[key] = value
	}
	return merged
}

// Flatten converts a nested tree to dot-notation keys. Sequences stay
// whole as leaf values; scalar leaves keep their parsed type.
func Flatten(tree map[string]any) map[string]any {
	flat := make(map[string]any)
	flattenInto(flat, "", tree)
	return flat
}

func flattenInto(flat map[string]any, prefix string, tree map[string]any) {
	for key, value := range tree {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if child, ok := value.(map[string]any); ok {
			if len(child) == 0 {
				flat[full] = child
				continue
			}
			flattenInto(flat, full, child)
			continue
		}
		flat[full] = value
	}
}

// Unflatten rebuilds a nested tree from dot-notation keys. When a scalar and
// a deeper path collide (e.g. "a" and "a.b"), the deeper path wins.
func Unflatten(flat map[string]any) map[string]any {
	tree := make(map[string]any)
	keys := make([]string, 0, len(flat))
	for key := range flat {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		segments := strings.Split(key, ".")
		node := tree
		for _, segment := range segments[:len(segments)-1] {
			child, ok := node[segment].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[segment] = child
			}
			node = child
		}
		last := segments[len(segments)-1]
		if _, occupied := node[last].(map[string]any); !occupied {
			node[last] = flat[key]
		}
	}
	return tree
}

// normalize rewrites map[any]any trees (as yaml.v2 would produce) and
// stringifies non-string keys, so the rest of the package only ever sees
// map[string]any.
func normalize(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, child := range typed {
			out[key] = normalize(child)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(typed))
		for key, child := range typed {
			out[fmt.Sprintf("%v", key)] = normalize(child)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, child := range typed {
			out[i] = normalize(child)
		}
		return out
	default:
		return value
	}
}
