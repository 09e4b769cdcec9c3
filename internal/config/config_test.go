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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FullFile(t *testing.T) {
	path := writeConfig(t, `
configserver:
  basePath: /data/repos
  vaultMasterKey: c2VjcmV0LWtleQ==
  commitHistorySize: 10
  cacheTTL: 120
  refreshNotifyUrl:
    prod: http://callback.internal/refresh
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/repos", cfg.BasePath)
	assert.Equal(t, "c2VjcmV0LWtleQ==", cfg.VaultMasterKey)
	assert.Equal(t, 10, cfg.CommitHistorySize)
	assert.Equal(t, 2*time.Minute, cfg.CacheTTL())
	assert.Equal(t, "http://callback.internal/refresh", cfg.RefreshNotifyURL["prod"])
	assert.False(t, cfg.MasterKeyFromEnv)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
configserver:
  basePath: /data/repos
  vaultMasterKey: a2V5
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.CommitHistorySize)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL())
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, ":8081", cfg.MetricsAddr)
}

func TestLoad_MasterKeyEnvOverrides(t *testing.T) {
	t.Setenv("VAULT_MASTER_KEY", "ZW52LWtleQ==")
	path := writeConfig(t, `
configserver:
  basePath: /data/repos
  vaultMasterKey: ZmlsZS1rZXk=
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ZW52LWtleQ==", cfg.VaultMasterKey)
	assert.True(t, cfg.MasterKeyFromEnv)
}

func TestLoad_MissingBasePath(t *testing.T) {
	path := writeConfig(t, `
configserver:
  vaultMasterKey: a2V5
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "basePath")
}

func TestLoad_MissingMasterKey(t *testing.T) {
	path := writeConfig(t, `
configserver:
  basePath: /data/repos
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "master key")
}

func TestLoad_UnreadableFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}
