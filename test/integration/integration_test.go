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

package integration

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/confvault/confserver/internal/api"
	"github.com/confvault/confserver/internal/cache"
	"github.com/confvault/confserver/internal/gitrepo"
	"github.com/confvault/confserver/internal/notify"
	"github.com/confvault/confserver/internal/resolver"
	"github.com/confvault/confserver/internal/secrets"
	"github.com/confvault/confserver/internal/store"
	"github.com/confvault/confserver/internal/vault"
)

const (
	testNamespace = "prod"
	testEmail     = "dev@example.com"
)

// harness wires the full server stack the way cmd/main.go does, backed by a
// temporary base directory and an in-process callback receiver.
type harness struct {
	server    *httptest.Server
	callback  *httptest.Server
	records   *notify.Store
	notifier  *notify.Notifier
	baseDir   string
	callbacks atomic.Int64
}

func newHarness(refreshForNamespace bool) *harness {
	log := logr.Discard()

	baseDir, err := os.MkdirTemp("", "confserver-it-*")
	Expect(err).NotTo(HaveOccurred())

	h := &harness{baseDir: baseDir}
	h.callback = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.callbacks.Add(1)
		w.WriteHeader(http.StatusOK)
	}))

	urls := map[string]string{}
	if refreshForNamespace {
		urls[testNamespace] = h.callback.URL
	}

	gateway := gitrepo.NewGateway(baseDir, log)
	c := cache.New(time.Minute, 500)
	invalidator := cache.NewInvalidator(c, log)

	key := base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
	cipher, err := vault.NewCipher(key, true, log)
	Expect(err).NotTo(HaveOccurred())
	vaults := vault.NewStore(gateway, cipher, c, invalidator, log)

	h.records = notify.NewStore()
	h.notifier = notify.NewNotifier(urls, h.records, log)
	h.notifier.Start(context.Background())

	processor := secrets.NewProcessor(vaults, log)
	configStore := store.New(gateway, processor, h.notifier, c, invalidator, 20, log)
	res := resolver.New(configStore, processor, log)

	h.server = httptest.NewServer(api.NewServer(configStore, vaults, res, h.records, log).Routes())
	return h
}

func (h *harness) close() {
	h.server.Close()
	h.notifier.Stop()
	h.callback.Close()
	_ = os.RemoveAll(h.baseDir)
}

// post sends a JSON body and decodes the JSON response.
func (h *harness) post(path string, body map[string]any) (int, map[string]any) {
	payload, err := json.Marshal(body)
	Expect(err).NotTo(HaveOccurred())

	resp, err := http.Post(h.server.URL+path, "application/json", bytes.NewReader(payload))
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	decoded := map[string]any{}
	Expect(json.NewDecoder(resp.Body).Decode(&decoded)).To(Succeed())
	return resp.StatusCode, decoded
}

func (h *harness) get(path string) (int, map[string]any) {
	resp, err := http.Get(h.server.URL + path)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	decoded := map[string]any{}
	Expect(json.NewDecoder(resp.Body).Decode(&decoded)).To(Succeed())
	return resp.StatusCode, decoded
}

func (h *harness) createNamespace(name string) {
	status, _ := h.post("/namespace/create", map[string]any{"namespace": name})
	Expect(status).To(Equal(http.StatusCreated))
}

func (h *harness) createConfig(appName, path string) string {
	status, body := h.post("/config/create", map[string]any{
		"action": "create", "appName": appName, "namespace": testNamespace,
		"path": path, "email": testEmail,
	})
	Expect(status).To(Equal(http.StatusCreated))
	return body["commitId"].(string)
}

var _ = Describe("Config server", func() {
	var h *harness

	AfterEach(func() {
		if h != nil {
			h.close()
			h = nil
		}
	})

	Describe("config file lifecycle", func() {
		BeforeEach(func() {
			h = newHarness(false)
			h.createNamespace(testNamespace)
		})

		It("serves the rendered template after create", func() {
			commitID := h.createConfig("user-svc", "user-svc.yml")
			Expect(commitID).To(HaveLen(40))

			status, body := h.post("/config/fetch", map[string]any{
				"action": "fetch", "appName": "user-svc", "namespace": testNamespace,
				"path": "user-svc.yml", "email": testEmail,
			})
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["commitId"]).To(Equal(commitID))
			Expect(body["content"]).To(ContainSubstring("port: 8080"))
			Expect(body["content"]).To(ContainSubstring("context-path: /user-svc"))
			Expect(body["content"]).To(ContainSubstring("name: user-svc"))
		})

		It("lets exactly one of two concurrent updates win", func() {
			commitID := h.createConfig("user-svc", "user-svc.yml")

			statuses := make([]int, 2)
			codes := make([]string, 2)
			var wg sync.WaitGroup
			for i := 0; i < 2; i++ {
				wg.Add(1)
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()
					status, body := h.post("/config/update", map[string]any{
						"action": "update", "appName": "user-svc", "namespace": testNamespace,
						"path": "user-svc.yml", "email": testEmail,
						"content": "writer: " + string(rune('a'+i)) + "\n",
						"message": "race", "commitId": commitID,
					})
					statuses[i] = status
					if code, ok := body["errorCode"].(string); ok {
						codes[i] = code
					}
				}(i)
			}
			wg.Wait()

			Expect(statuses).To(ConsistOf(http.StatusOK, http.StatusConflict))
			Expect(codes).To(ContainElement("CONFIG_CONFLICT"))
		})

		It("returns 404 for configs in a deleted namespace", func() {
			h.createConfig("user-svc", "user-svc.yml")

			status, _ := h.post("/namespace/delete", map[string]any{"namespace": testNamespace})
			Expect(status).To(Equal(http.StatusOK))

			status, body := h.post("/config/fetch", map[string]any{
				"action": "fetch", "appName": "user-svc", "namespace": testNamespace,
				"path": "user-svc.yml", "email": testEmail,
			})
			Expect(status).To(Equal(http.StatusNotFound))
			Expect(body["errorCode"]).To(Equal("NAMESPACE_NOT_FOUND"))
		})
	})

	Describe("vault and environment resolution", func() {
		BeforeEach(func() {
			h = newHarness(false)
			h.createNamespace(testNamespace)
		})

		It("substitutes vault secrets for pull clients and redacts them for editors", func() {
			commitID := h.createConfig("user-svc", "user-svc.yml")

			status, _ := h.post("/vault/update", map[string]any{
				"namespace": testNamespace, "email": testEmail, "commitMessage": "add secrets",
				"db.password": "s3cret",
			})
			Expect(status).To(Equal(http.StatusOK))

			status, body := h.post("/config/update", map[string]any{
				"action": "update", "appName": "user-svc", "namespace": testNamespace,
				"path": "user-svc.yml", "email": testEmail,
				"content": "db:\n  password: placeholder-me\n  host: localhost\n",
				"message": "wire db", "commitId": commitID,
			})
			Expect(status).To(Equal(http.StatusOK))
			version := body["commitId"].(string)

			// Editors fetching the raw file see the placeholder, never the
			// plaintext secret.
			status, body = h.post("/config/fetch", map[string]any{
				"action": "fetch", "appName": "user-svc", "namespace": testNamespace,
				"path": "user-svc.yml", "email": testEmail,
			})
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["content"]).To(ContainSubstring("password: <ENCRYPTED_VALUE>"))
			Expect(body["content"]).NotTo(ContainSubstring("s3cret"))
			Expect(body["content"]).NotTo(ContainSubstring("placeholder-me"))

			// Pull clients get the real value back.
			status, env := h.get("/user-svc/default/" + testNamespace)
			Expect(status).To(Equal(http.StatusOK))
			Expect(env["name"]).To(Equal("user-svc"))
			Expect(env["version"]).To(Equal(version))

			sources := env["propertySources"].([]any)
			Expect(sources).To(HaveLen(1))
			source := sources[0].(map[string]any)["source"].(map[string]any)
			Expect(source["db.password"]).To(Equal("s3cret"))
			Expect(source["db.host"]).To(Equal("localhost"))
		})

		It("layers profile files over the application base", func() {
			base := h.createConfig("user-svc", "user-svc.yml")
			status, _ := h.post("/config/update", map[string]any{
				"action": "update", "appName": "user-svc", "namespace": testNamespace,
				"path": "user-svc.yml", "email": testEmail,
				"content": "server:\n  port: 8080\nfeature: base\n",
				"message": "base", "commitId": base,
			})
			Expect(status).To(Equal(http.StatusOK))

			profile := h.createConfig("user-svc", "user-svc-staging.yml")
			status, _ = h.post("/config/update", map[string]any{
				"action": "update", "appName": "user-svc", "namespace": testNamespace,
				"path": "user-svc-staging.yml", "email": testEmail,
				"content": "server:\n  port: 7070\n",
				"message": "staging override", "commitId": profile,
			})
			Expect(status).To(Equal(http.StatusOK))

			status, env := h.get("/user-svc/staging/" + testNamespace)
			Expect(status).To(Equal(http.StatusOK))
			Expect(env["profiles"]).To(Equal([]any{"staging"}))

			sources := env["propertySources"].([]any)
			Expect(sources).To(HaveLen(1))
			source := sources[0].(map[string]any)["source"].(map[string]any)
			Expect(source["server.port"]).To(Equal(float64(7070)))
			Expect(source["feature"]).To(Equal("base"))
		})
	})

	Describe("refresh notifications", func() {
		BeforeEach(func() {
			h = newHarness(true)
			h.createNamespace(testNamespace)
		})

		It("delivers the callback and records a SUCCESS outcome", func() {
			commitID := h.createConfig("user-svc", "user-svc.yml")

			status, body := h.post("/config/update", map[string]any{
				"action": "update", "appName": "user-svc", "namespace": testNamespace,
				"path": "user-svc.yml", "email": testEmail,
				"content": "a: 1\n", "message": "trigger refresh", "commitId": commitID,
			})
			Expect(status).To(Equal(http.StatusOK))
			updateCommit := body["commitId"].(string)

			Eventually(func() string {
				_, body := h.post("/namespace/notify", map[string]any{"namespace": testNamespace})
				notifications, _ := body["notifications"].([]any)
				for _, raw := range notifications {
					n := raw.(map[string]any)
					if n["id"] == updateCommit {
						return n["status"].(string)
					}
				}
				return ""
			}, 5*time.Second, 50*time.Millisecond).Should(Equal("SUCCESS"))

			Expect(h.callbacks.Load()).To(BeNumerically(">=", 1))
		})

		It("drops notification history when the namespace is deleted", func() {
			commitID := h.createConfig("user-svc", "user-svc.yml")
			status, _ := h.post("/config/update", map[string]any{
				"action": "update", "appName": "user-svc", "namespace": testNamespace,
				"path": "user-svc.yml", "email": testEmail,
				"content": "a: 1\n", "message": "update", "commitId": commitID,
			})
			Expect(status).To(Equal(http.StatusOK))

			Eventually(func() int {
				_, body := h.post("/namespace/notify", map[string]any{"namespace": testNamespace})
				notifications, _ := body["notifications"].([]any)
				return len(notifications)
			}, 5*time.Second, 50*time.Millisecond).Should(BeNumerically(">=", 1))

			status, _ = h.post("/namespace/delete", map[string]any{"namespace": testNamespace})
			Expect(status).To(Equal(http.StatusOK))

			Expect(h.records.Recent(testNamespace, notify.MaxPerNamespace)).To(BeEmpty())
		})
	})
})
