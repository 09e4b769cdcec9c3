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

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

const (
	defaultWorkers   = 4
	defaultQueueSize = 256
	requestTimeout   = 30 * time.Second
)

// task is one scheduled callback.
type task struct {
	namespace  string
	appName    string
	trackingID string
	url        string
}

// refreshPayload is the POST body sent to the callback URL.
type refreshPayload struct {
	AppName string `json:"appName"`
}

// Notifier owns a fixed worker pool draining a bounded queue of HTTP
// callbacks. Enqueues after Stop (or against a full queue) are recorded as
// FAILED rather than blocking the write path.
type Notifier struct {
	urls   map[string]string
	store  *Store
	client *http.Client
	log    logr.Logger

	queue  chan task
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewNotifier creates a notifier. urls maps namespaces to callback URLs;
// namespaces without an entry get no-op (immediately successful) refreshes.
func NewNotifier(urls map[string]string, store *Store, log logr.Logger) *Notifier {
	return &Notifier{
		urls:   urls,
		store:  store,
		client: &http.Client{Timeout: requestTimeout},
		log:    log.WithName("notifier"),
		queue:  make(chan task, defaultQueueSize),
	}
}

// Start launches the worker pool. Must be called once before SendRefresh.
func (n *Notifier) Start(ctx context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.started {
		return
	}
	n.started = true
	n.ctx, n.cancel = context.WithCancel(ctx)
	for i := 0; i < defaultWorkers; i++ {
		n.wg.Add(1)
		go n.worker()
	}
	n.log.Info("notifier started", "workers", defaultWorkers, "queueSize", defaultQueueSize)
}

// Stop refuses further enqueues, cancels in-flight requests, waits for the
// workers and marks anything still IN_PROGRESS as FAILED.
func (n *Notifier) Stop() {
	n.mu.Lock()
	if n.stopped || !n.started {
		n.stopped = true
		n.mu.Unlock()
		return
	}
	n.stopped = true
	n.mu.Unlock()

	n.cancel()
	n.wg.Wait()

	if failed := n.store.FailInProgress("shutdown"); failed > 0 {
		n.log.Info("marked pending notifications failed on shutdown", "count", failed)
	}
	n.log.Info("notifier stopped")
}

// SendRefresh records a notification and schedules the callback for the
// namespace. Never blocks and never returns an error; failures end up in
// the store.
func (n *Notifier) SendRefresh(namespace, appName, commitID string) string {
	trackingID := commitID
	if trackingID == "" {
		trackingID = fmt.Sprintf("notify-%d-%s", time.Now().UnixMilli(), appName)
	}

	n.store.Add(namespace, &Notification{
		TrackingID:    trackingID,
		AppName:       appName,
		Status:        StatusInProgress,
		InitiatedTime: time.Now(),
	})

	url, configured := n.urls[namespace]
	if !configured || url == "" {
		n.complete(namespace, trackingID, StatusSuccess, "no callback URL configured")
		return trackingID
	}

	n.mu.Lock()
	rejected := n.stopped || !n.started
	n.mu.Unlock()
	if rejected {
		n.complete(namespace, trackingID, StatusFailed, "notifier not running")
		return trackingID
	}

	select {
	case n.queue <- task{namespace: namespace, appName: appName, trackingID: trackingID, url: url}:
	default:
		n.log.Info("notification queue full, dropping callback",
			"namespace", namespace, "app", appName)
		n.complete(namespace, trackingID, StatusFailed, "queue full")
	}
	return trackingID
}

func (n *Notifier) worker() {
	defer n.wg.Done()
	for {
		select {
		case <-n.ctx.Done():
			return
		case t := <-n.queue:
			n.deliver(t)
		}
	}
}

// deliver POSTs the refresh payload and records the outcome. Errors never
// propagate past the store.
func (n *Notifier) deliver(t task) {
	body, err := json.Marshal(refreshPayload{AppName: t.appName})
	if err != nil {
		n.complete(t.namespace, t.trackingID, StatusFailed, err.Error())
		return
	}

	req, err := http.NewRequestWithContext(n.ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		n.complete(t.namespace, t.trackingID, StatusFailed, err.Error())
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.log.Error(err, "refresh callback failed", "namespace", t.namespace, "url", t.url)
		n.complete(t.namespace, t.trackingID, StatusFailed, err.Error())
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		n.complete(t.namespace, t.trackingID, StatusSuccess, "")
		return
	}
	n.log.Info("refresh callback rejected",
		"namespace", t.namespace, "url", t.url, "status", resp.StatusCode)
	n.complete(t.namespace, t.trackingID, StatusFailed,
		fmt.Sprintf("HTTP %d", resp.StatusCode))
}

func (n *Notifier) complete(namespace, trackingID, status, detail string) {
	now := time.Now()
	n.store.UpdateAtomic(namespace, trackingID, func(entry *Notification) {
		entry.Status = status
		entry.Detail = detail
		entry.CompletedTime = &now
	})
}
