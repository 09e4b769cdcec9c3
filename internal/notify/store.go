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

// Package notify delivers refresh callbacks to client applications after
// config writes and keeps a bounded per-namespace record of the attempts.
package notify

import (
	"sort"
	"sync"
	"time"
)

// Notification statuses.
const (
	StatusInProgress = "IN_PROGRESS"
	StatusSuccess    = "SUCCESS"
	StatusFailed     = "FAILED"
)

// MaxPerNamespace bounds each namespace's notification list.
const MaxPerNamespace = 20

// Notification is one refresh attempt.
type Notification struct {
	TrackingID    string     `json:"id"`
	AppName       string     `json:"appName"`
	Status        string     `json:"status"`
	Detail        string     `json:"detail,omitempty"`
	InitiatedTime time.Time  `json:"initiatedTime"`
	CompletedTime *time.Time `json:"completedTime,omitempty"`
}

// Store is a per-namespace bounded FIFO of notifications. One mutex guards
// all lists; updates scan under the same lock that writers hold, so readers
// never observe a half-applied transform.
type Store struct {
	mu    sync.Mutex
	lists map[string][]*Notification
}

// NewStore creates an empty notification store.
func NewStore() *Store {
	return &Store{lists: make(map[string][]*Notification)}
}

// Add appends a notification, evicting the oldest entry when the namespace
// is at capacity.
func (s *Store) Add(namespace string, n *Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.lists[namespace]
	if len(list) >= MaxPerNamespace {
		list = list[1:]
	}
	s.lists[namespace] = append(list, n)
}

// UpdateAtomic finds the entry with trackingID (FIFO scan), applies
// transform in place preserving position, and returns the updated entry or
// nil when absent.
func (s *Store) UpdateAtomic(namespace, trackingID string, transform func(*Notification)) *Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.lists[namespace] {
		if n.TrackingID == trackingID {
			transform(n)
			return n
		}
	}
	return nil
}

// Recent returns up to max notifications sorted by initiation time, newest
// first. The returned slice holds copies.
func (s *Store) Recent(namespace string, max int) []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.lists[namespace]
	out := make([]Notification, 0, len(list))
	for _, n := range list {
		out = append(out, *n)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].InitiatedTime.After(out[j].InitiatedTime)
	})
	if len(out) > max {
		out = out[:max]
	}
	return out
}

// EvictNamespace drops all notifications of a namespace, used when the
// namespace itself is deleted.
func (s *Store) EvictNamespace(namespace string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lists, namespace)
}

// FailInProgress marks every IN_PROGRESS entry FAILED with the given detail
// and returns how many were changed. Called on shutdown.
func (s *Store) FailInProgress(detail string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	changed := 0
	for _, list := range s.lists {
		for _, n := range list {
			if n.Status == StatusInProgress {
				n.Status = StatusFailed
				n.Detail = detail
				n.CompletedTime = &now
				changed++
			}
		}
	}
	return changed
}
