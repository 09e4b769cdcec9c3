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

/*
Package metrics provides the OpenTelemetry-based metrics exporter for the
config server. It bridges OTel instruments to a Prometheus registry served
on the management port.
*/
package metrics

import (
	"context"
	"fmt"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Registry is the Prometheus registry the exporter feeds; the management
// endpoint serves it via promhttp.
var Registry = promclient.NewRegistry()

var (
	otelMeter metric.Meter

	// ConfigReadsTotal counts config fetches (cache hits included).
	ConfigReadsTotal metric.Int64Counter
	// ConfigWritesTotal counts successful create/update/delete commits.
	ConfigWritesTotal metric.Int64Counter
	// ConfigConflictsTotal counts optimistic-concurrency failures.
	ConfigConflictsTotal metric.Int64Counter
	// VaultOperationsTotal counts vault reads and writes.
	VaultOperationsTotal metric.Int64Counter
	// ResolveRequestsTotal counts pull-client resolution calls.
	ResolveRequestsTotal metric.Int64Counter
	// NotificationsSentTotal counts refresh callbacks that completed, any status.
	NotificationsSentTotal metric.Int64Counter
	// CacheEvictionsTotal counts cache evictions (TTL or LRU).
	CacheEvictionsTotal metric.Int64Counter
	// RequestErrorsTotal counts API requests answered with an error body.
	RequestErrorsTotal metric.Int64Counter

	// GitCommitDurationSeconds observes time spent in commit operations.
	GitCommitDurationSeconds metric.Float64Histogram

	// NotifyQueueDepth is a gauge for the notifier queue backlog.
	NotifyQueueDepth metric.Int64UpDownCounter
)

// InitExporter initializes the OTel-to-Prometheus bridge and registers the
// instruments. Returns a shutdown function.
func InitExporter(_ context.Context) (func(context.Context) error, error) {
	exporter, err := prometheus.New(
		prometheus.WithRegisterer(Registry),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	otelMeter = provider.Meter("confserver")

	type cSpec struct {
		name string
		dest *metric.Int64Counter
	}
	counters := []cSpec{
		{"confserver_config_reads_total", &ConfigReadsTotal},
		{"confserver_config_writes_total", &ConfigWritesTotal},
		{"confserver_config_conflicts_total", &ConfigConflictsTotal},
		{"confserver_vault_operations_total", &VaultOperationsTotal},
		{"confserver_resolve_requests_total", &ResolveRequestsTotal},
		{"confserver_notifications_sent_total", &NotificationsSentTotal},
		{"confserver_cache_evictions_total", &CacheEvictionsTotal},
		{"confserver_request_errors_total", &RequestErrorsTotal},
	}
	for _, s := range counters {
		v, err := otelMeter.Int64Counter(s.name)
		if err != nil {
			return nil, err
		}
		*s.dest = v
	}

	GitCommitDurationSeconds, err = otelMeter.Float64Histogram("confserver_git_commit_duration_seconds")
	if err != nil {
		return nil, err
	}
	NotifyQueueDepth, err = otelMeter.Int64UpDownCounter("confserver_notify_queue_depth")
	if err != nil {
		return nil, err
	}

	return func(_ context.Context) error {
		return provider.Shutdown(context.Background())
	}, nil
}

// AddCounter is a nil-safe increment; instruments are nil when the exporter
// was never initialized (unit tests).
func AddCounter(ctx context.Context, counter metric.Int64Counter, n int64) {
	if counter != nil {
		counter.Add(ctx, n)
	}
}
