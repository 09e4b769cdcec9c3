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

// The config server entrypoint: loads configuration, wires the domain
// components and runs the API and management HTTP servers until signalled.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/confvault/confserver/internal/api"
	"github.com/confvault/confserver/internal/cache"
	"github.com/confvault/confserver/internal/config"
	"github.com/confvault/confserver/internal/gitrepo"
	"github.com/confvault/confserver/internal/metrics"
	"github.com/confvault/confserver/internal/notify"
	"github.com/confvault/confserver/internal/resolver"
	"github.com/confvault/confserver/internal/secrets"
	"github.com/confvault/confserver/internal/store"
	"github.com/confvault/confserver/internal/vault"
)

const shutdownGrace = 10 * time.Second

func main() {
	var (
		configPath  string
		listenAddr  string
		metricsAddr string
		devLogging  bool
	)
	flag.StringVar(&configPath, "config", "", "Path to the YAML configuration file.")
	flag.StringVar(&listenAddr, "listen", "", "API bind address; overrides the configured value.")
	flag.StringVar(&metricsAddr, "metrics-addr", "", "Management bind address; overrides the configured value.")
	flag.BoolVar(&devLogging, "dev-logging", false, "Use human-readable development logging.")
	flag.Parse()

	log, flush := newLogger(devLogging)
	defer flush()

	if err := run(configPath, listenAddr, metricsAddr, log); err != nil {
		log.Error(err, "fatal error")
		flush()
		os.Exit(1)
	}
}

func newLogger(dev bool) (logr.Logger, func()) {
	var zl *zap.Logger
	var err error
	if dev {
		zl, err = zap.NewDevelopment()
	} else {
		zl, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	return zapr.NewLogger(zl), func() { _ = zl.Sync() }
}

func run(configPath, listenAddr, metricsAddr string, log logr.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}

	// The base directory is provisioned out of band; refusing to start beats
	// silently serving an empty tree.
	if info, err := os.Stat(cfg.BasePath); err != nil || !info.IsDir() {
		return fmt.Errorf("base path %q does not exist or is not a directory", cfg.BasePath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownMetrics, err := metrics.InitExporter(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownMetrics(context.Background()) }()

	cipher, err := vault.NewCipher(cfg.VaultMasterKey, cfg.MasterKeyFromEnv, log)
	if err != nil {
		return err
	}

	c := cache.New(cfg.CacheTTL(), 500)
	c.SetEvictionCallback(func() {
		metrics.AddCounter(context.Background(), metrics.CacheEvictionsTotal, 1)
	})
	invalidator := cache.NewInvalidator(c, log)

	gateway := gitrepo.NewGateway(cfg.BasePath, log)
	vaults := vault.NewStore(gateway, cipher, c, invalidator, log)
	processor := secrets.NewProcessor(vaults, log)

	records := notify.NewStore()
	notifier := notify.NewNotifier(cfg.RefreshNotifyURL, records, log)
	notifier.Start(ctx)
	defer notifier.Stop()

	configStore := store.New(gateway, processor, notifier, c, invalidator, cfg.CommitHistorySize, log)
	res := resolver.New(configStore, processor, log)
	server := api.NewServer(configStore, vaults, res, records, log)

	apiServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	mgmtServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           managementMux(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("API server listening", "addr", cfg.ListenAddr, "basePath", cfg.BasePath)
		if err := apiServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		log.Info("management server listening", "addr", cfg.MetricsAddr)
		if err := mgmtServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "API server shutdown incomplete")
	}
	if err := mgmtServer.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "management server shutdown incomplete")
	}
	return nil
}

// managementMux serves metrics and the liveness/readiness probes.
func managementMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
