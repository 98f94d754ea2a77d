/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package main runs the collaborative story API: visitors rate candidate
// next sentences, and once a day the highest-rated one joins the story.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chainguard.dev/websmith/metrics"
	"chainguard.dev/websmith/storyapi"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/chainguard-dev/clog"
	"github.com/sethvargo/go-envconfig"
	"golang.org/x/sync/errgroup"
)

type config struct {
	Port        int `env:"PORT,default=8081"`
	MetricsPort int `env:"METRICS_PORT,default=2112"`

	DBPath   string `env:"WEBWRITTEN_DB_PATH,default=./webwritten.db"`
	AdminKey string `env:"ADMIN_KEY,default=regenerate-please"`

	ClaudeAPIKey string `env:"CLAUDE_API_KEY,required"`
	ClaudeModel  string `env:"CLAUDE_MODEL"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=https://plu-programming-party.github.io,http://localhost:8080"`

	PoolCheckInterval time.Duration `env:"POOL_CHECK_INTERVAL,default=15m"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		clog.FatalContextf(ctx, "processing config: %v", err)
	}

	store, err := storyapi.OpenStore(cfg.DBPath)
	if err != nil {
		clog.FatalContextf(ctx, "opening story database: %v", err)
	}
	defer store.Close()

	client := anthropic.NewClient(option.WithAPIKey(cfg.ClaudeAPIKey))
	gen, err := storyapi.NewGenerator(client, cfg.ClaudeModel)
	if err != nil {
		clog.FatalContextf(ctx, "creating sentence generator: %v", err)
	}

	srv, err := storyapi.NewServer(store, gen, storyapi.ServerOptions{
		AdminKey:       cfg.AdminKey,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	if err != nil {
		clog.FatalContextf(ctx, "creating server: %v", err)
	}

	if err := srv.Seed(ctx); err != nil {
		clog.FatalContextf(ctx, "seeding story: %v", err)
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return serveHTTP(ctx, cfg.Port, srv.Handler())
	})
	eg.Go(func() error {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		return serveHTTP(ctx, cfg.MetricsPort, mux)
	})
	eg.Go(func() error {
		srv.Maintain(ctx, cfg.PoolCheckInterval)
		return nil
	})
	eg.Go(func() error {
		srv.RunDailySelection(ctx)
		return nil
	})

	clog.InfoContextf(ctx, "Story API listening on :%d", cfg.Port)
	if err := eg.Wait(); err != nil {
		clog.FatalContextf(ctx, "shutting down: %v", err)
	}
}

func serveHTTP(ctx context.Context, port int, handler http.Handler) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server on :%d: %w", port, err)
	}
	return nil
}
