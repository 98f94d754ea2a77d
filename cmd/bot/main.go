/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package main runs the Discord website assistant: it listens for student
// suggestions on one channel, negotiates requirements with Claude, and
// deploys the resulting changes to the website repository.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chainguard.dev/websmith/agents/pagewriter"
	"chainguard.dev/websmith/agents/requirements"
	"chainguard.dev/websmith/bot"
	"chainguard.dev/websmith/deploys"
	"chainguard.dev/websmith/metrics"
	"chainguard.dev/websmith/sitecontext"
	"chainguard.dev/websmith/siterepo"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/chainguard-dev/clog"
	"github.com/sethvargo/go-envconfig"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
)

type config struct {
	DiscordToken     string `env:"DISCORD_TOKEN,required"`
	DiscordChannelID string `env:"DISCORD_CHANNEL_ID,required"`

	ClaudeAPIKey string `env:"CLAUDE_API_KEY,required"`
	ClaudeModel  string `env:"CLAUDE_MODEL"`

	GitHubToken     string `env:"GITHUB_TOKEN,required"`
	GitHubRepoOwner string `env:"GITHUB_REPO_OWNER,required"`
	GitHubRepoName  string `env:"GITHUB_REPO_NAME,required"`
	GitHubUserEmail string `env:"GITHUB_USER_EMAIL,default=bot@programmingparty.plu.edu"`
	GitHubUserName  string `env:"GITHUB_USER_NAME,default=Programming Party Bot"`
	GitHubBranch    string `env:"GITHUB_BRANCH,default=main"`

	RepoLocalPath     string        `env:"REPO_LOCAL_PATH,default=./website_repo"`
	SiteContextConfig string        `env:"SITE_CONTEXT_CONFIG"`
	ConversationIdle  time.Duration `env:"CONVERSATION_IDLE,default=30m"`
	MetricsPort       int           `env:"METRICS_PORT,default=2112"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		clog.FatalContextf(ctx, "processing config: %v", err)
	}

	client := anthropic.NewClient(option.WithAPIKey(cfg.ClaudeAPIKey))

	gatherer, err := requirements.NewGatherer(client, cfg.ClaudeModel)
	if err != nil {
		clog.FatalContextf(ctx, "creating requirements gatherer: %v", err)
	}
	writer, err := pagewriter.NewWriter(client, cfg.ClaudeModel)
	if err != nil {
		clog.FatalContextf(ctx, "creating page writer: %v", err)
	}

	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.GitHubToken})
	repo, err := siterepo.New(ctx, siterepo.Options{
		Path:        cfg.RepoLocalPath,
		Owner:       cfg.GitHubRepoOwner,
		Repo:        cfg.GitHubRepoName,
		Branch:      cfg.GitHubBranch,
		AuthorName:  cfg.GitHubUserName,
		AuthorEmail: cfg.GitHubUserEmail,
		TokenSource: tokenSource,
	})
	if err != nil {
		clog.FatalContextf(ctx, "opening website repository: %v", err)
	}

	tracker, err := deploys.New(ctx, tokenSource, cfg.GitHubRepoOwner, cfg.GitHubRepoName)
	if err != nil {
		clog.FatalContextf(ctx, "creating deploy tracker: %v", err)
	}

	contextCfg := sitecontext.DefaultConfig()
	if cfg.SiteContextConfig != "" {
		if contextCfg, err = sitecontext.LoadConfig(cfg.SiteContextConfig); err != nil {
			clog.FatalContextf(ctx, "loading site context config: %v", err)
		}
	}
	loader := sitecontext.NewLoader(cfg.RepoLocalPath, contextCfg)

	b, err := bot.New(bot.Options{
		Token:      cfg.DiscordToken,
		ChannelID:  cfg.DiscordChannelID,
		Branch:     cfg.GitHubBranch,
		IdleExpiry: cfg.ConversationIdle,
		Gatherer:   gatherer,
		Writer:     writer,
		Repo:       repo,
		Context:    loader,
		Deploys:    tracker,
	})
	if err != nil {
		clog.FatalContextf(ctx, "creating bot: %v", err)
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return b.Start(ctx)
	})
	eg.Go(func() error {
		return serveMetrics(ctx, cfg.MetricsPort)
	})

	clog.InfoContextf(ctx, "Website assistant running, channel %s", cfg.DiscordChannelID)
	if err := eg.Wait(); err != nil {
		clog.FatalContextf(ctx, "shutting down: %v", err)
	}
}

func serveMetrics(ctx context.Context, port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
