/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chainguard.dev/websmith/agents/pagewriter"
	"chainguard.dev/websmith/agents/requirements"
	"chainguard.dev/websmith/deploys"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/bwmarrin/discordgo"
	"github.com/chainguard-dev/clog"
)

// RequirementsGatherer runs the phase-1 requirements conversation.
type RequirementsGatherer interface {
	InitialMessage(req *requirements.Request) (anthropic.MessageParam, error)
	Gather(ctx context.Context, history []anthropic.MessageParam) (requirements.Requirements, error)
}

// ChangeGenerator produces file changes for an agreed request.
type ChangeGenerator interface {
	Generate(ctx context.Context, req *pagewriter.Request) (pagewriter.ChangeSet, error)
}

// Repository applies and rolls back deploys on the website repository.
type Repository interface {
	Apply(ctx context.Context, changes pagewriter.ChangeSet, message string) (string, error)
	Rollback(ctx context.Context, sha string) (string, error)
	Head() (string, error)
}

// ContextLoader renders the repository context for the agents.
type ContextLoader interface {
	Build(ctx context.Context) (string, error)
}

// DeployReader answers commit URL and history questions.
type DeployReader interface {
	CommitURL(ctx context.Context, sha string) (string, error)
	Recent(ctx context.Context, branch string, limit int) ([]deploys.Deploy, error)
}

// Options configures a Bot.
type Options struct {
	// Token is the Discord bot token.
	Token string

	// ChannelID is the only channel the bot listens on.
	ChannelID string

	// Branch is the deploy branch, used for history and rollback.
	Branch string

	// IdleExpiry is how long a conversation may sit idle before it is
	// swept.
	IdleExpiry time.Duration

	Gatherer RequirementsGatherer
	Writer   ChangeGenerator
	Repo     Repository
	Context  ContextLoader
	Deploys  DeployReader
}

func (o Options) validate() error {
	switch {
	case o.Token == "":
		return errors.New("token cannot be empty")
	case o.ChannelID == "":
		return errors.New("channel ID cannot be empty")
	case o.Branch == "":
		return errors.New("branch cannot be empty")
	case o.Gatherer == nil:
		return errors.New("gatherer cannot be nil")
	case o.Writer == nil:
		return errors.New("writer cannot be nil")
	case o.Repo == nil:
		return errors.New("repo cannot be nil")
	case o.Context == nil:
		return errors.New("context loader cannot be nil")
	case o.Deploys == nil:
		return errors.New("deploy reader cannot be nil")
	}
	return nil
}

// Bot is the Discord listener.
type Bot struct {
	opts          Options
	conversations *ConversationStore
}

// New creates a Bot. Start must be called to connect to the gateway.
func New(opts Options) (*Bot, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.IdleExpiry <= 0 {
		opts.IdleExpiry = 30 * time.Minute
	}

	return &Bot{
		opts:          opts,
		conversations: NewConversationStore(opts.IdleExpiry),
	}, nil
}

// onMessageCreate adapts gateway events to HandleMessage. Gateway payloads
// can arrive without an author, so that check runs before anything touches
// m.Author.
func (b *Bot) onMessageCreate(ctx context.Context) func(*discordgo.Session, *discordgo.MessageCreate) {
	return func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil {
			return
		}
		// Never respond to ourselves.
		if s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID {
			return
		}
		b.HandleMessage(ctx, s, m)
	}
}

// Start connects to the Discord gateway and blocks until the context is
// canceled.
func (b *Bot) Start(ctx context.Context) error {
	log := clog.FromContext(ctx)

	dg, err := discordgo.New("Bot " + b.opts.Token)
	if err != nil {
		return fmt.Errorf("creating Discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentMessageContent

	dg.AddHandler(b.onMessageCreate(ctx))

	if err := dg.Open(); err != nil {
		return fmt.Errorf("opening Discord gateway: %w", err)
	}
	log.Info("Connected to Discord gateway")

	go b.conversations.Janitor(ctx)

	<-ctx.Done()
	log.Info("Closing Discord gateway")
	return dg.Close()
}
