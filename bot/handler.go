/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package bot

import (
	"context"
	"fmt"
	"strings"

	"chainguard.dev/websmith/agents/pagewriter"
	"chainguard.dev/websmith/agents/requirements"
	"chainguard.dev/websmith/metrics"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/bwmarrin/discordgo"
	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"
)

// session is the slice of discordgo.Session the handlers use.
type session interface {
	ChannelMessageSendReply(channelID, content string, reference *discordgo.MessageReference, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// HandleMessage routes one incoming Discord message.
func (b *Bot) HandleMessage(ctx context.Context, s session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if m.ChannelID != b.opts.ChannelID {
		return
	}

	content := strings.TrimSpace(m.Content)
	if content == "" {
		return
	}

	ctx = clog.WithLogger(ctx, clog.FromContext(ctx).
		With("user", m.Author.Username).
		With("request", uuid.NewString()))

	// HAL 9000 easter egg for users with "dav" in their name.
	if strings.Contains(strings.ToLower(m.Author.Username), "dav") {
		b.reply(ctx, s, m, "I'm sorry dav, but I can't do that.")
		metrics.MessagesHandled.WithLabelValues("easter_egg").Inc()
		return
	}

	if strings.HasPrefix(content, "!") {
		b.handleCommand(ctx, s, m, content)
		return
	}

	b.processSuggestion(ctx, s, m, content)
}

// processSuggestion drives the two-phase flow: gather requirements until the
// agent declares the request ready, then implement it.
func (b *Bot) processSuggestion(ctx context.Context, s session, m *discordgo.MessageCreate, content string) {
	log := clog.FromContext(ctx)

	// One message at a time per user, so concurrent gateway events cannot
	// interleave mutations of the same conversation.
	mu := b.conversations.userLock(m.Author.ID)
	mu.Lock()
	defer mu.Unlock()

	siteContext, err := b.opts.Context.Build(ctx)
	if err != nil {
		log.With("error", err).Error("Failed to load website context")
		b.reply(ctx, s, m, "I couldn't load the website context. Please try again later.")
		metrics.MessagesHandled.WithLabelValues("context_error").Inc()
		return
	}

	userID := m.Author.ID
	conv, ok := b.conversations.Lookup(userID)
	if !ok {
		log.With("prompt", content).Info("Processing new suggestion")
		conv = b.conversations.Start(userID, content)

		initial, err := b.opts.Gatherer.InitialMessage(&requirements.Request{
			Prompt:      content,
			SiteContext: siteContext,
		})
		if err != nil {
			log.With("error", err).Error("Failed to build initial message")
			b.conversations.Delete(userID)
			b.reply(ctx, s, m, fmt.Sprintf("❌ An error occurred: %v", err))
			metrics.MessagesHandled.WithLabelValues("gather_error").Inc()
			return
		}
		conv.Messages = append(conv.Messages, initial)
	} else {
		log.Info("Continuing conversation")
		conv.Messages = append(conv.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(content)))
	}

	reqs, err := b.opts.Gatherer.Gather(ctx, conv.Messages)
	if err != nil {
		log.With("error", err).Error("Requirements gathering failed")
		b.reply(ctx, s, m, fmt.Sprintf("❌ An error occurred: %v", err))
		metrics.MessagesHandled.WithLabelValues("gather_error").Inc()
		return
	}

	if len(reqs.Questions) > 0 {
		var sb strings.Builder
		if conv.Questioned {
			sb.WriteString("I still have some questions:\n\n")
		} else {
			sb.WriteString("I have some questions to better understand your request:\n\n")
		}
		for _, q := range reqs.Questions {
			sb.WriteString("• " + q + "\n")
		}
		b.reply(ctx, s, m, strings.TrimRight(sb.String(), "\n"))

		conv.Messages = append(conv.Messages, anthropic.NewAssistantMessage(
			anthropic.NewTextBlock("Questions: "+strings.Join(reqs.Questions, " "))))
		conv.Questioned = true
		metrics.MessagesHandled.WithLabelValues("questions").Inc()
		return
	}

	if !reqs.ReadyToImplement {
		b.reply(ctx, s, m, "I need clarification. Could you provide more specific details about your request?")
		metrics.MessagesHandled.WithLabelValues("clarification").Inc()
		return
	}

	log.With("summary", reqs.Summary).Info("Requirements agreed")
	conv.Phase = PhaseImplementing
	b.reply(ctx, s, m, "Got it! I understand the requirements. Now generating the changes...")
	b.implement(ctx, s, m, conv, reqs, siteContext)
}

// implement generates the change set, applies it to the repository, and
// confirms the deploy.
func (b *Bot) implement(ctx context.Context, s session, m *discordgo.MessageCreate, conv *Conversation, reqs requirements.Requirements, siteContext string) {
	log := clog.FromContext(ctx)

	summary := reqs.Summary
	if summary == "" {
		summary = conv.InitialPrompt
	}

	b.reply(ctx, s, m, "⏳ Generating changes...")
	changes, err := b.opts.Writer.Generate(ctx, &pagewriter.Request{
		Summary:      summary,
		Conversation: pagewriter.RenderConversation(conv.Messages),
		SiteContext:  siteContext,
	})
	if err != nil {
		log.With("error", err).Error("Change generation failed")
		b.reply(ctx, s, m, "❌ Failed to generate changes. Please try again.")
		metrics.MessagesHandled.WithLabelValues("generate_error").Inc()
		return
	}

	b.reply(ctx, s, m, fmt.Sprintf("📝 Applying %d file changes...", len(changes.Files)))
	b.reply(ctx, s, m, "🚀 Pushing to GitHub...")

	sha, err := b.opts.Repo.Apply(ctx, changes, "Student request: "+conv.InitialPrompt)
	if err != nil {
		log.With("error", err).Error("Failed to apply changes")
		b.reply(ctx, s, m, "❌ Failed to apply changes to the repository.")
		metrics.MessagesHandled.WithLabelValues("apply_error").Inc()
		return
	}

	var sb strings.Builder
	sb.WriteString("✨ Changes deployed successfully!\n\nModified files:\n")
	for _, path := range changes.Paths() {
		sb.WriteString("✅ " + path + "\n")
	}
	if url, err := b.opts.Deploys.CommitURL(ctx, sha); err == nil && url != "" {
		sb.WriteString("\nCommit: " + url + "\n")
	} else if err != nil {
		log.With("error", err).Warn("Failed to resolve commit URL")
	}
	sb.WriteString("\nThe website will update in a few moments...")
	b.reply(ctx, s, m, sb.String())

	log.With("sha", sha).With("files", len(changes.Files)).Info("Deployed changes")
	metrics.MessagesHandled.WithLabelValues("deployed").Inc()
	metrics.Deploys.WithLabelValues("deploy").Inc()

	b.conversations.Delete(conv.UserID)
}

func (b *Bot) reply(ctx context.Context, s session, m *discordgo.MessageCreate, content string) {
	if _, err := s.ChannelMessageSendReply(m.ChannelID, content, m.Reference()); err != nil {
		clog.FromContext(ctx).With("error", err).Error("Failed to send reply")
	}
}
