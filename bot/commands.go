/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package bot

import (
	"context"
	"fmt"
	"strings"

	"chainguard.dev/websmith/metrics"
	"github.com/bwmarrin/discordgo"
	"github.com/chainguard-dev/clog"
)

const historyLimit = 5

const helpText = `Tell me what you'd like changed on the website and I'll ask questions until I understand, then make the change.

Commands:
` + "`!rollback`" + ` — undo the most recent deploy
` + "`!history`" + ` — list recent deploys
` + "`!help`" + ` — this message`

func (b *Bot) handleCommand(ctx context.Context, s session, m *discordgo.MessageCreate, content string) {
	metrics.MessagesHandled.WithLabelValues("command").Inc()

	switch strings.Fields(content)[0] {
	case "!help":
		b.reply(ctx, s, m, helpText)
	case "!history":
		b.handleHistory(ctx, s, m)
	case "!rollback":
		b.handleRollback(ctx, s, m)
	default:
		b.reply(ctx, s, m, "Unknown command. Try `!help`.")
	}
}

func (b *Bot) handleHistory(ctx context.Context, s session, m *discordgo.MessageCreate) {
	recent, err := b.opts.Deploys.Recent(ctx, b.opts.Branch, historyLimit)
	if err != nil {
		clog.FromContext(ctx).With("error", err).Error("Failed to list deploys")
		b.reply(ctx, s, m, "❌ Couldn't fetch the deploy history.")
		return
	}
	if len(recent) == 0 {
		b.reply(ctx, s, m, "No deploys yet.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Recent deploys:\n")
	for _, d := range recent {
		sb.WriteString(fmt.Sprintf("• `%s` %s", shortSHA(d.SHA), d.Message))
		if d.Author != "" {
			sb.WriteString(" — " + d.Author)
		}
		sb.WriteString("\n")
	}
	b.reply(ctx, s, m, strings.TrimRight(sb.String(), "\n"))
}

func (b *Bot) handleRollback(ctx context.Context, s session, m *discordgo.MessageCreate) {
	log := clog.FromContext(ctx)

	head, err := b.opts.Repo.Head()
	if err != nil {
		log.With("error", err).Error("Failed to read head")
		b.reply(ctx, s, m, "❌ Couldn't determine the latest deploy.")
		return
	}

	sha, err := b.opts.Repo.Rollback(ctx, head)
	if err != nil {
		log.With("error", err).Error("Rollback failed")
		b.reply(ctx, s, m, fmt.Sprintf("❌ Rollback failed: %v", err))
		return
	}

	metrics.Deploys.WithLabelValues("rollback").Inc()
	log.With("from", head).With("to", sha).Info("Rolled back deploy")
	b.reply(ctx, s, m, fmt.Sprintf("⏪ Rolled back `%s`. The site is now at `%s` and will update in a few moments...", shortSHA(head), shortSHA(sha)))
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
