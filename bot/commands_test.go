/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"chainguard.dev/websmith/deploys"
)

func TestHelpCommand(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	f.bot.HandleMessage(ctx, f.session, message("alice", testChannel, "!help"))

	if got := f.session.joined(); !strings.Contains(got, "!rollback") || !strings.Contains(got, "!history") {
		t.Errorf("help text = %q", got)
	}
}

func TestUnknownCommand(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	f.bot.HandleMessage(ctx, f.session, message("alice", testChannel, "!dance"))

	if got := f.session.joined(); !strings.Contains(got, "Unknown command") {
		t.Errorf("replies = %q", got)
	}
}

func TestHistoryCommand(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.deploys.recent = []deploys.Deploy{
		{SHA: "deadbeef00000000000000000000000000000000", Message: "Student request: robots page", Author: "Programming Party Bot", When: time.Now()},
		{SHA: "abc1234500000000000000000000000000000000", Message: "initial site", Author: "Human"},
	}

	f.bot.HandleMessage(ctx, f.session, message("alice", testChannel, "!history"))

	got := f.session.joined()
	for _, want := range []string{"Recent deploys:", "`deadbee`", "Student request: robots page", "Programming Party Bot", "`abc1234`"} {
		if !strings.Contains(got, want) {
			t.Errorf("history missing %q in %q", want, got)
		}
	}
}

func TestHistoryCommandEmpty(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	f.bot.HandleMessage(ctx, f.session, message("alice", testChannel, "!history"))

	if got := f.session.joined(); !strings.Contains(got, "No deploys yet.") {
		t.Errorf("replies = %q", got)
	}
}

func TestRollbackCommand(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	f.bot.HandleMessage(ctx, f.session, message("alice", testChannel, "!rollback"))

	if f.repo.rolledBack != f.repo.head {
		t.Errorf("rolled back %q, want head %q", f.repo.rolledBack, f.repo.head)
	}
	got := f.session.joined()
	if !strings.Contains(got, "⏪ Rolled back `head000`") || !strings.Contains(got, "`parent0`") {
		t.Errorf("replies = %q", got)
	}
}

func TestRollbackCommandFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.repo.rollbackErr = errors.New("only the latest deploy can be rolled back")

	f.bot.HandleMessage(ctx, f.session, message("alice", testChannel, "!rollback"))

	if got := f.session.joined(); !strings.Contains(got, "❌ Rollback failed") {
		t.Errorf("replies = %q", got)
	}
}
