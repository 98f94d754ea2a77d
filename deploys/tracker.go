/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package deploys

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/go-github/v84/github"
	"golang.org/x/oauth2"
)

// Deploy is one commit on the deploy branch.
type Deploy struct {
	SHA     string
	Message string
	Author  string
	URL     string
	When    time.Time
}

// Tracker answers questions about deploys via the GitHub API.
type Tracker struct {
	gh    *github.Client
	owner string
	repo  string
}

// New creates a Tracker for the given repository.
func New(ctx context.Context, tokenSource oauth2.TokenSource, owner, repo string) (*Tracker, error) {
	switch {
	case tokenSource == nil:
		return nil, errors.New("token source cannot be nil")
	case owner == "":
		return nil, errors.New("owner cannot be empty")
	case repo == "":
		return nil, errors.New("repo cannot be empty")
	}

	return &Tracker{
		gh:    github.NewClient(oauth2.NewClient(ctx, tokenSource)),
		owner: owner,
		repo:  repo,
	}, nil
}

// CommitURL returns the web URL for a commit.
func (t *Tracker) CommitURL(ctx context.Context, sha string) (string, error) {
	commit, _, err := t.gh.Repositories.GetCommit(ctx, t.owner, t.repo, sha, nil)
	if err != nil {
		return "", fmt.Errorf("getting commit %s: %w", sha, err)
	}
	return commit.GetHTMLURL(), nil
}

// Recent lists the most recent deploys on the given branch, newest first.
func (t *Tracker) Recent(ctx context.Context, branch string, limit int) ([]Deploy, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	commits, _, err := t.gh.Repositories.ListCommits(ctx, t.owner, t.repo, &github.CommitsListOptions{
		SHA:         branch,
		ListOptions: github.ListOptions{PerPage: limit},
	})
	if err != nil {
		return nil, fmt.Errorf("listing commits: %w", err)
	}

	deploys := make([]Deploy, 0, len(commits))
	for _, c := range commits {
		d := Deploy{
			SHA:     c.GetSHA(),
			Message: firstLine(c.GetCommit().GetMessage()),
			URL:     c.GetHTMLURL(),
		}
		if commit := c.GetCommit(); commit != nil {
			if author := commit.GetAuthor(); author != nil {
				d.Author = author.GetName()
				d.When = author.GetDate().Time
			}
		}
		deploys = append(deploys, d)
	}
	return deploys, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
