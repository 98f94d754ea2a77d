/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package siterepo

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"chainguard.dev/websmith/agents/pagewriter"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"golang.org/x/oauth2"
)

type staticTokenSource string

func (s staticTokenSource) Token() (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: string(s)}, nil
}

// initRemote seeds a repository with commits and publishes it as a bare
// remote, which is what pushes to the deploy branch require.
func initRemote(t *testing.T, commits int) (string, []string) {
	t.Helper()

	seed := t.TempDir()
	repo, err := git.PlainInit(seed, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}

	shas := make([]string, 0, commits)
	for i := 0; i < commits; i++ {
		file := filepath.Join(seed, "src", "index.njk")
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
		if err := os.WriteFile(file, []byte(strings.Repeat("<h1>Home</h1>\n", i+1)), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		if _, err := wt.Add("src/index.njk"); err != nil {
			t.Fatalf("Add: %v", err)
		}
		hash, err := wt.Commit("seed commit", &git.CommitOptions{
			Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
		})
		if err != nil {
			t.Fatalf("Commit: %v", err)
		}
		shas = append(shas, hash.String())
	}

	bare := filepath.Join(t.TempDir(), "origin.git")
	if _, err := git.PlainClone(bare, true, &git.CloneOptions{URL: seed}); err != nil {
		t.Fatalf("PlainClone bare: %v", err)
	}
	return bare, shas
}

func newTestManager(t *testing.T, bare string) *Manager {
	t.Helper()

	remoteURL = func(string, string) string { return bare }
	t.Cleanup(func() { remoteURL = defaultRemoteURL })

	mgr, err := New(context.Background(), Options{
		Path:        filepath.Join(t.TempDir(), "checkout"),
		Owner:       "tests",
		Repo:        "site",
		Branch:      "master",
		AuthorName:  "Programming Party Bot",
		AuthorEmail: "bot@example.com",
		TokenSource: staticTokenSource(""),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return mgr
}

func remoteHead(t *testing.T, bare string) string {
	t.Helper()
	repo, err := git.PlainOpen(bare)
	if err != nil {
		t.Fatalf("PlainOpen remote: %v", err)
	}
	ref, err := repo.Reference(plumbing.NewBranchReferenceName("master"), true)
	if err != nil {
		t.Fatalf("Reference: %v", err)
	}
	return ref.Hash().String()
}

func TestNewValidatesOptions(t *testing.T) {
	t.Parallel()

	opts := Options{
		Path: "x", Owner: "o", Repo: "r", Branch: "main",
		AuthorName: "n", AuthorEmail: "e@example.com",
		TokenSource: staticTokenSource(""),
	}

	breakages := map[string]func(*Options){
		"path":   func(o *Options) { o.Path = "" },
		"owner":  func(o *Options) { o.Owner = "" },
		"repo":   func(o *Options) { o.Repo = "" },
		"branch": func(o *Options) { o.Branch = "" },
		"name":   func(o *Options) { o.AuthorName = "" },
		"email":  func(o *Options) { o.AuthorEmail = "" },
		"token":  func(o *Options) { o.TokenSource = nil },
	}
	for name, breakIt := range breakages {
		t.Run(name, func(t *testing.T) {
			o := opts
			breakIt(&o)
			if _, err := New(context.Background(), o); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	bare, shas := initRemote(t, 1)
	mgr := newTestManager(t, bare)

	head, err := mgr.Head()
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if head != shas[0] {
		t.Fatalf("Head = %s, want %s", head, shas[0])
	}

	changes := pagewriter.ChangeSet{Files: []pagewriter.FileChange{
		{Path: "src/pages/robots.njk", Content: "<h1>Robots</h1>\n"},
		{Path: "src/index.njk", Content: "<h1>Updated</h1>\n"},
	}}

	sha, err := mgr.Apply(ctx, changes, "Student request: add a robots page")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if sha == shas[0] {
		t.Fatal("Apply returned the old head")
	}

	if got := remoteHead(t, bare); got != sha {
		t.Errorf("remote head = %s, want %s", got, sha)
	}

	data, err := os.ReadFile(filepath.Join(mgr.Path(), "src", "pages", "robots.njk"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "<h1>Robots</h1>\n" {
		t.Errorf("robots.njk = %q", data)
	}

	repo, err := git.PlainOpen(mgr.Path())
	if err != nil {
		t.Fatalf("PlainOpen checkout: %v", err)
	}
	commit, err := repo.CommitObject(plumbing.NewHash(sha))
	if err != nil {
		t.Fatalf("CommitObject: %v", err)
	}
	if commit.Message != "Student request: add a robots page" {
		t.Errorf("commit message = %q", commit.Message)
	}
	if commit.Author.Name != "Programming Party Bot" {
		t.Errorf("author = %q", commit.Author.Name)
	}
}

func TestApplyRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	bare, _ := initRemote(t, 1)
	mgr := newTestManager(t, bare)

	if _, err := mgr.Apply(ctx, pagewriter.ChangeSet{}, "msg"); err == nil {
		t.Error("expected error for empty change set")
	}

	escape := pagewriter.ChangeSet{Files: []pagewriter.FileChange{{Path: "../escape.txt", Content: "x"}}}
	if _, err := mgr.Apply(ctx, escape, "msg"); err == nil {
		t.Error("expected error for escaping path")
	}

	ok := pagewriter.ChangeSet{Files: []pagewriter.FileChange{{Path: "a.txt", Content: "x"}}}
	if _, err := mgr.Apply(ctx, ok, ""); err == nil {
		t.Error("expected error for empty message")
	}
}

func TestRollback(t *testing.T) {
	ctx := context.Background()
	bare, shas := initRemote(t, 1)
	mgr := newTestManager(t, bare)

	changes := pagewriter.ChangeSet{Files: []pagewriter.FileChange{
		{Path: "src/pages/robots.njk", Content: "<h1>Robots</h1>\n"},
	}}
	sha, err := mgr.Apply(ctx, changes, "Student request: add a robots page")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	got, err := mgr.Rollback(ctx, sha)
	if err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if got != shas[0] {
		t.Errorf("Rollback returned %s, want %s", got, shas[0])
	}
	if remote := remoteHead(t, bare); remote != shas[0] {
		t.Errorf("remote head = %s, want %s", remote, shas[0])
	}

	// The rolled-back file is gone from the checkout.
	if _, err := os.Stat(filepath.Join(mgr.Path(), "src", "pages", "robots.njk")); !os.IsNotExist(err) {
		t.Errorf("expected robots.njk removed, got err=%v", err)
	}
}

func TestRollbackRequiresHead(t *testing.T) {
	ctx := context.Background()
	bare, shas := initRemote(t, 2)
	mgr := newTestManager(t, bare)

	// shas[0] is no longer the head.
	if _, err := mgr.Rollback(ctx, shas[0]); err == nil {
		t.Error("expected error rolling back a non-head commit")
	}
}

func TestRollbackInitialCommit(t *testing.T) {
	ctx := context.Background()
	bare, shas := initRemote(t, 1)
	mgr := newTestManager(t, bare)

	if _, err := mgr.Rollback(ctx, shas[0]); err == nil {
		t.Error("expected error rolling back the initial commit")
	}
}

func TestRefreshDiscardsLocalDrift(t *testing.T) {
	ctx := context.Background()
	bare, _ := initRemote(t, 1)
	mgr := newTestManager(t, bare)

	// Simulate a crashed previous run leaving droppings in the checkout.
	stray := filepath.Join(mgr.Path(), "stray.txt")
	if err := os.WriteFile(stray, []byte("leftover"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	changes := pagewriter.ChangeSet{Files: []pagewriter.FileChange{
		{Path: "src/pages/clean.njk", Content: "ok"},
	}}
	if _, err := mgr.Apply(ctx, changes, "Student request: clean test"); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if _, err := os.Stat(stray); !os.IsNotExist(err) {
		t.Errorf("expected stray file cleaned before commit, got err=%v", err)
	}
}
