/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package siterepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"chainguard.dev/websmith/agents/pagewriter"
	"github.com/chainguard-dev/clog"
	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"golang.org/x/oauth2"
)

// remoteURL resolves the remote git URL for a repository. Tests can override
// this to point at local filesystem paths.
var remoteURL = defaultRemoteURL

func defaultRemoteURL(owner, repo string) string {
	return fmt.Sprintf("https://github.com/%s/%s", owner, repo)
}

// Options configures a Manager.
type Options struct {
	// Path is the local checkout directory. Created by cloning when it
	// does not already hold a repository.
	Path string

	// Owner and Repo identify the GitHub repository.
	Owner string
	Repo  string

	// Branch is the deploy branch, typically "main".
	Branch string

	// AuthorName and AuthorEmail are used for commit signatures.
	AuthorName  string
	AuthorEmail string

	// TokenSource supplies the GitHub token for clone, fetch, and push.
	TokenSource oauth2.TokenSource
}

func (o Options) validate() error {
	switch {
	case o.Path == "":
		return errors.New("path cannot be empty")
	case o.Owner == "":
		return errors.New("owner cannot be empty")
	case o.Repo == "":
		return errors.New("repo cannot be empty")
	case o.Branch == "":
		return errors.New("branch cannot be empty")
	case o.AuthorName == "":
		return errors.New("author name cannot be empty")
	case o.AuthorEmail == "":
		return errors.New("author email cannot be empty")
	case o.TokenSource == nil:
		return errors.New("token source cannot be nil")
	}
	return nil
}

// Manager owns the single local clone of the website repository. All
// operations serialize on an internal mutex; concurrent student requests
// queue rather than corrupt the worktree.
type Manager struct {
	opts Options

	mu   sync.Mutex
	repo *git.Repository
}

// New opens the checkout at opts.Path, cloning it first when absent.
func New(ctx context.Context, opts Options) (*Manager, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	m := &Manager{opts: opts}

	repo, err := git.PlainOpen(opts.Path)
	switch {
	case err == nil:
		m.repo = repo
	case errors.Is(err, git.ErrRepositoryNotExists):
		if m.repo, err = m.clone(ctx); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("opening repository at %s: %w", opts.Path, err)
	}

	return m, nil
}

func (m *Manager) clone(ctx context.Context) (*git.Repository, error) {
	remote := remoteURL(m.opts.Owner, m.opts.Repo)
	clog.FromContext(ctx).Infof("Cloning repository %s into %s", remote, m.opts.Path)

	auth, err := m.auth()
	if err != nil {
		return nil, fmt.Errorf("getting token: %w", err)
	}

	repo, err := git.PlainClone(m.opts.Path, false, &git.CloneOptions{
		URL:           remote,
		ReferenceName: plumbing.NewBranchReferenceName(m.opts.Branch),
		SingleBranch:  true,
		Auth:          auth,
	})
	if err != nil {
		return nil, fmt.Errorf("cloning repository: %w", err)
	}
	return repo, nil
}

func (m *Manager) auth() (*githttp.BasicAuth, error) {
	token, err := m.opts.TokenSource.Token()
	if err != nil {
		return nil, err
	}
	return &githttp.BasicAuth{
		Username: "unused-when-using-access-tokens",
		Password: token.AccessToken,
	}, nil
}

// refresh discards local state and moves the checkout to the tip of the
// remote branch. Callers hold m.mu.
func (m *Manager) refresh(ctx context.Context) error {
	worktree, err := m.repo.Worktree()
	if err != nil {
		return fmt.Errorf("getting worktree: %w", err)
	}

	if err := worktree.Reset(&git.ResetOptions{Mode: git.HardReset}); err != nil {
		return fmt.Errorf("resetting worktree: %w", err)
	}
	if err := worktree.Clean(&git.CleanOptions{Dir: true}); err != nil {
		return fmt.Errorf("cleaning worktree: %w", err)
	}

	auth, err := m.auth()
	if err != nil {
		return fmt.Errorf("getting token: %w", err)
	}

	branch := m.opts.Branch
	fetchOpts := &git.FetchOptions{
		RefSpecs: []gitconfig.RefSpec{gitconfig.RefSpec(fmt.Sprintf("+refs/heads/%s:refs/remotes/origin/%s", branch, branch))},
		Auth:     auth,
	}

	clog.FromContext(ctx).Debugf("Fetching ref %s", branch)
	if err := m.repo.Fetch(fetchOpts); err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("fetching ref %s: %w", branch, err)
	}

	remoteRef, err := m.repo.Reference(plumbing.NewRemoteReferenceName("origin", branch), true)
	if err != nil {
		return fmt.Errorf("getting remote ref %s: %w", branch, err)
	}

	refName := plumbing.NewBranchReferenceName(branch)
	if err := m.repo.Storer.SetReference(plumbing.NewHashReference(refName, remoteRef.Hash())); err != nil {
		return fmt.Errorf("setting branch reference: %w", err)
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Branch: refName, Force: true}); err != nil {
		return fmt.Errorf("checking out %s: %w", branch, err)
	}
	return nil
}

// validatePath ensures a change path stays inside the checkout.
func (m *Manager) validatePath(path string) (string, error) {
	fullPath := filepath.Join(m.opts.Path, filepath.Clean(path))
	rel, err := filepath.Rel(m.opts.Path, fullPath)
	if err != nil {
		return "", fmt.Errorf("path %q: %w", path, err)
	}
	if strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("path %q escapes repository", path)
	}
	return fullPath, nil
}

// Apply refreshes the checkout, writes the change set, and commits and
// pushes it to the deploy branch. It returns the new commit SHA.
func (m *Manager) Apply(ctx context.Context, changes pagewriter.ChangeSet, message string) (string, error) {
	if err := changes.Validate(); err != nil {
		return "", fmt.Errorf("invalid change set: %w", err)
	}
	if message == "" {
		return "", errors.New("commit message cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.refresh(ctx); err != nil {
		return "", fmt.Errorf("refreshing checkout: %w", err)
	}

	worktree, err := m.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("getting worktree: %w", err)
	}

	for _, f := range changes.Files {
		fullPath, err := m.validatePath(f.Path)
		if err != nil {
			return "", err
		}
		if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
			return "", fmt.Errorf("creating directories for %s: %w", f.Path, err)
		}
		if err := os.WriteFile(fullPath, []byte(f.Content), 0o644); err != nil {
			return "", fmt.Errorf("writing %s: %w", f.Path, err)
		}
		if _, err := worktree.Add(f.Path); err != nil {
			return "", fmt.Errorf("staging %s: %w", f.Path, err)
		}
	}

	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  m.opts.AuthorName,
			Email: m.opts.AuthorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("committing: %w", err)
	}

	if err := m.push(ctx, false); err != nil {
		return "", err
	}

	clog.FromContext(ctx).With("sha", hash.String()).
		With("files", len(changes.Files)).
		Info("Pushed change set")
	return hash.String(), nil
}

// Rollback undoes the most recent deploy. The given SHA must be the current
// branch head; the branch is moved to its parent and force pushed. It
// returns the SHA the branch now points at.
func (m *Manager) Rollback(ctx context.Context, sha string) (string, error) {
	if sha == "" {
		return "", errors.New("sha cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.refresh(ctx); err != nil {
		return "", fmt.Errorf("refreshing checkout: %w", err)
	}

	head, err := m.repo.Head()
	if err != nil {
		return "", fmt.Errorf("getting head: %w", err)
	}
	if head.Hash().String() != sha {
		return "", fmt.Errorf("commit %s is no longer the branch head (now %s); only the latest deploy can be rolled back", sha, head.Hash().String())
	}

	commit, err := m.repo.CommitObject(head.Hash())
	if err != nil {
		return "", fmt.Errorf("getting commit object: %w", err)
	}
	parent, err := commit.Parent(0)
	if err != nil {
		if errors.Is(err, object.ErrParentNotFound) {
			return "", errors.New("cannot roll back the initial commit")
		}
		return "", fmt.Errorf("getting parent commit: %w", err)
	}

	refName := plumbing.NewBranchReferenceName(m.opts.Branch)
	if err := m.repo.Storer.SetReference(plumbing.NewHashReference(refName, parent.Hash)); err != nil {
		return "", fmt.Errorf("setting branch reference: %w", err)
	}

	worktree, err := m.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("getting worktree: %w", err)
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Branch: refName, Force: true}); err != nil {
		return "", fmt.Errorf("checking out %s: %w", m.opts.Branch, err)
	}

	if err := m.push(ctx, true); err != nil {
		return "", err
	}

	clog.FromContext(ctx).With("from", sha).With("to", parent.Hash.String()).
		Info("Rolled back deploy")
	return parent.Hash.String(), nil
}

func (m *Manager) push(ctx context.Context, force bool) error {
	auth, err := m.auth()
	if err != nil {
		return fmt.Errorf("getting token: %w", err)
	}

	branch := m.opts.Branch
	spec := fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch)
	if force {
		spec = "+" + spec
	}

	clog.FromContext(ctx).Debugf("Pushing %s", spec)
	if err := m.repo.Push(&git.PushOptions{
		RemoteName: "origin",
		Auth:       auth,
		Force:      force,
		RefSpecs:   []gitconfig.RefSpec{gitconfig.RefSpec(spec)},
	}); err != nil {
		if errors.Is(err, git.NoErrAlreadyUpToDate) {
			return nil
		}
		return fmt.Errorf("pushing: %w", err)
	}
	return nil
}

// Head returns the SHA of the current branch head.
func (m *Manager) Head() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	head, err := m.repo.Head()
	if err != nil {
		return "", fmt.Errorf("getting head: %w", err)
	}
	return head.Hash().String(), nil
}

// Path returns the local checkout directory.
func (m *Manager) Path() string {
	return m.opts.Path
}
