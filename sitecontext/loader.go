/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package sitecontext

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chainguard-dev/clog"
)

// Loader renders the site context for a repository checkout.
type Loader struct {
	repoPath string
	cfg      Config
}

// NewLoader creates a Loader for the repository at repoPath.
func NewLoader(repoPath string, cfg Config) *Loader {
	return &Loader{repoPath: repoPath, cfg: cfg}
}

// Build renders the full context block: repository tree, key file contents,
// and guidelines. Missing key files are skipped rather than failing the
// whole render.
func (l *Loader) Build(ctx context.Context) (string, error) {
	log := clog.FromContext(ctx)

	tree, err := renderTree(l.repoPath, l.cfg.MaxTreeDepth, l.cfg.SkipDirs)
	if err != nil {
		return "", fmt.Errorf("rendering repository tree: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("## Repository Structure\n\n```\n")
	sb.WriteString(tree)
	sb.WriteString("```\n\n## Key Files\n")

	for _, rel := range l.cfg.KeyFiles {
		data, err := os.ReadFile(filepath.Join(l.repoPath, rel))
		if err != nil {
			log.With("file", rel).Debug("Skipping unreadable key file")
			continue
		}

		content := string(data)
		truncated := false
		if len(content) > l.cfg.MaxFileBytes {
			content = content[:l.cfg.MaxFileBytes]
			truncated = true
		}

		sb.WriteString("\n### " + rel + "\n\n```\n")
		sb.WriteString(content)
		if !strings.HasSuffix(content, "\n") {
			sb.WriteString("\n")
		}
		if truncated {
			sb.WriteString("... (truncated)\n")
		}
		sb.WriteString("```\n")
	}

	if l.cfg.Guidelines != "" {
		sb.WriteString("\n## Guidelines\n\n")
		sb.WriteString(l.cfg.Guidelines)
		if !strings.HasSuffix(l.cfg.Guidelines, "\n") {
			sb.WriteString("\n")
		}
	}

	return sb.String(), nil
}
