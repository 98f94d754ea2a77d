/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pagewriter

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"chainguard.dev/websmith/agents/executor/claudeexecutor"
	"chainguard.dev/websmith/agents/promptbuilder"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/chainguard-dev/clog"
)

// FileChange is one file to write, with its complete content.
type FileChange struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// ChangeSet is the full set of files produced for one request.
type ChangeSet struct {
	Files []FileChange `json:"files"`
}

// Validate rejects change sets that would write outside the repository or
// that carry no files at all.
func (c ChangeSet) Validate() error {
	if len(c.Files) == 0 {
		return errors.New("change set contains no files")
	}
	for _, f := range c.Files {
		if f.Path == "" {
			return errors.New("change set contains a file with an empty path")
		}
		if path.IsAbs(f.Path) || strings.HasPrefix(f.Path, "\\") || strings.Contains(f.Path, ":\\") {
			return fmt.Errorf("file path %q must be relative to the repository root", f.Path)
		}
		clean := path.Clean(strings.ReplaceAll(f.Path, "\\", "/"))
		if clean == ".." || strings.HasPrefix(clean, "../") {
			return fmt.Errorf("file path %q escapes the repository root", f.Path)
		}
	}
	return nil
}

// Paths returns the touched file paths, in order.
func (c ChangeSet) Paths() []string {
	paths := make([]string, 0, len(c.Files))
	for _, f := range c.Files {
		paths = append(paths, f.Path)
	}
	return paths
}

// Request carries everything the implementation prompt needs.
type Request struct {
	// Summary is the agreed description of the change from the
	// requirements phase.
	Summary string

	// Conversation is the rendered transcript of the gathering phase, so
	// details the student clarified survive into implementation.
	Conversation string

	// SiteContext is the rendered repository context.
	SiteContext string
}

// Bind implements promptbuilder.Bindable.
func (r *Request) Bind(prompt *promptbuilder.Prompt) (*promptbuilder.Prompt, error) {
	bound, err := prompt.BindString("site_context", r.SiteContext)
	if err != nil {
		return nil, fmt.Errorf("binding site context: %w", err)
	}
	if bound, err = bound.BindString("summary", r.Summary); err != nil {
		return nil, fmt.Errorf("binding summary: %w", err)
	}
	return bound.BindString("conversation", r.Conversation)
}

// Writer generates validated change sets from agreed requests.
type Writer struct {
	exec claudeexecutor.Interface[*Request, ChangeSet]
}

// NewWriter creates a Writer backed by the given Claude client. An empty
// model selects the executor default.
func NewWriter(client anthropic.Client, model string) (*Writer, error) {
	opts := []claudeexecutor.Option[*Request, ChangeSet]{
		claudeexecutor.WithSystemInstructions[*Request, ChangeSet](systemInstructions),
		claudeexecutor.WithMaxTokens[*Request, ChangeSet](16384),
	}
	if model != "" {
		opts = append(opts, claudeexecutor.WithModel[*Request, ChangeSet](model))
	}

	exec, err := claudeexecutor.New(client, implementPrompt, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating pagewriter executor: %w", err)
	}
	return &Writer{exec: exec}, nil
}

// Generate produces the change set for an agreed request. The returned set
// has already passed Validate.
func (w *Writer) Generate(ctx context.Context, req *Request) (ChangeSet, error) {
	log := clog.FromContext(ctx)

	changes, err := w.exec.Execute(ctx, req)
	if err != nil {
		return ChangeSet{}, fmt.Errorf("generating changes: %w", err)
	}
	if err := changes.Validate(); err != nil {
		return ChangeSet{}, fmt.Errorf("invalid change set: %w", err)
	}

	log.With("files", len(changes.Files)).Info("Generated change set")
	return changes, nil
}

// RenderConversation flattens a message history into the transcript format
// the implementation prompt expects.
func RenderConversation(messages []anthropic.MessageParam) string {
	var sb strings.Builder
	for _, msg := range messages {
		role := "Student"
		if msg.Role == anthropic.MessageParamRoleAssistant {
			role = "Assistant"
		}
		for _, block := range msg.Content {
			if block.OfText == nil {
				continue
			}
			sb.WriteString(role)
			sb.WriteString(": ")
			sb.WriteString(block.OfText.Text)
			sb.WriteString("\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
