/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package requirements

import (
	"context"
	"errors"
	"fmt"

	"chainguard.dev/websmith/agents/executor/claudeexecutor"
	"chainguard.dev/websmith/agents/promptbuilder"
	"chainguard.dev/websmith/agents/result"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/chainguard-dev/clog"
)

// Requirements is Claude's structured verdict on a student request.
type Requirements struct {
	// Questions are clarifying questions for the student. Empty when the
	// request is understood.
	Questions []string `json:"questions"`

	// ReadyToImplement reports whether the request can proceed to the
	// implementation phase.
	ReadyToImplement bool `json:"ready_to_implement"`

	// Summary is a short description of what will be implemented, or of
	// what has been understood so far.
	Summary string `json:"summary"`
}

// Request carries the student's prompt and the rendered site context into
// the opening message of the conversation.
type Request struct {
	Prompt      string
	SiteContext string
}

// Bind implements promptbuilder.Bindable.
func (r *Request) Bind(prompt *promptbuilder.Prompt) (*promptbuilder.Prompt, error) {
	bound, err := prompt.BindString("site_context", r.SiteContext)
	if err != nil {
		return nil, fmt.Errorf("binding site context: %w", err)
	}
	return bound.BindString("request", r.Prompt)
}

// Gatherer drives the requirements-gathering conversation.
type Gatherer struct {
	exec claudeexecutor.Interface[*Request, Requirements]
}

// NewGatherer creates a Gatherer backed by the given Claude client. An empty
// model selects the executor default.
func NewGatherer(client anthropic.Client, model string) (*Gatherer, error) {
	opts := []claudeexecutor.Option[*Request, Requirements]{
		claudeexecutor.WithSystemInstructions[*Request, Requirements](systemInstructions),
		claudeexecutor.WithMaxTokens[*Request, Requirements](1024),
	}
	if model != "" {
		opts = append(opts, claudeexecutor.WithModel[*Request, Requirements](model))
	}

	exec, err := claudeexecutor.New(client, initialPrompt, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating requirements executor: %w", err)
	}
	return &Gatherer{exec: exec}, nil
}

// InitialMessage renders the opening user message for a new conversation.
// Callers own the message history; the gatherer only shapes its turns.
func (g *Gatherer) InitialMessage(req *Request) (anthropic.MessageParam, error) {
	bound, err := req.Bind(initialPrompt)
	if err != nil {
		return anthropic.MessageParam{}, fmt.Errorf("binding initial prompt: %w", err)
	}
	text, err := bound.Build()
	if err != nil {
		return anthropic.MessageParam{}, fmt.Errorf("building initial prompt: %w", err)
	}
	return anthropic.NewUserMessage(anthropic.NewTextBlock(text)), nil
}

// Gather runs one requirements turn over the accumulated message history.
// When Claude answers with prose instead of the requested JSON, the request
// is treated as understood and ready to implement.
func (g *Gatherer) Gather(ctx context.Context, history []anthropic.MessageParam) (Requirements, error) {
	reqs, err := g.exec.ExecuteMessages(ctx, history)
	if err != nil {
		var parseErr *result.ParseError
		if errors.As(err, &parseErr) {
			clog.FromContext(ctx).Warn("Requirements response was not JSON; treating request as ready")
			return Requirements{
				ReadyToImplement: true,
				Summary:          "Request understood from the model's explanation",
			}, nil
		}
		return Requirements{}, fmt.Errorf("gathering requirements: %w", err)
	}
	return reqs, nil
}
