/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package claudeexecutor

import (
	"context"
	"errors"
	"fmt"

	"chainguard.dev/websmith/agents/executor/retry"
	"chainguard.dev/websmith/agents/promptbuilder"
	"chainguard.dev/websmith/agents/result"
	"chainguard.dev/websmith/metrics"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/chainguard-dev/clog"
)

// DefaultModel is the model used when WithModel is not supplied.
const DefaultModel = "claude-sonnet-4-20250514"

// Interface is the public interface for Claude execution.
type Interface[Request promptbuilder.Bindable, Response any] interface {
	// Execute renders the prompt from the request and runs a single-turn
	// conversation, parsing the response into Response.
	Execute(ctx context.Context, request Request) (Response, error)

	// ExecuteMessages runs a conversation with a caller-managed message
	// history, parsing the final response into Response.
	ExecuteMessages(ctx context.Context, messages []anthropic.MessageParam) (Response, error)
}

// executor provides the private implementation.
type executor[Request promptbuilder.Bindable, Response any] struct {
	client             anthropic.Client
	modelName          string
	systemInstructions *promptbuilder.Prompt
	prompt             *promptbuilder.Prompt
	maxTokens          int64
	temperature        float64
	retryConfig        retry.Config
}

// New creates a new executor with minimal required configuration.
func New[Request promptbuilder.Bindable, Response any](
	client anthropic.Client,
	prompt *promptbuilder.Prompt,
	opts ...Option[Request, Response],
) (Interface[Request, Response], error) {
	if prompt == nil {
		return nil, errors.New("prompt cannot be nil")
	}

	e := &executor[Request, Response]{
		client:      client,
		modelName:   DefaultModel,
		prompt:      prompt,
		maxTokens:   8192,
		temperature: 0.1, // low temperature for consistency
		retryConfig: retry.DefaultConfig(),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	return e, nil
}

// Execute implements Interface.
func (e *executor[Request, Response]) Execute(ctx context.Context, request Request) (Response, error) {
	var response Response

	boundPrompt, err := request.Bind(e.prompt)
	if err != nil {
		return response, fmt.Errorf("failed to bind request to prompt: %w", err)
	}

	prompt, err := boundPrompt.Build()
	if err != nil {
		return response, fmt.Errorf("failed to build prompt: %w", err)
	}

	return e.ExecuteMessages(ctx, []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
	})
}

// ExecuteMessages implements Interface.
func (e *executor[Request, Response]) ExecuteMessages(ctx context.Context, messages []anthropic.MessageParam) (response Response, err error) {
	log := clog.FromContext(ctx)

	if len(messages) == 0 {
		return response, errors.New("messages cannot be empty")
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(e.modelName),
		MaxTokens: e.maxTokens,
		Messages:  messages,
	}
	params.Temperature = anthropic.Float(e.temperature)

	if e.systemInstructions != nil {
		systemPrompt, err := e.systemInstructions.Build()
		if err != nil {
			return response, fmt.Errorf("building system prompt: %w", err)
		}
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	log.With("model", e.modelName).
		With("messages", len(messages)).
		Info("Starting Claude call")

	// Stream the response with retry for transient errors.
	message, err := retry.Do(ctx, e.retryConfig, "stream_message", isRetryableClaudeError, func() (anthropic.Message, error) {
		stream := e.client.Messages.NewStreaming(ctx, params)
		var msg anthropic.Message
		for stream.Next() {
			event := stream.Current()
			if err := msg.Accumulate(event); err != nil {
				return msg, fmt.Errorf("failed to accumulate event: %w", err)
			}
		}
		if err := stream.Err(); err != nil {
			return msg, err
		}
		return msg, nil
	})
	if err != nil {
		metrics.ModelCalls.WithLabelValues(e.modelName, "error").Inc()
		return response, fmt.Errorf("failed to stream Claude response: %w", err)
	}
	metrics.ModelCalls.WithLabelValues(e.modelName, "ok").Inc()

	if message.Usage.InputTokens > 0 || message.Usage.OutputTokens > 0 {
		metrics.RecordTokens(e.modelName, message.Usage.InputTokens, message.Usage.OutputTokens)
	}

	var textContent string
	for _, content := range message.Content {
		if content.Type == "text" {
			textContent = content.Text
		}
	}

	if textContent == "" {
		return response, errors.New("no content in Claude's response")
	}

	resp, err := result.Extract[Response](textContent)
	if err != nil {
		log.With("error", err).Error("Failed to parse Claude response")
		// Callers can unwrap to *result.ParseError to recover the raw text.
		return response, fmt.Errorf("failed to parse response: %w", err)
	}

	log.Info("Completed Claude call")
	return resp, nil
}
