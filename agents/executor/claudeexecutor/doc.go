/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package claudeexecutor provides a generic executor for Claude calls that
// return structured JSON, reducing boilerplate in the agents built on it.
//
// The executor handles the common request pattern:
//   - Prompt rendering from promptbuilder templates
//   - Message streaming and accumulation
//   - Retry with backoff on rate limit and overload errors
//   - Typed JSON response parsing via the result package
//   - Token usage metrics
//
// # Basic Usage
//
// Create an executor with a client and prompt template:
//
//	client := anthropic.NewClient(option.WithAPIKey(apiKey))
//
//	prompt := promptbuilder.MustNewPrompt("Summarize: {{input}}")
//
//	exec, err := claudeexecutor.New[*Request, Summary](
//	    client,
//	    prompt,
//	    claudeexecutor.WithMaxTokens[*Request, Summary](1024),
//	)
//	if err != nil {
//	    return nil, err
//	}
//
//	summary, err := exec.Execute(ctx, request)
//
// Execute renders the prompt from the request and runs a single-turn
// conversation. ExecuteMessages accepts a caller-managed message history for
// multi-turn exchanges such as requirements gathering.
//
// # Options
//
//   - WithModel: Override the default model (defaults to claude-sonnet-4-20250514)
//   - WithMaxTokens: Set maximum response tokens (defaults to 8192, max 32000)
//   - WithTemperature: Set response temperature (defaults to 0.1)
//   - WithSystemInstructions: Provide system-level instructions
//   - WithRetryConfig: Tune retry behavior for transient API errors
package claudeexecutor
