/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package storyapi

import (
	"context"
	"fmt"
	"strconv"

	"chainguard.dev/websmith/agents/executor/claudeexecutor"
	"chainguard.dev/websmith/agents/promptbuilder"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/chainguard-dev/clog"
)

// fallbackOpening seeds the story when Claude is unavailable.
const fallbackOpening = "The old lighthouse had been dark for seventeen years, but tonight, a light flickered in its highest window."

// fallbackSentences stock the pool when generation fails at seed time.
var fallbackSentences = []string{
	"A chill ran down my spine as I watched.",
	"The sound of footsteps echoed from somewhere above.",
	"I had to know who—or what—was inside.",
	"The villagers had warned me to stay away.",
	"My flashlight flickered, then died completely.",
}

var poolPrompt = promptbuilder.MustNewPrompt(`You are helping write a collaborative story. Here is the story so far:

"{{story}}"

Generate {{count}} unique, creative potential next sentences.
Each sentence should:
- Be 10-30 words
- Continue the story naturally
- Vary in tone and direction (some dramatic, some calm, some mysterious)
- Be appropriate for all ages
- Be a complete thought that flows from the current story

Return ONLY a JSON array of strings, no other text:
["sentence1", "sentence2", ...]`)

var openingPrompt = promptbuilder.MustNewPrompt(`Write a single opening sentence for a collaborative mystery story. The sentence should be intriguing and set the scene.

Return ONLY a JSON object, no other text:
{"sentence": "your opening sentence"}`)

type poolRequest struct {
	Story string
	Count int
}

func (r *poolRequest) Bind(p *promptbuilder.Prompt) (*promptbuilder.Prompt, error) {
	bound, err := p.BindString("story", r.Story)
	if err != nil {
		return nil, fmt.Errorf("binding story: %w", err)
	}
	return bound.BindString("count", strconv.Itoa(r.Count))
}

type openingResponse struct {
	Sentence string `json:"sentence"`
}

// Generator produces candidate sentences and the story opening with Claude.
type Generator struct {
	pool    claudeexecutor.Interface[*poolRequest, []string]
	opening claudeexecutor.Interface[promptbuilder.Noop, openingResponse]
}

// NewGenerator creates a Generator backed by the given Claude client. An
// empty model selects the executor default.
func NewGenerator(client anthropic.Client, model string) (*Generator, error) {
	poolOpts := []claudeexecutor.Option[*poolRequest, []string]{
		claudeexecutor.WithMaxTokens[*poolRequest, []string](2048),
		claudeexecutor.WithTemperature[*poolRequest, []string](1.0),
	}
	openingOpts := []claudeexecutor.Option[promptbuilder.Noop, openingResponse]{
		claudeexecutor.WithMaxTokens[promptbuilder.Noop, openingResponse](256),
		claudeexecutor.WithTemperature[promptbuilder.Noop, openingResponse](1.0),
	}
	if model != "" {
		poolOpts = append(poolOpts, claudeexecutor.WithModel[*poolRequest, []string](model))
		openingOpts = append(openingOpts, claudeexecutor.WithModel[promptbuilder.Noop, openingResponse](model))
	}

	pool, err := claudeexecutor.New(client, poolPrompt, poolOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating pool executor: %w", err)
	}
	opening, err := claudeexecutor.New(client, openingPrompt, openingOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating opening executor: %w", err)
	}
	return &Generator{pool: pool, opening: opening}, nil
}

// Sentences generates candidate next sentences for the story so far.
func (g *Generator) Sentences(ctx context.Context, story string, count int) ([]string, error) {
	if story == "" {
		story = "(Story has not started yet)"
	}

	sentences, err := g.pool.Execute(ctx, &poolRequest{Story: story, Count: count})
	if err != nil {
		return nil, fmt.Errorf("generating sentences: %w", err)
	}
	return sentences, nil
}

// Opening generates the story's opening sentence, falling back to a stock
// opening when generation fails.
func (g *Generator) Opening(ctx context.Context) string {
	resp, err := g.opening.Execute(ctx, promptbuilder.Noop{})
	if err != nil || resp.Sentence == "" {
		clog.FromContext(ctx).With("error", err).Warn("Falling back to stock opening sentence")
		return fallbackOpening
	}
	return resp.Sentence
}
