/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package metrics exposes Prometheus instrumentation shared by the bot and
// the story API.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MessagesHandled counts inbound chat messages by outcome
	// (questions, deployed, rejected, error).
	MessagesHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "websmith_messages_handled_total",
		Help: "Inbound chat messages processed, by outcome.",
	}, []string{"outcome"})

	// Deploys counts commits pushed to the website repository.
	Deploys = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "websmith_deploys_total",
		Help: "Commits pushed to the website repository, by kind (deploy, rollback).",
	}, []string{"kind"})

	// ModelTokens counts Claude token usage by model and direction
	// (input, output).
	ModelTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "websmith_model_tokens_total",
		Help: "Claude API token usage.",
	}, []string{"model", "direction"})

	// ModelCalls counts Claude API calls by model and status (ok, error).
	ModelCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "websmith_model_calls_total",
		Help: "Claude API calls.",
	}, []string{"model", "status"})

	// StoryVotes counts votes recorded by the story API.
	StoryVotes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websmith_story_votes_total",
		Help: "Votes recorded by the collaborative story API.",
	})
)

// RecordTokens records token usage for one model call.
func RecordTokens(model string, inputTokens, outputTokens int64) {
	ModelTokens.WithLabelValues(model, "input").Add(float64(inputTokens))
	ModelTokens.WithLabelValues(model, "output").Add(float64(outputTokens))
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
