/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package storyapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"chainguard.dev/websmith/metrics"
	"github.com/chainguard-dev/clog"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

const (
	// minPoolSize is the pool floor; Maintain tops the pool up when the
	// active count drops below it.
	minPoolSize = 30

	// topUpCount is how many sentences each top-up generates.
	topUpCount = 20

	// seedCount is how many sentences seed a fresh pool.
	seedCount = 50

	maxSentenceLength = 500
)

// SentenceSource produces story sentences. *Generator implements it.
type SentenceSource interface {
	Sentences(ctx context.Context, story string, count int) ([]string, error)
	Opening(ctx context.Context) string
}

// ServerOptions configures a Server.
type ServerOptions struct {
	// AdminKey guards the regenerate endpoint (X-Admin-Key header).
	AdminKey string

	// AllowedOrigins is the CORS allowlist for the public site.
	AllowedOrigins []string
}

// Server is the HTTP front end of the story API.
type Server struct {
	store  *Store
	source SentenceSource
	opts   ServerOptions
}

// NewServer creates a Server over the given store and sentence source.
func NewServer(store *Store, source SentenceSource, opts ServerOptions) (*Server, error) {
	switch {
	case store == nil:
		return nil, errors.New("store cannot be nil")
	case source == nil:
		return nil, errors.New("sentence source cannot be nil")
	case opts.AdminKey == "":
		return nil, errors.New("admin key cannot be empty")
	}
	return &Server{store: store, source: source, opts: opts}, nil
}

// Handler returns the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api/webwritten").Subrouter()
	api.HandleFunc("/story", s.handleStory).Methods(http.MethodGet)
	api.HandleFunc("/vote", s.handleVote).Methods(http.MethodPost)
	api.HandleFunc("/submit", s.handleSubmit).Methods(http.MethodPost)
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/admin/regenerate", s.handleRegenerate).Methods(http.MethodPost)

	cors := handlers.CORS(
		handlers.AllowedOrigins(s.opts.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "X-Admin-Key"}),
	)
	return cors(r)
}

func (s *Server) handleStory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	voterID := VoterID(r)

	story, err := s.store.StoryText(ctx)
	if err != nil {
		s.serverError(ctx, w, err)
		return
	}
	sentence, err := s.store.RandomPending(ctx, voterID)
	if err != nil {
		s.serverError(ctx, w, err)
		return
	}
	pending, err := s.store.PendingCount(ctx)
	if err != nil {
		s.serverError(ctx, w, err)
		return
	}
	voted, err := s.store.VotedCount(ctx, voterID)
	if err != nil {
		s.serverError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"story":                   story,
		"current_sentence":        sentence,
		"total_pending_sentences": pending,
		"sentences_voted":         voted,
	})
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	voterID := VoterID(r)

	var req struct {
		SentenceID int64 `json:"sentence_id"`
		Rating     int   `json:"rating"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.SentenceID == 0 || req.Rating == 0 {
		writeError(w, http.StatusBadRequest, "Missing sentence_id or rating")
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeError(w, http.StatusBadRequest, "Rating must be 1-5")
		return
	}

	if err := s.store.CastVote(ctx, req.SentenceID, voterID, req.Rating); err != nil {
		if errors.Is(err, ErrAlreadyVoted) {
			writeError(w, http.StatusBadRequest, "Already voted on this sentence")
			return
		}
		s.serverError(ctx, w, err)
		return
	}
	metrics.StoryVotes.Inc()

	next, err := s.store.RandomPending(ctx, voterID)
	if err != nil {
		s.serverError(ctx, w, err)
		return
	}
	voted, err := s.store.VotedCount(ctx, voterID)
	if err != nil {
		s.serverError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"next_sentence":   next,
		"sentences_voted": voted,
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeError(w, http.StatusBadRequest, "Sentence text required")
		return
	}
	// Characters, not bytes: a multibyte sentence under the limit is fine.
	if utf8.RuneCountInString(text) > maxSentenceLength {
		writeError(w, http.StatusBadRequest, "Sentence too long (max 500 chars)")
		return
	}
	text = strings.ReplaceAll(text, "<", "&lt;")
	text = strings.ReplaceAll(text, ">", "&gt;")

	id, err := s.store.SubmitSentence(ctx, text, VoterID(r))
	if err != nil {
		s.serverError(ctx, w, err)
		return
	}

	clog.FromContext(ctx).With("id", id).Info("User submitted sentence")
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"sentence_id": id,
		"message":     "Your sentence has been added to the pool!",
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	counts, err := s.store.Counts(ctx)
	if err != nil {
		s.serverError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"story_length":      counts.StoryLength,
		"pending_sentences": counts.PendingSentences,
		"total_votes_today": counts.VotesToday,
		"next_selection":    nextSelection(time.Now()).Format(time.RFC3339),
	})
}

func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Header.Get("X-Admin-Key") != s.opts.AdminKey {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	deleted, err := s.store.PruneUnvoted(ctx)
	if err != nil {
		s.serverError(ctx, w, err)
		return
	}

	story, err := s.store.StoryText(ctx)
	if err != nil {
		s.serverError(ctx, w, err)
		return
	}

	sentences, err := s.source.Sentences(ctx, story, seedCount)
	if err != nil {
		clog.FromContext(ctx).With("error", err).Error("Regeneration failed")
		sentences = nil
	}
	if len(sentences) > 0 {
		if err := s.store.AddSentences(ctx, sentences, "llm"); err != nil {
			s.serverError(ctx, w, err)
			return
		}
	}

	clog.FromContext(ctx).With("deleted", deleted).With("added", len(sentences)).
		Info("Regenerated sentence pool")
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"deleted":       deleted,
		"added":         len(sentences),
		"story_context": truncate(story, 100),
	})
}

// Seed populates a fresh database with the opening sentence and an initial
// candidate pool. Already-seeded databases are left alone.
func (s *Server) Seed(ctx context.Context) error {
	log := clog.FromContext(ctx)

	counts, err := s.store.Counts(ctx)
	if err != nil {
		return err
	}
	if counts.StoryLength > 0 {
		return nil
	}

	opening := s.source.Opening(ctx)
	if err := s.store.AppendStory(ctx, opening, "seed"); err != nil {
		return err
	}

	sentences, err := s.source.Sentences(ctx, opening, seedCount)
	if err != nil || len(sentences) == 0 {
		log.With("error", err).Warn("Seeding with fallback sentences")
		sentences = fallbackSentences
	}
	if err := s.store.AddSentences(ctx, sentences, "llm"); err != nil {
		return err
	}

	log.With("opening", truncate(opening, 50)).With("sentences", len(sentences)).
		Info("Seeded story database")
	return nil
}

// Maintain keeps the candidate pool stocked, checking at the given interval
// until the context is canceled.
func (s *Server) Maintain(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.topUpPool(ctx)
		}
	}
}

func (s *Server) topUpPool(ctx context.Context) {
	log := clog.FromContext(ctx)

	count, err := s.store.PendingCount(ctx)
	if err != nil {
		log.With("error", err).Error("Failed to count pool")
		return
	}
	if count >= minPoolSize {
		return
	}

	log.With("count", count).Info("Pool below floor, generating sentences")
	story, err := s.store.StoryText(ctx)
	if err != nil {
		log.With("error", err).Error("Failed to read story")
		return
	}
	sentences, err := s.source.Sentences(ctx, story, topUpCount)
	if err != nil {
		log.With("error", err).Error("Failed to generate sentences")
		return
	}
	if err := s.store.AddSentences(ctx, sentences, "llm"); err != nil {
		log.With("error", err).Error("Failed to add sentences")
		return
	}
	log.With("added", len(sentences)).Info("Topped up sentence pool")
}

// RunDailySelection promotes a winner at every UTC midnight until the
// context is canceled.
func (s *Server) RunDailySelection(ctx context.Context) {
	log := clog.FromContext(ctx)
	for {
		wait := time.Until(nextSelection(time.Now()))
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		winner, err := s.store.SelectDailyWinner(ctx)
		switch {
		case err != nil:
			log.With("error", err).Error("Daily selection failed")
		case winner == nil:
			log.Info("No winner today, not enough votes")
		default:
			log.With("sentence", truncate(winner.Text, 50)).
				With("rating", winner.Rating).
				With("votes", winner.Votes).
				Info("Selected daily winner")
		}
	}
}

// nextSelection returns the next UTC midnight after now.
func nextSelection(now time.Time) time.Time {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if !midnight.After(now) {
		midnight = midnight.AddDate(0, 0, 1)
	}
	return midnight
}

func (s *Server) serverError(ctx context.Context, w http.ResponseWriter, err error) {
	clog.FromContext(ctx).With("error", err).Error("Request failed")
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
