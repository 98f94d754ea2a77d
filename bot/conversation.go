/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package bot

import (
	"context"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/chainguard-dev/clog"
)

// Phase is the state of a per-user conversation.
type Phase string

const (
	// PhaseGathering means the requirements agent is still asking
	// clarifying questions.
	PhaseGathering Phase = "gathering"

	// PhaseImplementing means requirements were agreed and changes are
	// being generated.
	PhaseImplementing Phase = "implementing"
)

// Conversation is one user's in-flight request.
type Conversation struct {
	UserID        string
	InitialPrompt string
	Phase         Phase
	Messages      []anthropic.MessageParam

	// Questioned records whether clarifying questions have already been
	// asked, which changes the phrasing of follow-up question replies.
	Questioned bool

	LastActive time.Time
}

// ConversationStore holds in-flight conversations keyed by Discord user ID.
// Conversations that sit idle longer than the expiry are swept, so a student
// who wanders off mid-request starts fresh next time.
type ConversationStore struct {
	idle time.Duration

	mu            sync.Mutex
	conversations map[string]*Conversation
	locks         map[string]*sync.Mutex
}

// NewConversationStore creates a store whose conversations expire after
// sitting idle for the given duration.
func NewConversationStore(idle time.Duration) *ConversationStore {
	return &ConversationStore{
		idle:          idle,
		conversations: make(map[string]*Conversation),
		locks:         make(map[string]*sync.Mutex),
	}
}

// userLock returns the mutex serializing message handling for one user. The
// gateway dispatches every event in its own goroutine, so two quick messages
// from the same user would otherwise mutate the conversation concurrently.
// Locks live for the life of the process: dropping one while it is held could
// hand two goroutines different locks for the same user.
func (s *ConversationStore) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// Lookup returns the user's conversation, refreshing its idle timer.
func (s *ConversationStore) Lookup(userID string) (*Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[userID]
	if ok {
		conv.LastActive = time.Now()
	}
	return conv, ok
}

// Start creates a fresh conversation for the user, replacing any prior one.
func (s *ConversationStore) Start(userID, prompt string) *Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := &Conversation{
		UserID:        userID,
		InitialPrompt: prompt,
		Phase:         PhaseGathering,
		LastActive:    time.Now(),
	}
	s.conversations[userID] = conv
	return conv
}

// Delete removes the user's conversation.
func (s *ConversationStore) Delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, userID)
}

// Len reports the number of in-flight conversations.
func (s *ConversationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conversations)
}

// sweep drops conversations idle past the expiry.
func (s *ConversationStore) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.idle)

	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, conv := range s.conversations {
		if conv.LastActive.Before(cutoff) {
			clog.FromContext(ctx).With("user", userID).Info("Expiring idle conversation")
			delete(s.conversations, userID)
		}
	}
}

// Janitor sweeps idle conversations until the context is canceled.
func (s *ConversationStore) Janitor(ctx context.Context) {
	interval := s.idle / 2
	if interval < time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}
