/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package storyapi

import (
	"net/http/httptest"
	"testing"
)

func TestVoterID(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("GET", "/api/webwritten/story", nil)
	req.RemoteAddr = "203.0.113.7:54321"
	req.Header.Set("User-Agent", "Mozilla/5.0")

	id := VoterID(req)
	if len(id) != 16 {
		t.Fatalf("len(id) = %d, want 16", len(id))
	}

	// Stable for the same client.
	if again := VoterID(req); again != id {
		t.Errorf("VoterID not stable: %q vs %q", id, again)
	}

	// Different UA yields a different identity.
	other := httptest.NewRequest("GET", "/api/webwritten/story", nil)
	other.RemoteAddr = "203.0.113.7:54321"
	other.Header.Set("User-Agent", "curl/8.0")
	if VoterID(other) == id {
		t.Error("different user agents should produce different voter IDs")
	}

	// Port changes do not change the identity.
	samePort := httptest.NewRequest("GET", "/api/webwritten/story", nil)
	samePort.RemoteAddr = "203.0.113.7:11111"
	samePort.Header.Set("User-Agent", "Mozilla/5.0")
	if VoterID(samePort) != id {
		t.Error("client port should not affect the voter ID")
	}
}

func TestVoterIDForwardedFor(t *testing.T) {
	t.Parallel()

	direct := httptest.NewRequest("GET", "/", nil)
	direct.RemoteAddr = "198.51.100.1:443"
	direct.Header.Set("User-Agent", "Mozilla/5.0")

	proxied := httptest.NewRequest("GET", "/", nil)
	proxied.RemoteAddr = "10.0.0.1:443" // the proxy
	proxied.Header.Set("User-Agent", "Mozilla/5.0")
	proxied.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.1")

	if VoterID(direct) != VoterID(proxied) {
		t.Error("proxied request should resolve to the original client IP")
	}
}
