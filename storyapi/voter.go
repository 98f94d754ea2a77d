/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package storyapi

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
)

// VoterID derives an anonymous voter identity from the request: the SHA-256
// of "ip:user-agent", truncated to 16 hex characters. Proxied requests use
// the first X-Forwarded-For hop.
func VoterID(r *http.Request) string {
	ip := clientIP(r)
	ua := r.Header.Get("User-Agent")
	if ua == "" {
		ua = "unknown"
	}

	sum := sha256.Sum256([]byte(ip + ":" + ua))
	return hex.EncodeToString(sum[:])[:16]
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, ok := strings.Cut(fwd, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(fwd)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
