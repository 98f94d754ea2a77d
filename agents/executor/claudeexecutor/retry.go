/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package claudeexecutor

import (
	"errors"

	"github.com/anthropics/anthropic-sdk-go"
)

// isRetryableClaudeError reports whether the API error is transient: rate
// limiting (429), a gateway failure (503/504), or Anthropic's overloaded
// status (529). Anything else, auth and validation errors included, fails
// fast.
func isRetryableClaudeError(err error) bool {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.StatusCode {
	case 429, 503, 504, 529:
		return true
	default:
		return false
	}
}
