/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package deploys reads deploy metadata — commit URLs and recent history —
// from the GitHub API for the website repository.
package deploys
