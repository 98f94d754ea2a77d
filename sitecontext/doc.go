/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package sitecontext renders a snapshot of the website repository — its
// directory tree, key file contents, and editing guidelines — into the text
// block the agents receive as context.
package sitecontext
