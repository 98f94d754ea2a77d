/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package storyapi serves the collaborative story backend: visitors rate
// candidate next sentences, submit their own, and once a day the
// highest-rated sentence is appended to the story. Claude keeps the
// candidate pool stocked.
package storyapi
