/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package pagewriter implements the second phase of the change flow: turning
// an agreed-upon request into a concrete set of complete file contents for
// the website repository.
package pagewriter
