/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package requirements implements the first phase of the two-phase change
// flow: a conversation with Claude that either asks the student clarifying
// questions or declares the request ready to implement.
package requirements
