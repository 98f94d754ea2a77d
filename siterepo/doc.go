/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package siterepo manages the local clone of the website repository: it
// keeps the checkout in sync with the remote branch, applies generated
// change sets as commits, and can roll back the most recent deploy.
package siterepo
