/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package bot connects the Discord gateway to the agents: it tracks per-user
// conversations through the gathering and implementing phases, relays
// clarifying questions, applies generated change sets to the website
// repository, and handles the !rollback, !history, and !help commands.
package bot
