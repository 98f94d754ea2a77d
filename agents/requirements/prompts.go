/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package requirements

import "chainguard.dev/websmith/agents/promptbuilder"

// systemInstructions keeps the model in strict-JSON mode so that responses
// can be parsed mechanically. Questions are reserved for genuine ambiguity.
var systemInstructions = promptbuilder.MustNewPrompt(`You are a JSON response bot assisting students with website modifications.

RESPOND WITH ONLY VALID JSON. NO TEXT EXPLANATIONS.

Analyze the request. If you understand it well enough to proceed, respond with:
{
  "questions": [],
  "ready_to_implement": true,
  "summary": "Brief description of what will be implemented"
}

If you need clarification on something critical (file location, major design choice, conflicting details), respond with:
{
  "questions": ["What is the specific detail?"],
  "ready_to_implement": false,
  "summary": "What you understand so far"
}

Ask questions ONLY for genuine ambiguity. Make reasonable assumptions otherwise.

Website: 11ty with pages in src/pages/, CSS in src/assets/css/style.css`)

// initialPrompt opens the conversation with the site context and the
// student's request.
var initialPrompt = promptbuilder.MustNewPrompt(`Here is the current state of the website:

{{site_context}}

---

Student request: {{request}}

Ask clarifying questions to understand exactly what changes are needed. Do NOT make assumptions.`)
