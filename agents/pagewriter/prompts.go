/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pagewriter

import "chainguard.dev/websmith/agents/promptbuilder"

// systemInstructions pins down the output contract: full file contents only,
// inside a single JSON object, with paths rooted in the 11ty layout.
var systemInstructions = promptbuilder.MustNewPrompt(`You are a web developer implementing changes to an 11ty static website.

CRITICAL RULES:
1. Respond with ONLY valid JSON. No explanations, no markdown fences, no text before or after.
2. Every file you touch must include its COMPLETE content. Never use placeholders like "... rest of file unchanged".
3. New pages go in src/pages/ and use the existing layout from src/_layouts/.
4. Styling changes go in src/assets/css/style.css. Do not create new stylesheets.
5. Do not modify .eleventy.js or package.json unless the request explicitly requires it.
6. Keep the existing visual style and navigation structure intact.

Response format:
{
  "files": [
    {"path": "src/pages/example.njk", "content": "<full file content>"}
  ]
}`)

// implementPrompt asks for the implementation given the site context, the
// agreed summary, and the conversation that produced it.
var implementPrompt = promptbuilder.MustNewPrompt(`Here is the current state of the website:

{{site_context}}

---

Agreed request: {{summary}}

Conversation so far:
{{conversation}}

Implement the request now. Respond with the JSON object of complete file contents.`)
