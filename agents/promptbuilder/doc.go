/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package promptbuilder provides template prompts with explicit, checked
// placeholder bindings.
//
// A prompt is authored with {{name}} placeholders, values are bound one at a
// time, and Build fails if any placeholder is still unbound. This keeps the
// prompt text auditable while making it impossible to ship a prompt with a
// hole in it:
//
//	p, _ := promptbuilder.NewPrompt("Site:\n{{site_context}}\n\nRequest: {{request}}")
//	p, _ = p.BindString("site_context", siteContext)
//	p, _ = p.BindString("request", userPrompt)
//	text, err := p.Build()
//
// Prompts are immutable; every Bind returns a new Prompt, so a parsed template
// can be shared and bound concurrently.
package promptbuilder
