/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

import (
	"encoding/json"
	"fmt"
	"maps"
	"strings"
)

// Prompt represents a template with bindable {{name}} placeholders.
type Prompt struct {
	template string
	bindings map[string]binding
}

// binding produces the replacement text for a placeholder.
type binding interface {
	value() (string, error)
}

type unboundBinding struct{ name string }

func (b *unboundBinding) value() (string, error) {
	return "", fmt.Errorf("binding %q has no value", b.name)
}

type stringBinding struct{ val string }

func (b *stringBinding) value() (string, error) { return b.val, nil }

type jsonBinding struct{ data any }

func (b *jsonBinding) value() (string, error) {
	out, err := json.MarshalIndent(b.data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON binding: %w", err)
	}
	return string(out), nil
}

// NewPrompt parses a template and records every placeholder it contains.
func NewPrompt(template string) (*Prompt, error) {
	bindings := make(map[string]binding)

	if _, err := walkTemplate(template, func(name string) (string, error) {
		if _, exists := bindings[name]; !exists {
			bindings[name] = &unboundBinding{name: name}
		}
		return fmt.Sprintf("{{%s}}", name), nil
	}); err != nil {
		return nil, err
	}

	return &Prompt{
		template: template,
		bindings: bindings,
	}, nil
}

// MustNewPrompt is NewPrompt for package-level prompt construction; it panics
// on malformed templates, which are programmer errors.
func MustNewPrompt(template string) *Prompt {
	p, err := NewPrompt(template)
	if err != nil {
		panic(err)
	}
	return p
}

// Bindings returns the names of all placeholders found in the template.
func (p *Prompt) Bindings() map[string]struct{} {
	names := make(map[string]struct{}, len(p.bindings))
	for name := range p.bindings {
		names[name] = struct{}{}
	}
	return names
}

// BindString binds a string value to a placeholder and returns a new Prompt.
func (p *Prompt) BindString(name, value string) (*Prompt, error) {
	return p.bind(name, &stringBinding{val: value})
}

// BindJSON binds structured data to a placeholder by marshaling it as JSON.
func (p *Prompt) BindJSON(name string, data any) (*Prompt, error) {
	return p.bind(name, &jsonBinding{data: data})
}

func (p *Prompt) bind(name string, b binding) (*Prompt, error) {
	existing, ok := p.bindings[name]
	if !ok {
		return nil, fmt.Errorf("template has no binding named %q", name)
	}
	if _, unbound := existing.(*unboundBinding); !unbound {
		return nil, fmt.Errorf("binding %q is already bound", name)
	}

	next := &Prompt{
		template: p.template,
		bindings: maps.Clone(p.bindings),
	}
	next.bindings[name] = b
	return next, nil
}

// Build constructs the final prompt text, failing if any binding is unbound.
func (p *Prompt) Build() (string, error) {
	values := make(map[string]string, len(p.bindings))
	for name, b := range p.bindings {
		val, err := b.value()
		if err != nil {
			return "", err
		}
		values[name] = val
	}

	return walkTemplate(p.template, func(name string) (string, error) {
		return values[name], nil
	})
}

// walkTemplate scans the template for {{name}} placeholders and replaces each
// through fn. Placeholder names must be non-empty and may not contain braces
// or newlines.
func walkTemplate(template string, fn func(name string) (string, error)) (string, error) {
	var out strings.Builder
	rest := template

	for {
		open := strings.Index(rest, "{{")
		if open < 0 {
			out.WriteString(rest)
			return out.String(), nil
		}
		out.WriteString(rest[:open])
		rest = rest[open+2:]

		closing := strings.Index(rest, "}}")
		if closing < 0 {
			return "", fmt.Errorf("unterminated placeholder near %q", truncate(rest, 20))
		}

		name := strings.TrimSpace(rest[:closing])
		if name == "" {
			return "", fmt.Errorf("empty placeholder name")
		}
		if strings.ContainsAny(name, "{}\n") {
			return "", fmt.Errorf("invalid placeholder name %q", name)
		}

		val, err := fn(name)
		if err != nil {
			return "", err
		}
		out.WriteString(val)
		rest = rest[closing+2:]
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
