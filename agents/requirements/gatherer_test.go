/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package requirements

import (
	"context"
	"errors"
	"strings"
	"testing"

	"chainguard.dev/websmith/agents/result"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/go-cmp/cmp"
)

type fakeExecutor struct {
	reqs Requirements
	err  error
}

func (f *fakeExecutor) Execute(_ context.Context, _ *Request) (Requirements, error) {
	return f.reqs, f.err
}

func (f *fakeExecutor) ExecuteMessages(_ context.Context, _ []anthropic.MessageParam) (Requirements, error) {
	return f.reqs, f.err
}

func TestInitialMessage(t *testing.T) {
	t.Parallel()

	g, err := NewGatherer(anthropic.Client{}, "")
	if err != nil {
		t.Fatalf("NewGatherer: %v", err)
	}

	msg, err := g.InitialMessage(&Request{
		Prompt:      "add a page about robots",
		SiteContext: "## Repository Structure\nsrc/",
	})
	if err != nil {
		t.Fatalf("InitialMessage: %v", err)
	}

	if len(msg.Content) != 1 {
		t.Fatalf("got %d content blocks, want 1", len(msg.Content))
	}
	text := msg.Content[0].OfText.Text
	if !strings.Contains(text, "add a page about robots") {
		t.Errorf("message missing student request: %q", text)
	}
	if !strings.Contains(text, "## Repository Structure") {
		t.Errorf("message missing site context: %q", text)
	}
	if strings.Contains(text, "{{") {
		t.Errorf("message contains unbound placeholder: %q", text)
	}
}

func TestGather(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		exec    *fakeExecutor
		want    Requirements
		wantErr bool
	}{{
		name: "ready to implement",
		exec: &fakeExecutor{reqs: Requirements{
			ReadyToImplement: true,
			Summary:          "Add a robots page",
		}},
		want: Requirements{ReadyToImplement: true, Summary: "Add a robots page"},
	}, {
		name: "needs clarification",
		exec: &fakeExecutor{reqs: Requirements{
			Questions: []string{"Which section should the page link from?"},
			Summary:   "A new page about robots",
		}},
		want: Requirements{
			Questions: []string{"Which section should the page link from?"},
			Summary:   "A new page about robots",
		},
	}, {
		name: "prose response treated as ready",
		exec: &fakeExecutor{err: &result.ParseError{
			Raw: "Sure, I understand what you want.",
			Err: errors.New("no valid JSON found"),
		}},
		want: Requirements{
			ReadyToImplement: true,
			Summary:          "Request understood from the model's explanation",
		},
	}, {
		name: "wrapped parse error treated as ready",
		exec: &fakeExecutor{err: errors.Join(errors.New("failed to parse response"), &result.ParseError{
			Raw: "I'll get right on it.",
			Err: errors.New("no valid JSON found"),
		})},
		want: Requirements{
			ReadyToImplement: true,
			Summary:          "Request understood from the model's explanation",
		},
	}, {
		name:    "transport error propagates",
		exec:    &fakeExecutor{err: errors.New("connection reset")},
		wantErr: true,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g := &Gatherer{exec: tt.exec}
			got, err := g.Gather(context.Background(), []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock("hi")),
			})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Gather: err=%v, wantErr=%v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Gather (-want +got):\n%s", diff)
			}
		})
	}
}
