/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pagewriter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/go-cmp/cmp"
)

func TestChangeSetValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		set     ChangeSet
		wantErr bool
	}{{
		name: "valid single file",
		set:  ChangeSet{Files: []FileChange{{Path: "src/pages/robots.njk", Content: "<h1>Robots</h1>"}}},
	}, {
		name: "valid multiple files",
		set: ChangeSet{Files: []FileChange{
			{Path: "src/pages/robots.njk", Content: "x"},
			{Path: "src/assets/css/style.css", Content: "y"},
		}},
	}, {
		name:    "empty change set",
		set:     ChangeSet{},
		wantErr: true,
	}, {
		name:    "empty path",
		set:     ChangeSet{Files: []FileChange{{Path: "", Content: "x"}}},
		wantErr: true,
	}, {
		name:    "absolute path",
		set:     ChangeSet{Files: []FileChange{{Path: "/etc/passwd", Content: "x"}}},
		wantErr: true,
	}, {
		name:    "parent traversal",
		set:     ChangeSet{Files: []FileChange{{Path: "../outside.txt", Content: "x"}}},
		wantErr: true,
	}, {
		name:    "embedded traversal",
		set:     ChangeSet{Files: []FileChange{{Path: "src/../../outside.txt", Content: "x"}}},
		wantErr: true,
	}, {
		name: "dotdot in a file name is fine",
		set:  ChangeSet{Files: []FileChange{{Path: "src/pages/what..next.njk", Content: "x"}}},
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.set.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestChangeSetPaths(t *testing.T) {
	t.Parallel()

	set := ChangeSet{Files: []FileChange{
		{Path: "src/pages/a.njk"},
		{Path: "src/pages/b.njk"},
	}}
	want := []string{"src/pages/a.njk", "src/pages/b.njk"}
	if diff := cmp.Diff(want, set.Paths()); diff != "" {
		t.Errorf("Paths (-want +got):\n%s", diff)
	}
}

type fakeExecutor struct {
	set ChangeSet
	err error

	gotRequest *Request
}

func (f *fakeExecutor) Execute(_ context.Context, req *Request) (ChangeSet, error) {
	f.gotRequest = req
	return f.set, f.err
}

func (f *fakeExecutor) ExecuteMessages(_ context.Context, _ []anthropic.MessageParam) (ChangeSet, error) {
	return f.set, f.err
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	fake := &fakeExecutor{set: ChangeSet{Files: []FileChange{
		{Path: "src/pages/robots.njk", Content: "<h1>Robots</h1>"},
	}}}
	w := &Writer{exec: fake}

	got, err := w.Generate(context.Background(), &Request{
		Summary:      "Add a robots page",
		Conversation: "Student: add a robots page",
		SiteContext:  "src/",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if diff := cmp.Diff(fake.set, got); diff != "" {
		t.Errorf("Generate (-want +got):\n%s", diff)
	}
	if fake.gotRequest.Summary != "Add a robots page" {
		t.Errorf("request summary = %q", fake.gotRequest.Summary)
	}
}

func TestGenerateRejectsInvalidChangeSet(t *testing.T) {
	t.Parallel()

	w := &Writer{exec: &fakeExecutor{set: ChangeSet{Files: []FileChange{
		{Path: "../../etc/motd", Content: "pwned"},
	}}}}

	if _, err := w.Generate(context.Background(), &Request{Summary: "x"}); err == nil {
		t.Fatal("expected error for traversal path")
	}
}

func TestGeneratePropagatesExecutorError(t *testing.T) {
	t.Parallel()

	w := &Writer{exec: &fakeExecutor{err: errors.New("boom")}}
	if _, err := w.Generate(context.Background(), &Request{Summary: "x"}); err == nil {
		t.Fatal("expected executor error")
	}
}

func TestRequestBind(t *testing.T) {
	t.Parallel()

	req := &Request{
		Summary:      "Add a robots page",
		Conversation: "Student: robots please",
		SiteContext:  "## Repository Structure",
	}
	bound, err := req.Bind(implementPrompt)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	text, err := bound.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for _, want := range []string{req.Summary, req.Conversation, req.SiteContext} {
		if !strings.Contains(text, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(text, "{{") {
		t.Errorf("prompt contains unbound placeholder: %q", text)
	}
}

func TestRenderConversation(t *testing.T) {
	t.Parallel()

	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock("add a robots page")),
		anthropic.NewAssistantMessage(anthropic.NewTextBlock("Which section?")),
		anthropic.NewUserMessage(anthropic.NewTextBlock("projects")),
	}

	want := "Student: add a robots page\nAssistant: Which section?\nStudent: projects"
	if got := RenderConversation(messages); got != want {
		t.Errorf("RenderConversation = %q, want %q", got, want)
	}
}
