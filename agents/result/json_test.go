/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package result

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtractJSONFencedBlock(t *testing.T) {
	input := "Here is the change:\n```json\n{\"path\": \"src/index.md\"}\n```\nLet me know!"
	got := ExtractJSON(input)
	want := `{"path": "src/index.md"}`
	if got != want {
		t.Fatalf("ExtractJSON = %q, want %q", got, want)
	}
}

func TestExtractJSONBareObject(t *testing.T) {
	input := `{"files": [{"path": "a", "content": "b"}]}`
	if got := ExtractJSON(input); got != input {
		t.Fatalf("ExtractJSON = %q, want input unchanged", got)
	}
}

func TestExtractJSONSurroundingProse(t *testing.T) {
	input := `I analyzed the request. {"ready_to_implement": true, "questions": []} Hope that helps.`
	got := ExtractJSON(input)
	want := `{"ready_to_implement": true, "questions": []}`
	if got != want {
		t.Fatalf("ExtractJSON = %q, want %q", got, want)
	}
}

func TestExtractJSONPrefersLastCandidate(t *testing.T) {
	input := `The format is {"example": true}. Final answer: {"summary": "done"}`
	got := ExtractJSON(input)
	want := `{"summary": "done"}`
	if got != want {
		t.Fatalf("ExtractJSON = %q, want %q", got, want)
	}
}

func TestExtractJSONBracesInsideStrings(t *testing.T) {
	input := `{"content": "body { color: red; }"}`
	if got := ExtractJSON(input); got != input {
		t.Fatalf("ExtractJSON = %q, want input unchanged", got)
	}
}

func TestExtractJSONTrailingGarbage(t *testing.T) {
	input := `{"summary": "ok"} trailing notes that are not JSON`
	got := ExtractJSON(input)
	want := `{"summary": "ok"}`
	if got != want {
		t.Fatalf("ExtractJSON = %q, want %q", got, want)
	}
}

func TestExtractJSONArray(t *testing.T) {
	input := "Here you go:\n[\"one\", \"two\"]"
	got := ExtractJSON(input)
	want := `["one", "two"]`
	if got != want {
		t.Fatalf("ExtractJSON = %q, want %q", got, want)
	}
}

func TestExtractJSONGenericFence(t *testing.T) {
	input := "```\n{\"a\": 1}\n```"
	got := ExtractJSON(input)
	want := "{\"a\": 1}"
	if got != want {
		t.Fatalf("ExtractJSON = %q, want %q", got, want)
	}
}

func TestExtractJSONEmptyFence(t *testing.T) {
	if got := ExtractJSON("```json\n```"); got != "" {
		t.Fatalf("ExtractJSON = %q, want empty", got)
	}
}

func TestExtract(t *testing.T) {
	type fileChange struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	type changeSet struct {
		Files []fileChange `json:"files"`
	}

	input := "```json\n{\"files\": [{\"path\": \"src/about.md\", \"content\": \"hello\"}]}\n```"
	got, err := Extract[changeSet](input)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	want := changeSet{Files: []fileChange{{Path: "src/about.md", Content: "hello"}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Extract mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractParseError(t *testing.T) {
	input := "I cannot produce that change because the request is unclear."
	_, err := Extract[map[string]any](input)
	if err == nil {
		t.Fatal("expected error for non-JSON response")
	}

	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *ParseError, got %T: %v", err, err)
	}
	if parseErr.Raw != input {
		t.Fatalf("ParseError.Raw = %q, want original input", parseErr.Raw)
	}
}

func TestExtractEmptyResponse(t *testing.T) {
	_, err := Extract[map[string]any]("```json\n```")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *ParseError for empty block, got %v", err)
	}
}
