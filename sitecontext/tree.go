/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package sitecontext

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// renderTree draws the directory tree rooted at dir, depth-limited and with
// hidden and skipped directories pruned.
func renderTree(dir string, maxDepth int, skipDirs []string) (string, error) {
	var sb strings.Builder
	sb.WriteString(filepath.Base(dir) + "/\n")
	if err := renderLevel(&sb, dir, "", 1, maxDepth, skipDirs); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func renderLevel(sb *strings.Builder, dir, prefix string, depth, maxDepth int, skipDirs []string) error {
	if depth > maxDepth {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", dir, err)
	}

	kept := entries[:0]
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if e.IsDir() && slices.Contains(skipDirs, name) {
			continue
		}
		kept = append(kept, e)
	}

	for i, e := range kept {
		connector, childPrefix := "├── ", prefix+"│   "
		if i == len(kept)-1 {
			connector, childPrefix = "└── ", prefix+"    "
		}

		if e.IsDir() {
			sb.WriteString(prefix + connector + e.Name() + "/\n")
			if err := renderLevel(sb, filepath.Join(dir, e.Name()), childPrefix, depth+1, maxDepth, skipDirs); err != nil {
				return err
			}
		} else {
			sb.WriteString(prefix + connector + e.Name() + "\n")
		}
	}
	return nil
}
