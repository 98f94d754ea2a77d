/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package sitecontext

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config controls what goes into the rendered site context.
type Config struct {
	// KeyFiles are repository-relative paths whose contents are included
	// verbatim (truncated at MaxFileBytes).
	KeyFiles []string `yaml:"keyFiles"`

	// Guidelines is free-form editing guidance appended to the context.
	Guidelines string `yaml:"guidelines"`

	// MaxFileBytes caps how much of each key file is included.
	MaxFileBytes int `yaml:"maxFileBytes"`

	// MaxTreeDepth caps how deep the directory tree is rendered.
	MaxTreeDepth int `yaml:"maxTreeDepth"`

	// SkipDirs are directory names excluded from the tree. Hidden
	// directories are always skipped.
	SkipDirs []string `yaml:"skipDirs"`
}

// DefaultConfig matches the layout of the 11ty site the bot maintains.
func DefaultConfig() Config {
	return Config{
		KeyFiles: []string{
			".eleventy.js",
			"package.json",
			"src/_data/projects.json",
			"src/_data/people.json",
			"src/assets/css/style.css",
			"src/index.njk",
			"src/projects.njk",
			"src/people.njk",
			"src/about.md",
		},
		Guidelines: `- New pages go in src/pages/ and use the layout from src/_layouts/.
- Styling lives in src/assets/css/style.css.
- Structured data (projects, people) lives in src/_data/.
- Keep the existing navigation and visual style.`,
		MaxFileBytes: 2000,
		MaxTreeDepth: 3,
		SkipDirs:     []string{"node_modules", "_site"},
	}
}

// LoadConfig reads a YAML config file, filling unset fields from defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = DefaultConfig().MaxFileBytes
	}
	if cfg.MaxTreeDepth <= 0 {
		cfg.MaxTreeDepth = DefaultConfig().MaxTreeDepth
	}
	return cfg, nil
}
