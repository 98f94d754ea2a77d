/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package result provides utilities for extracting and parsing JSON responses
from AI models.

Models are instructed to answer with bare JSON, but in practice responses
arrive wrapped in markdown fences, prefixed with prose, or trailed by
explanations. ExtractJSON digs the JSON payload out of such text using three
strategies, tried in order:

 1. A ```json fenced block, if present.
 2. The last syntactically valid top-level JSON object or array found by a
    balanced-delimiter scan.
 3. Progressively shorter prefixes starting at the first '{' or '[' until one
    parses.

Extract combines extraction with unmarshaling into a caller-supplied type:

	type ChangeSet struct {
		Files []FileChange `json:"files"`
	}

	cs, err := result.Extract[ChangeSet](responseText)

When the text contains no parseable JSON, Extract returns a *ParseError that
carries the raw response so callers can log it or fall back.
*/
package result
