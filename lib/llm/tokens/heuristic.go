// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package tokens

import (
	"math"
	"unicode/utf8"
)

// defaultCharactersPerToken is conservative for English chat text:
// BPE tokenizers typically average 3.5-4.5 characters per token, and
// overestimating trims slightly early rather than overflowing the
// context window.
const defaultCharactersPerToken = 4.0

// CharCounter estimates token counts from character counts. It is the
// last-resort [Encoder] when no BPE encoding is available.
type CharCounter struct {
	// CharactersPerToken is the assumed ratio. Zero selects 4.0.
	CharactersPerToken float64
}

// Count returns ceil(characters / ratio). Empty text costs nothing.
func (counter CharCounter) Count(text string) int {
	characters := utf8.RuneCountInString(text)
	if characters == 0 {
		return 0
	}
	ratio := counter.CharactersPerToken
	if ratio <= 0 {
		ratio = defaultCharactersPerToken
	}
	return int(math.Ceil(float64(characters) / ratio))
}
