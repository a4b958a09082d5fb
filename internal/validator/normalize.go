// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package validator

import (
	"regexp"
	"strings"
	"unicode"
)

// citationMarkers matches wiki-style reference markers such as [12].
var citationMarkers = regexp.MustCompile(`\[\d+\]`)

// quoteDashFolds maps typographic quote and dash variants to ASCII so a
// publisher's smart punctuation cannot hide a verbatim excerpt.
var quoteDashFolds = strings.NewReplacer(
	"‘", "'", // left single quote
	"’", "'", // right single quote
	"“", `"`, // left double quote
	"”", `"`, // right double quote
	"–", "-", // en dash
	"—", "-", // em dash
	"−", "-", // minus sign
	" ", " ", // no-break space
)

// Normalize prepares text for verbatim comparison: citation markers
// stripped, fancy quotes and dashes folded to ASCII, punctuation dropped
// except apostrophes and hyphens, lowercased, whitespace collapsed.
func Normalize(s string) string {
	s = citationMarkers.ReplaceAllString(s, " ")
	s = quoteDashFolds.Replace(s)

	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\'' || r == '-':
			sb.WriteRune(r)
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			sb.WriteRune(' ')
		default:
			sb.WriteRune(unicode.ToLower(r))
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

// ContainsNormalized reports whether needle appears in haystack under
// normalized comparison.
func ContainsNormalized(haystack, needle string) bool {
	n := Normalize(needle)
	if n == "" {
		return false
	}
	return strings.Contains(Normalize(haystack), n)
}
