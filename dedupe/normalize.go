// Copyright 2026 The Itinera Authors
// SPDX-License-Identifier: Apache-2.0

// Package dedupe assigns points of interest a deterministic identity so the
// same physical place reported by multiple providers collapses into one
// canonical record. Identity combines a normalized name with a fixed
// precision spatial hash; a fuzzy name-plus-distance rule catches near
// misses at hash cell boundaries.
package dedupe

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldExceptions maps letters that Unicode decomposition leaves untouched
// (no combining mark to strip) to their plain ASCII counterpart.
var foldExceptions = map[rune]string{
	'đ': "d",
	'ð': "d",
	'ħ': "h",
	'ı': "i",
	'ł': "l",
	'ø': "o",
	'ŧ': "t",
	'æ': "ae",
	'œ': "oe",
	'ß': "ss",
	'þ': "th",
}

// NormalizeName produces the canonical name token used for identity:
// lowercase, diacritics stripped, punctuation removed, whitespace collapsed.
// It is idempotent: normalizing an already-normalized string returns it
// unchanged.
func NormalizeName(s string) string {
	s = strings.ToLower(s)

	// Remove accents: decompose, drop combining marks, recompose.
	s, _, _ = transform.String(
		transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			norm.NFC,
		),
		s,
	)

	var b strings.Builder

	b.Grow(len(s))

	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if plain, ok := foldExceptions[r]; ok {
				b.WriteString(plain)
			} else {
				b.WriteRune(r)
			}
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
		// Everything else (punctuation, symbols) drops out.
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
