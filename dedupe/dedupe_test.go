// Copyright 2026 The Itinera Authors
// SPDX-License-Identifier: Apache-2.0

package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/feravila/itinera/poi"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "hello world"},
		{"  Spaces  ", "spaces"},
		{"Mỹ Khê Beach", "my khe beach"},
		{"Crème Brûlée & Café", "creme brulee cafe"},
		{"Đà Nẵng", "da nang"},
		{"Łazienki Park", "lazienki park"},
		{"Øresund Bridge", "oresund bridge"},
		{"St. Paul's Cathedral", "st pauls cathedral"},
		{"Tower   of\tLondon", "tower of london"},
		{"Ñandú", "nandu"},
		{"Straße 101", "strasse 101"},
		{"", ""},
		{"!!!", ""},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, NormalizeName(tc.input))
		})
	}
}

func TestNormalizeNameIdempotent(t *testing.T) {
	inputs := []string{
		"Mỹ Khê Beach",
		"Đà Nẵng",
		"Crème Brûlée & Café",
		"already normalized",
		"東京タワー",
		"",
	}

	for _, s := range inputs {
		once := NormalizeName(s)
		if twice := NormalizeName(once); twice != once {
			t.Errorf("NormalizeName not idempotent for %q: %q != %q", s, twice, once)
		}
	}
}

func TestKeyDeterminism(t *testing.T) {
	a := Key("Mỹ Khê Beach", 16.0544, 108.2428, 7)
	b := Key("Mỹ Khê Beach", 16.0544, 108.2428, 7)

	assert.Equal(t, a, b)
}

func TestKeyCollapsesProviderJitter(t *testing.T) {
	// Two providers report the same beach ~11 m apart with different
	// diacritics. At precision 7 both land in the same ~150 m cell.
	a := Key("Mỹ Khê Beach", 16.0544, 108.2428, 7)
	b := Key("My Khe Beach", 16.0545, 108.2429, 7)

	assert.Equal(t, a, b)

	// The same name ~600 km away is a different place.
	c := Key("My Khe Beach", 12.2528, 109.1967, 7)
	assert.NotEqual(t, a, c)

	// Precision 8 cells are ~38 m: the jittered pair splits, which is why
	// 7 is the default operating point.
	assert.NotEqual(t,
		Key("My Khe Beach", 16.0544, 108.2428, 8),
		Key("My Khe Beach", 16.0545, 108.2429, 8),
	)
}

func TestKeyDefaultPrecision(t *testing.T) {
	assert.Equal(t,
		Key("My Khe Beach", 16.0544, 108.2428, DefaultPrecision),
		Key("My Khe Beach", 16.0544, 108.2428, 0),
	)
}

func TestAreDuplicates(t *testing.T) {
	beach := poi.Record{Name: "Mỹ Khê Beach", Location: []any{108.2428, 16.0544}}

	tests := []struct {
		name string
		a, b poi.Record
		want bool
	}{
		{
			name: "same cell same normalized name",
			a:    beach,
			b:    poi.Record{Name: "My Khe Beach", Location: []any{108.2429, 16.0545}},
			want: true,
		},
		{
			name: "equal stored keys",
			a:    poi.Record{Name: "A", DedupeKey: "my khe beach|w6ugr4s"},
			b:    poi.Record{Name: "B", DedupeKey: "my khe beach|w6ugr4s"},
			want: true,
		},
		{
			name: "same name 600 km apart",
			a:    beach,
			b:    poi.Record{Name: "My Khe Beach", Location: []any{109.1967, 12.2528}},
			want: false,
		},
		{
			name: "different name same spot",
			a:    beach,
			b:    poi.Record{Name: "Non Nuoc Beach", Location: []any{108.2428, 16.0544}},
			want: false,
		},
		{
			name: "same name within 150 m across a cell boundary",
			a:    poi.Record{Name: "Cathedral", Location: []any{2.3498, 48.8529}},
			b:    poi.Record{Name: "Cathedral", Location: []any{2.3502, 48.8532}},
			want: true,
		},
		{
			name: "unlocated records with different keys",
			a:    poi.Record{Name: "Somewhere"},
			b:    poi.Record{Name: "Somewhere"},
			want: false,
		},
		{
			name: "unnamed records in the same cell never match",
			a:    poi.Record{Location: []any{108.2428, 16.0544}},
			b:    poi.Record{Location: []any{108.2429, 16.0545}},
			want: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AreDuplicates(tc.a, tc.b))
			assert.Equal(t, tc.want, AreDuplicates(tc.b, tc.a))
		})
	}
}
