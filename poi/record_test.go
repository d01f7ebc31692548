// Copyright 2026 The Itinera Authors
// SPDX-License-Identifier: Apache-2.0

package poi

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/feravila/itinera/spatial"
)

func TestRecordCoordinates(t *testing.T) {
	tests := []struct {
		name     string
		location any
		want     spatial.Point
		ok       bool
	}{
		{
			name:     "geojson pair",
			location: []any{-56.1645, -34.9011},
			want:     spatial.Point{Lat: -34.9011, Lng: -56.1645},
			ok:       true,
		},
		{
			name:     "float64 pair",
			location: []float64{108.2428, 16.0544},
			want:     spatial.Point{Lat: 16.0544, Lng: 108.2428},
			ok:       true,
		},
		{
			name:     "keyed form",
			location: map[string]any{"latitude": 16.0544, "longitude": 108.2428},
			want:     spatial.Point{Lat: 16.0544, Lng: 108.2428},
			ok:       true,
		},
		{
			name:     "keyed form with json numbers",
			location: map[string]any{"latitude": json.Number("16.0544"), "longitude": json.Number("108.2428")},
			want:     spatial.Point{Lat: 16.0544, Lng: 108.2428},
			ok:       true,
		},
		{
			name:     "point value",
			location: spatial.Point{Lat: 1, Lng: 2},
			want:     spatial.Point{Lat: 1, Lng: 2},
			ok:       true,
		},
		{name: "missing", location: nil, ok: false},
		{name: "short pair", location: []any{-56.1645}, ok: false},
		{name: "non numeric pair", location: []any{"a", "b"}, ok: false},
		{name: "missing longitude", location: map[string]any{"latitude": 16.0544}, ok: false},
		{name: "non numeric keyed", location: map[string]any{"latitude": "x", "longitude": "y"}, ok: false},
		{name: "out of range", location: []any{500.0, 95.0}, ok: false},
		{name: "unsupported shape", location: "somewhere", ok: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, ok := Record{Location: tc.location}.Coordinates()
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}

			if ok && p != tc.want {
				t.Fatalf("point = %+v, want %+v", p, tc.want)
			}
		})
	}
}

func TestExtractCoordinates(t *testing.T) {
	records := []Record{
		{ID: "a", Location: []any{-56.1645, -34.9011}},
		{ID: "b"}, // unlocated
		{ID: "c", Location: map[string]any{"latitude": 16.0544, "longitude": 108.2428}},
		{ID: "d", Location: "broken"},
	}

	got := ExtractCoordinates(records)

	expected := Located{
		Points: []spatial.Point{
			{Lat: -34.9011, Lng: -56.1645},
			{Lat: 16.0544, Lng: 108.2428},
		},
		Indices: []int{0, 2},
	}

	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("extraction mismatch (-expected +got):\n%s", diff)
	}
}

func TestSplit(t *testing.T) {
	records := []Record{
		{ID: "a", Location: []any{-56.1645, -34.9011}},
		{ID: "b"},
		{ID: "c", Location: []any{108.2428, 16.0544}},
	}

	located, unlocated := Split(records)

	if len(located) != 2 || len(unlocated) != 1 {
		t.Fatalf("split = %d located / %d unlocated, want 2/1", len(located), len(unlocated))
	}

	if unlocated[0].ID != "b" {
		t.Fatalf("unexpected unlocated record: %+v", unlocated[0])
	}
}
