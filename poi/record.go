// Copyright 2026 The Itinera Authors
// SPDX-License-Identifier: Apache-2.0

package poi

import (
	"encoding/json"

	"github.com/feravila/itinera/spatial"
)

// Record is a point of interest as delivered by a data provider. Providers
// disagree about the shape of the location field, so it stays loosely typed
// until extraction; everything else is passed through unchanged.
type Record struct {
	ID        string         `json:"poi_id,omitempty"`
	Name      string         `json:"name"`
	DedupeKey string         `json:"dedupe_key,omitempty"`
	Location  any            `json:"location,omitempty"`
	Attrs     map[string]any `json:"attrs,omitempty"`
}

// Coordinates resolves the record's location into a point. Supported shapes
// are the GeoJSON ordered pair [lng, lat] and the keyed form
// {latitude, longitude}. The second return is false when the location is
// missing, malformed, or non-numeric.
func (r Record) Coordinates() (spatial.Point, bool) {
	switch loc := r.Location.(type) {
	case spatial.Point:
		return loc, loc.Valid()
	case *spatial.Point:
		if loc == nil {
			return spatial.Point{}, false
		}

		return *loc, loc.Valid()
	case []float64:
		if len(loc) != 2 {
			return spatial.Point{}, false
		}

		p := spatial.Point{Lat: loc[1], Lng: loc[0]}

		return p, p.Valid()
	case []any:
		if len(loc) != 2 {
			return spatial.Point{}, false
		}

		lng, okLng := toFloat(loc[0])
		lat, okLat := toFloat(loc[1])

		if !okLng || !okLat {
			return spatial.Point{}, false
		}

		p := spatial.Point{Lat: lat, Lng: lng}

		return p, p.Valid()
	case map[string]any:
		lat, okLat := toFloat(loc["latitude"])
		lng, okLng := toFloat(loc["longitude"])

		if !okLat || !okLng {
			return spatial.Point{}, false
		}

		p := spatial.Point{Lat: lat, Lng: lng}

		return p, p.Valid()
	default:
		return spatial.Point{}, false
	}
}

// toFloat converts the numeric types a decoded provider payload may carry.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()

		return f, err == nil
	default:
		return 0, false
	}
}

// Located holds the coordinates of the records that passed extraction plus a
// parallel index list mapping each point back to its original position.
type Located struct {
	Points  []spatial.Point
	Indices []int
}

// ExtractCoordinates filters records to those with usable coordinates,
// preserving input order. Records without valid coordinates never fail the
// call; the caller decides their disposition.
func ExtractCoordinates(records []Record) Located {
	out := Located{
		Points:  make([]spatial.Point, 0, len(records)),
		Indices: make([]int, 0, len(records)),
	}

	for i, r := range records {
		p, ok := r.Coordinates()
		if !ok {
			continue
		}

		out.Points = append(out.Points, p)
		out.Indices = append(out.Indices, i)
	}

	return out
}

// Split partitions records into located and unlocated buckets, preserving
// order inside each bucket.
func Split(records []Record) (located, unlocated []Record) {
	for _, r := range records {
		if _, ok := r.Coordinates(); ok {
			located = append(located, r)
		} else {
			unlocated = append(unlocated, r)
		}
	}

	return located, unlocated
}
