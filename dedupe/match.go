// Copyright 2026 The Itinera Authors
// SPDX-License-Identifier: Apache-2.0

package dedupe

import (
	"github.com/feravila/itinera/poi"
)

// fuzzyDistanceKM is the radius of the name+distance fallback. It matches
// the ~150 m size of a precision-7 geohash cell: coordinate jitter between
// providers can push a POI across a cell boundary even when both reports
// are meters apart, and the fallback catches exactly that case.
const fuzzyDistanceKM = 0.15

// AreDuplicates reports whether two records describe the same physical
// place: either their dedupe keys are equal, or their normalized names match
// and they sit within 150 m of each other by great-circle distance.
//
// Stored keys on the records take precedence; keys are only computed from
// coordinates when a record does not carry one yet.
func AreDuplicates(a, b poi.Record) bool {
	keyA, okA := recordKey(a)
	keyB, okB := recordKey(b)

	if okA && okB && keyA == keyB {
		return true
	}

	pointA, locatedA := a.Coordinates()
	pointB, locatedB := b.Coordinates()

	if !locatedA || !locatedB {
		return false
	}

	nameA := NormalizeName(a.Name)
	if nameA == "" || nameA != NormalizeName(b.Name) {
		return false
	}

	return pointA.HaversineKM(pointB) < fuzzyDistanceKM
}

func recordKey(r poi.Record) (string, bool) {
	if r.DedupeKey != "" {
		return r.DedupeKey, true
	}

	p, ok := r.Coordinates()
	if !ok || NormalizeName(r.Name) == "" {
		// A computed key with an empty name part would collide with any
		// unnamed neighbor in the same cell.
		return "", false
	}

	return Key(r.Name, p.Lat, p.Lng, DefaultPrecision), true
}
