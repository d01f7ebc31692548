// Copyright 2026 The Itinera Authors
// SPDX-License-Identifier: Apache-2.0

package dedupe

import (
	geohash "github.com/TomiHiltunen/geohash-golang"
)

// DefaultPrecision is the geohash precision of dedupe keys. Level 7 is a
// cell of roughly 150 m: fine enough to keep distinct nearby places apart,
// coarse enough that provider coordinate jitter rarely splits a true
// duplicate. Level 8 (~38 m) splits jittered duplicates; levels 5-6 merge
// unrelated neighbors that share a generic name.
const DefaultPrecision = 7

// Key builds the deterministic identity key for a place: the normalized name
// joined with the geohash cell of its coordinates at the given precision.
// Identical (name, coordinate) pairs always produce the same key, and two
// providers reporting the same place inside one cell with the same
// normalized name collide on it, which is the point.
func Key(name string, lat, lng float64, precision int) string {
	if precision <= 0 {
		precision = DefaultPrecision
	}

	return NormalizeName(name) + "|" + geohash.EncodeWithPrecision(lat, lng, precision)
}
