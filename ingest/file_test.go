// Copyright 2026 The Itinera Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProviderDataGeoJSON(t *testing.T) {
	data := []byte(`{
		"type": "FeatureCollection",
		"features": [
			{
				"type": "Feature",
				"id": 42,
				"geometry": {"type": "Point", "coordinates": [108.2428, 16.0544]},
				"properties": {"name": "Mỹ Khê Beach", "category": "beach"}
			},
			{
				"type": "Feature",
				"geometry": null,
				"properties": {"name": "Hidden Cafe", "poi_id": "cafe-7"}
			}
		]
	}`)

	records, err := ParseProviderData(data)
	require.NoError(t, err)
	require.Len(t, records, 2)

	beach := records[0]
	assert.Equal(t, "42", beach.ID)
	assert.Equal(t, "Mỹ Khê Beach", beach.Name)
	assert.Equal(t, "beach", beach.Attrs["category"])

	point, ok := beach.Coordinates()
	require.True(t, ok)
	assert.InDelta(t, 16.0544, point.Lat, 1e-9)
	assert.InDelta(t, 108.2428, point.Lng, 1e-9)

	cafe := records[1]
	assert.Equal(t, "cafe-7", cafe.ID)

	_, ok = cafe.Coordinates()
	assert.False(t, ok)
}

func TestParseProviderDataFlatArray(t *testing.T) {
	data := []byte(`[
		{"poi_id": "1", "name": "Dragon Bridge", "location": {"latitude": 16.0614, "longitude": 108.2272}},
		{"poi_id": "2", "name": "Han Market", "location": [108.2241, 16.0678]}
	]`)

	records, err := ParseProviderData(data)
	require.NoError(t, err)
	require.Len(t, records, 2)

	point, ok := records[0].Coordinates()
	require.True(t, ok)
	assert.InDelta(t, 16.0614, point.Lat, 1e-9)

	point, ok = records[1].Coordinates()
	require.True(t, ok)
	assert.InDelta(t, 16.0678, point.Lat, 1e-9)
	assert.InDelta(t, 108.2241, point.Lng, 1e-9)
}

func TestParseProviderDataRejectsUnknownShapes(t *testing.T) {
	_, err := ParseProviderData([]byte(`{"type": "Topology"}`))
	assert.Error(t, err)

	_, err = ParseProviderData([]byte(`{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature", "geometry": {"type": "LineString", "coordinates": []}}
		]
	}`))
	assert.Error(t, err)
}

func TestParseProviderDataEmpty(t *testing.T) {
	records, err := ParseProviderData([]byte("  \n "))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseProviderFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.json")
	err := os.WriteFile(path, []byte(`[{"poi_id": "1", "name": "A"}]`), 0o600)
	require.NoError(t, err)

	records, err := ParseProviderFile(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "A", records[0].Name)

	_, err = ParseProviderFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
