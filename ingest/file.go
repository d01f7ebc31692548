// Copyright 2026 The Itinera Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/feravila/itinera/poi"
)

// Provider exports come in two shapes: a GeoJSON FeatureCollection, or a
// flat JSON array of records with embedded location fields.

type geoJSONFeature struct {
	Type     string `json:"type"`
	ID       any    `json:"id"`
	Geometry *struct {
		Type        string    `json:"type"`
		Coordinates []float64 `json:"coordinates"` // [lng, lat]
	} `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type geoJSONCollection struct {
	Type     string           `json:"type"`
	Features []geoJSONFeature `json:"features"`
}

// ParseProviderFile reads a provider export and returns its POI records.
// The shape is sniffed from the top-level JSON token.
func ParseProviderFile(path string) ([]poi.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return ParseProviderData(data)
}

// ParseProviderData parses an in-memory provider export.
func ParseProviderData(data []byte) ([]poi.Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var records []poi.Record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("parsing record array: %w", err)
		}

		return records, nil
	}

	var collection geoJSONCollection
	if err := json.Unmarshal(trimmed, &collection); err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}

	if collection.Type != "FeatureCollection" {
		return nil, fmt.Errorf("unsupported document type %q", collection.Type)
	}

	records := make([]poi.Record, 0, len(collection.Features))

	for i, feature := range collection.Features {
		record, err := featureToRecord(feature)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}

		records = append(records, record)
	}

	return records, nil
}

func featureToRecord(feature geoJSONFeature) (poi.Record, error) {
	if feature.Type != "Feature" {
		return poi.Record{}, fmt.Errorf("unsupported feature type %q", feature.Type)
	}

	record := poi.Record{}

	if feature.ID != nil {
		record.ID = fmt.Sprintf("%v", feature.ID)
	}

	if feature.Geometry != nil {
		if feature.Geometry.Type != "Point" {
			return poi.Record{}, fmt.Errorf("unsupported geometry type %q", feature.Geometry.Type)
		}

		record.Location = feature.Geometry.Coordinates
	}

	for k, v := range feature.Properties {
		switch k {
		case "name":
			if s, ok := v.(string); ok {
				record.Name = s
			}
		case "poi_id":
			if record.ID == "" {
				if s, ok := v.(string); ok {
					record.ID = s
				}
			}
		default:
			if record.Attrs == nil {
				record.Attrs = map[string]any{}
			}

			record.Attrs[k] = v
		}
	}

	return record, nil
}
