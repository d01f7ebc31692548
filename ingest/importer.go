// Copyright 2026 The Itinera Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"errors"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/feravila/itinera/dedupe"
	"github.com/feravila/itinera/poi"
	"github.com/feravila/itinera/spatial"
)

// ImportOptions configures an import run.
type ImportOptions struct {
	// Source labels the provider the records came from.
	Source string

	// Region biases geocoding, e.g. "vn". Empty means no bias.
	Region string

	// Geocoder backfills coordinates for records that arrive without
	// them. Nil disables backfill; such records are stored unlocated.
	Geocoder Geocoder

	// KeyPrecision is the geohash precision for dedupe keys. Zero means
	// dedupe.DefaultPrecision.
	KeyPrecision int
}

// ImportStats summarizes an import run.
type ImportStats struct {
	Read       int `json:"read"`
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
	Unlocated  int `json:"unlocated"`
	Geocoded   int `json:"geocoded"`
}

// Importer loads provider records into the repository, collapsing
// duplicates on the way in.
type Importer struct {
	repo POIRepository
	opts ImportOptions
}

func NewImporter(repo POIRepository, opts ImportOptions) *Importer {
	if opts.Source == "" {
		opts.Source = "unknown"
	}

	if opts.KeyPrecision <= 0 {
		opts.KeyPrecision = dedupe.DefaultPrecision
	}

	return &Importer{repo: repo, opts: opts}
}

// ImportFiles parses each file and imports their records.
func (imp *Importer) ImportFiles(paths []string) (*ImportStats, error) {
	total := &ImportStats{}

	for _, path := range paths {
		records, err := ParseProviderFile(path)
		if err != nil {
			return total, err
		}

		stats, err := imp.ImportRecords(records)
		if err != nil {
			return total, fmt.Errorf("importing %s: %w", path, err)
		}

		total.Read += stats.Read
		total.Inserted += stats.Inserted
		total.Duplicates += stats.Duplicates
		total.Unlocated += stats.Unlocated
		total.Geocoded += stats.Geocoded
	}

	return total, nil
}

// ImportRecords collapses duplicates against both the batch and the store,
// then bulk-inserts the survivors.
func (imp *Importer) ImportRecords(records []poi.Record) (*ImportStats, error) {
	stats := &ImportStats{Read: len(records)}

	var bar *progressbar.ProgressBar
	if isatty.IsTerminal(os.Stderr.Fd()) {
		bar = progressbar.NewOptions(len(records),
			progressbar.OptionSetDescription("Importing "+imp.opts.Source),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	var batch []*POI

	seenKeys := map[string]bool{}

	batchRecords := []poi.Record{}

	for i, record := range records {
		if bar != nil {
			_ = bar.Add(1)
		}

		point, located := record.Coordinates()

		if !located && imp.opts.Geocoder != nil && record.Name != "" {
			result, err := imp.opts.Geocoder.Geocode(record.Name, imp.opts.Region)
			if err == nil && result.Point.Valid() {
				point = result.Point
				located = true
				stats.Geocoded++
			}
		}

		normalized := dedupe.NormalizeName(record.Name)

		key := ""
		if located && normalized != "" {
			key = dedupe.Key(record.Name, point.Lat, point.Lng, imp.opts.KeyPrecision)
		}

		record.DedupeKey = key
		if located {
			record.Location = point
		}

		dup, err := imp.isDuplicate(record, key, seenKeys, batchRecords)
		if err != nil {
			return stats, err
		}

		if dup {
			stats.Duplicates++

			continue
		}

		if key != "" {
			seenKeys[key] = true
		}

		batchRecords = append(batchRecords, record)

		stored := &POI{
			ID:             recordID(record, key, imp.opts.Source, i),
			Source:         imp.opts.Source,
			Name:           record.Name,
			NormalizedName: normalized,
			DedupeKey:      key,
			Attrs:          record.Attrs,
		}

		if located {
			stored.Point = &spatial.Point{Lat: point.Lat, Lng: point.Lng}
		} else {
			stats.Unlocated++
		}

		batch = append(batch, stored)
	}

	if err := imp.repo.BulkInsertPOIs(batch); err != nil {
		return stats, err
	}

	stats.Inserted = len(batch)

	return stats, nil
}

func (imp *Importer) isDuplicate(record poi.Record, key string, seenKeys map[string]bool, batchRecords []poi.Record) (bool, error) {
	if key != "" {
		if seenKeys[key] {
			return true, nil
		}

		_, err := imp.repo.GetByDedupeKey(key)
		if err == nil {
			return true, nil
		}

		if !errors.Is(err, ErrNotFound) {
			return false, err
		}
	}

	point, located := record.Coordinates()
	if !located {
		return false, nil
	}

	// Fuzzy pass: same normalized name within walking distance but in a
	// neighboring geohash cell. One ring of res-9 cells covers that range.
	for _, other := range batchRecords {
		if dedupe.AreDuplicates(record, other) {
			return true, nil
		}
	}

	nearby, err := imp.repo.FindNearby(point, 1)
	if err != nil {
		return false, err
	}

	for _, stored := range nearby {
		if dedupe.AreDuplicates(record, stored.Record()) {
			return true, nil
		}
	}

	return false, nil
}

// Record converts a stored POI back into the in-memory record shape the
// clustering and dedupe packages operate on.
func (p *POI) Record() poi.Record {
	record := poi.Record{
		ID:        p.ID,
		Name:      p.Name,
		DedupeKey: p.DedupeKey,
		Attrs:     p.Attrs,
	}

	if p.Point != nil {
		record.Location = *p.Point
	}

	return record
}

func recordID(record poi.Record, key, source string, ordinal int) string {
	if record.ID != "" {
		return record.ID
	}

	if key != "" {
		return key
	}

	return fmt.Sprintf("%s:%d", source, ordinal)
}
