// Copyright 2026 The Itinera Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"database/sql"
	"errors"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/feravila/itinera/spatial"
)

func setupTestDB(t *testing.T) (*sql.DB, POIRepository) {
	t.Helper()

	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	repo, err := NewPOIRepository(db)
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}

	if err := repo.CreateSchema(); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return db, repo
}

func TestCreateSchema(t *testing.T) {
	db, _ := setupTestDB(t)
	defer db.Close()

	var tableName string

	err := db.QueryRow("SELECT table_name FROM information_schema.tables WHERE table_name = 'pois'").Scan(&tableName)
	if err != nil {
		t.Fatalf("Table not created: %v", err)
	}

	if tableName != "pois" {
		t.Errorf("Expected table 'pois', got '%s'", tableName)
	}
}

func TestBulkInsertAndList(t *testing.T) {
	db, repo := setupTestDB(t)
	defer db.Close()

	pois := []*POI{
		{
			ID:             "tripadvisor:1",
			Source:         "tripadvisor",
			Name:           "Mỹ Khê Beach",
			NormalizedName: "my khe beach",
			DedupeKey:      "my khe beach|w6ugr4s",
			Point:          &spatial.Point{Lat: 16.0544, Lng: 108.2428},
			Attrs:          map[string]any{"category": "beach", "rating": 4.5},
		},
		{
			ID:             "tripadvisor:2",
			Source:         "tripadvisor",
			Name:           "Dragon Bridge",
			NormalizedName: "dragon bridge",
			DedupeKey:      "dragon bridge|w6ugqgb",
			Point:          &spatial.Point{Lat: 16.0614, Lng: 108.2272},
		},
		{
			// Unlocated record: no point, no key, no H3 cells
			ID:             "tripadvisor:3",
			Source:         "tripadvisor",
			Name:           "Some Hidden Cafe",
			NormalizedName: "some hidden cafe",
		},
	}

	if err := repo.BulkInsertPOIs(pois); err != nil {
		t.Fatalf("BulkInsertPOIs() error = %v", err)
	}

	count, err := repo.CountPOIs()
	if err != nil {
		t.Fatalf("CountPOIs() error = %v", err)
	}

	if count != 3 {
		t.Errorf("CountPOIs() = %d, want 3", count)
	}

	all, err := repo.GetAllSorted()
	if err != nil {
		t.Fatalf("GetAllSorted() error = %v", err)
	}

	if len(all) != 3 {
		t.Fatalf("GetAllSorted() returned %d pois, want 3", len(all))
	}

	beach := all[0]
	if beach.ID != "tripadvisor:1" {
		t.Errorf("Expected tripadvisor:1 first, got %s", beach.ID)
	}

	if beach.Point == nil {
		t.Fatal("Expected point to round-trip")
	}

	if got := beach.Point.Lat; got < 16.05 || got > 16.06 {
		t.Errorf("Latitude did not round-trip: %f", got)
	}

	if beach.H3Res9 == 0 {
		t.Error("Expected h3_res9 to be computed for a located POI")
	}

	if beach.Attrs["category"] != "beach" {
		t.Errorf("Attrs did not round-trip: %v", beach.Attrs)
	}

	unlocated := all[2]
	if unlocated.Point != nil {
		t.Errorf("Expected nil point for unlocated POI, got %v", unlocated.Point)
	}

	if unlocated.H3Res9 != 0 {
		t.Errorf("Expected zero h3 cells for unlocated POI, got %d", unlocated.H3Res9)
	}
}

func TestGetByDedupeKey(t *testing.T) {
	db, repo := setupTestDB(t)
	defer db.Close()

	err := repo.BulkInsertPOIs([]*POI{
		{
			ID:             "ta:1",
			Source:         "tripadvisor",
			Name:           "Dragon Bridge",
			NormalizedName: "dragon bridge",
			DedupeKey:      "dragon bridge|w6ugqgb",
			Point:          &spatial.Point{Lat: 16.0614, Lng: 108.2272},
		},
	})
	if err != nil {
		t.Fatalf("BulkInsertPOIs() error = %v", err)
	}

	found, err := repo.GetByDedupeKey("dragon bridge|w6ugqgb")
	if err != nil {
		t.Fatalf("GetByDedupeKey() error = %v", err)
	}

	if found.ID != "ta:1" {
		t.Errorf("GetByDedupeKey() = %s, want ta:1", found.ID)
	}

	_, err = repo.GetByDedupeKey("no such key")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestFindNearby(t *testing.T) {
	db, repo := setupTestDB(t)
	defer db.Close()

	err := repo.BulkInsertPOIs([]*POI{
		{
			ID:             "a",
			Source:         "s",
			Name:           "My Khe Beach",
			NormalizedName: "my khe beach",
			Point:          &spatial.Point{Lat: 16.0544, Lng: 108.2428},
		},
		{
			// ~15 m away, same neighborhood
			ID:             "b",
			Source:         "s",
			Name:           "My Khe Beach Entrance",
			NormalizedName: "my khe beach entrance",
			Point:          &spatial.Point{Lat: 16.0545, Lng: 108.2429},
		},
		{
			// Nha Trang, ~430 km away
			ID:             "c",
			Source:         "s",
			Name:           "Po Nagar Towers",
			NormalizedName: "po nagar towers",
			Point:          &spatial.Point{Lat: 12.2652, Lng: 109.1955},
		},
	})
	if err != nil {
		t.Fatalf("BulkInsertPOIs() error = %v", err)
	}

	nearby, err := repo.FindNearby(spatial.Point{Lat: 16.0544, Lng: 108.2428}, 1)
	if err != nil {
		t.Fatalf("FindNearby() error = %v", err)
	}

	ids := map[string]bool{}
	for _, p := range nearby {
		ids[p.ID] = true
	}

	if !ids["a"] || !ids["b"] {
		t.Errorf("Expected both beach POIs nearby, got %v", ids)
	}

	if ids["c"] {
		t.Error("Did not expect the Nha Trang POI in a Da Nang grid disk")
	}
}

func TestListPOIsBySource(t *testing.T) {
	db, repo := setupTestDB(t)
	defer db.Close()

	err := repo.BulkInsertPOIs([]*POI{
		{ID: "ta:1", Source: "tripadvisor", Name: "A", NormalizedName: "a"},
		{ID: "gm:1", Source: "googlemaps", Name: "B", NormalizedName: "b"},
		{ID: "gm:2", Source: "googlemaps", Name: "C", NormalizedName: "c"},
	})
	if err != nil {
		t.Fatalf("BulkInsertPOIs() error = %v", err)
	}

	source := "googlemaps"

	pois, err := repo.ListPOIs(&source, 0, 0)
	if err != nil {
		t.Fatalf("ListPOIs() error = %v", err)
	}

	if len(pois) != 2 {
		t.Errorf("ListPOIs(googlemaps) returned %d pois, want 2", len(pois))
	}

	pois, err = repo.ListPOIs(nil, 1, 0)
	if err != nil {
		t.Fatalf("ListPOIs() error = %v", err)
	}

	if len(pois) != 1 {
		t.Errorf("ListPOIs(limit=1) returned %d pois, want 1", len(pois))
	}
}
