// Copyright 2026 The Itinera Authors
// SPDX-License-Identifier: Apache-2.0

// Package ingest imports provider POI exports into the local store. It wires
// the identity pipeline the clustering core stays out of: parsing, dedupe-key
// assignment, duplicate collapsing and persistence.
package ingest

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uber/h3-go/v4"

	"github.com/feravila/itinera/spatial"
)

// ErrNotFound is returned by lookups that match no stored POI.
var ErrNotFound = errors.New("poi not found")

// POI is a stored point of interest. Point is nil for records that arrived
// without usable coordinates; those are kept, just excluded from spatial
// queries. The H3 ladder (coarse res 5 down to ~150 m scale res 9) backs the
// nearby-candidate lookups used by fuzzy duplicate detection.
type POI struct {
	ID             string         `json:"poi_id"`
	Source         string         `json:"source"`
	Name           string         `json:"name"`
	NormalizedName string         `json:"normalized_name"`
	DedupeKey      string         `json:"dedupe_key,omitempty"`
	Point          *spatial.Point `json:"point,omitempty"`
	Attrs          map[string]any `json:"attrs,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	H3Res5         int64          `json:"-"`
	H3Res6         int64          `json:"-"`
	H3Res7         int64          `json:"-"`
	H3Res8         int64          `json:"-"`
	H3Res9         int64          `json:"-"`
}

const (
	h3MinRes = 5
	h3MaxRes = 9

	// candidateRes is the resolution used for nearby-candidate queries;
	// res 9 cells are in the same ~150 m regime as the dedupe key.
	candidateRes = 9
)

func (p *POI) computeH3() error {
	cells := [h3MaxRes - h3MinRes + 1]int64{}

	if p.Point != nil {
		latLng := h3.NewLatLng(p.Point.Lat, p.Point.Lng)

		for res := h3MinRes; res <= h3MaxRes; res++ {
			cell, err := h3.LatLngToCell(latLng, res)
			if err != nil {
				return fmt.Errorf("converting to h3 cell at res %d: %w", res, err)
			}

			cells[res-h3MinRes] = int64(cell)
		}
	}

	p.H3Res5 = cells[0]
	p.H3Res6 = cells[1]
	p.H3Res7 = cells[2]
	p.H3Res8 = cells[3]
	p.H3Res9 = cells[4]

	return nil
}

// POIRepository handles persistence of ingested POIs.
type POIRepository interface {
	// CreateSchema creates the pois table.
	CreateSchema() error

	// BulkInsertPOIs inserts a slice of POIs in one transaction.
	BulkInsertPOIs(pois []*POI) error

	// GetByDedupeKey returns the POI carrying the identity key, or
	// ErrNotFound.
	GetByDedupeKey(key string) (*POI, error)

	// FindNearby returns located POIs inside the H3 res-9 grid disk of
	// radius rings around the point.
	FindNearby(point spatial.Point, rings int) ([]*POI, error)

	// ListPOIs returns stored POIs, optionally filtered by source.
	ListPOIs(source *string, limit, offset int) ([]*POI, error)

	// GetAllSorted returns every POI sorted by source and id, for exports
	// that should diff cleanly.
	GetAllSorted() ([]*POI, error)

	// CountPOIs returns the total number of stored POIs.
	CountPOIs() (int, error)

	// DB returns the underlying database connection.
	DB() *sql.DB
}

type sqlPOIRepository struct {
	db *sql.DB
}

// NewPOIRepository creates a DuckDB-backed POI repository.
func NewPOIRepository(db *sql.DB) (POIRepository, error) {
	// DuckDB needs to load the spatial extension
	_, err := db.Exec(`INSTALL spatial; LOAD spatial;`)
	if err != nil {
		return nil, err
	}

	return &sqlPOIRepository{db: db}, nil
}

func (r *sqlPOIRepository) DB() *sql.DB {
	return r.db
}

func (r *sqlPOIRepository) CreateSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS pois (
			id VARCHAR PRIMARY KEY,
			source VARCHAR NOT NULL,
			name VARCHAR NOT NULL,
			normalized_name VARCHAR NOT NULL,
			dedupe_key VARCHAR,
			point POINT_2D,
			attrs VARCHAR,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			h3_res5 UBIGINT,
			h3_res6 UBIGINT,
			h3_res7 UBIGINT,
			h3_res8 UBIGINT,
			h3_res9 UBIGINT
		);
	`)

	return err
}

func (r *sqlPOIRepository) BulkInsertPOIs(pois []*POI) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO pois(
			id,
			source,
			name,
			normalized_name,
			dedupe_key,
			point,
			attrs,
			created_at,
			h3_res5,
			h3_res6,
			h3_res7,
			h3_res8,
			h3_res9
		)
		VALUES (?, ?, ?, ?, ?, CASE WHEN ? THEN ST_Point(?, ?) END, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		if rErr := tx.Rollback(); rErr != nil {
			err = rErr
		}

		return err
	}
	defer stmt.Close()

	for _, p := range pois {
		if err = p.computeH3(); err != nil {
			if rErr := tx.Rollback(); rErr != nil {
				err = rErr
			}

			return err
		}

		if p.CreatedAt.IsZero() {
			p.CreatedAt = time.Now()
		}

		var key *string
		if p.DedupeKey != "" {
			key = &p.DedupeKey
		}

		var attrs *string

		if len(p.Attrs) > 0 {
			raw, err := json.Marshal(p.Attrs)
			if err != nil {
				if rErr := tx.Rollback(); rErr != nil {
					err = rErr
				}

				return fmt.Errorf("marshaling attrs for %s: %w", p.ID, err)
			}

			s := string(raw)
			attrs = &s
		}

		var lat, lng float64
		if p.Point != nil {
			lat, lng = p.Point.Lat, p.Point.Lng
		}

		_, err = stmt.Exec(
			p.ID,
			p.Source,
			p.Name,
			p.NormalizedName,
			key,
			p.Point != nil,
			lng,
			lat,
			attrs,
			p.CreatedAt,
			p.H3Res5,
			p.H3Res6,
			p.H3Res7,
			p.H3Res8,
			p.H3Res9,
		)
		if err != nil {
			if rErr := tx.Rollback(); rErr != nil {
				err = rErr
			}

			return err
		}
	}

	return tx.Commit()
}

var baseSelect = `
	SELECT id, source, name, normalized_name, dedupe_key, point, attrs,
	       created_at, h3_res5, h3_res6, h3_res7, h3_res8, h3_res9
	FROM pois
`

func (r *sqlPOIRepository) list(query string, args []any) ([]*POI, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pois []*POI

	for rows.Next() {
		p, err := scanPOI(rows)
		if err != nil {
			return nil, err
		}

		pois = append(pois, p)
	}

	return pois, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPOI(row rowScanner) (*POI, error) {
	p := &POI{}

	var (
		key   sql.NullString
		point spatial.Point
		raw   any
		attrs sql.NullString
		h3s   [5]sql.NullInt64
	)

	err := row.Scan(
		&p.ID, &p.Source, &p.Name, &p.NormalizedName, &key, &raw, &attrs,
		&p.CreatedAt, &h3s[0], &h3s[1], &h3s[2], &h3s[3], &h3s[4],
	)
	if err != nil {
		return nil, err
	}

	if key.Valid {
		p.DedupeKey = key.String
	}

	if raw != nil {
		if err := point.Scan(raw); err != nil {
			return nil, err
		}

		p.Point = &point
	}

	if attrs.Valid && attrs.String != "" {
		if err := json.Unmarshal([]byte(attrs.String), &p.Attrs); err != nil {
			return nil, fmt.Errorf("unmarshaling attrs for %s: %w", p.ID, err)
		}
	}

	p.H3Res5 = h3s[0].Int64
	p.H3Res6 = h3s[1].Int64
	p.H3Res7 = h3s[2].Int64
	p.H3Res8 = h3s[3].Int64
	p.H3Res9 = h3s[4].Int64

	return p, nil
}

func (r *sqlPOIRepository) GetByDedupeKey(dedupeKey string) (*POI, error) {
	pois, err := r.list(baseSelect+" WHERE dedupe_key = ? LIMIT 1", []any{dedupeKey})
	if err != nil {
		return nil, err
	}

	if len(pois) == 0 {
		return nil, ErrNotFound
	}

	return pois[0], nil
}

func (r *sqlPOIRepository) FindNearby(point spatial.Point, rings int) ([]*POI, error) {
	if rings < 0 {
		rings = 0
	}

	cell, err := h3.LatLngToCell(h3.NewLatLng(point.Lat, point.Lng), candidateRes)
	if err != nil {
		return nil, fmt.Errorf("converting probe point to h3 cell: %w", err)
	}

	disk, err := h3.GridDisk(cell, rings)
	if err != nil {
		return nil, fmt.Errorf("building h3 grid disk: %w", err)
	}

	placeholders := make([]string, len(disk))
	args := make([]any, len(disk))

	for i, c := range disk {
		placeholders[i] = "?"
		args[i] = int64(c)
	}

	return r.list(
		baseSelect+" WHERE h3_res9 IN ("+strings.Join(placeholders, ", ")+") ORDER BY id",
		args,
	)
}

func (r *sqlPOIRepository) ListPOIs(source *string, limit, offset int) ([]*POI, error) {
	query := baseSelect

	args := []any{}

	if source != nil {
		query += " WHERE source = ?"

		args = append(args, *source)
	}

	query += " ORDER BY created_at DESC"

	if limit > 0 {
		query += " LIMIT ? OFFSET ?"

		args = append(args, limit, offset)
	}

	return r.list(query, args)
}

func (r *sqlPOIRepository) GetAllSorted() ([]*POI, error) {
	return r.list(baseSelect+" ORDER BY source, id", []any{})
}

func (r *sqlPOIRepository) CountPOIs() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM pois").Scan(&count)

	return count, err
}
