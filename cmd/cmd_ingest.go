// Copyright 2026 The Itinera Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/spf13/cobra"

	"github.com/feravila/itinera/ingest"
)

const dbFile = "itinera.duckdb"

var dbPath string

// openRepository opens (creating if needed) the local POI store.
func openRepository() (*sql.DB, ingest.POIRepository, error) {
	if err := os.MkdirAll(dbPath, 0o750); err != nil {
		return nil, nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := sql.Open("duckdb", filepath.Join(dbPath, dbFile))
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	repo, err := ingest.NewPOIRepository(db)
	if err != nil {
		db.Close()

		return nil, nil, fmt.Errorf("initializing repository: %w", err)
	}

	if err := repo.CreateSchema(); err != nil {
		db.Close()

		return nil, nil, fmt.Errorf("creating schema: %w", err)
	}

	return db, repo, nil
}

var ingestOptions = struct {
	source    string
	region    string
	geocode   bool
	precision int
}{}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Import provider POI exports into the local store",
	Long: `Parses one or more provider export files (GeoJSON FeatureCollections or
flat JSON record arrays), collapses duplicates against the batch and the
store, and persists the survivors.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		db, repo, err := openRepository()
		if err != nil {
			return err
		}
		defer db.Close()

		opts := ingest.ImportOptions{
			Source:       ingestOptions.source,
			Region:       ingestOptions.region,
			KeyPrecision: ingestOptions.precision,
		}

		if ingestOptions.geocode {
			opts.Geocoder = ingest.NewGoogleMapsGeocoder("")
		}

		stats, err := ingest.NewImporter(repo, opts).ImportFiles(args)
		if err != nil {
			return err
		}

		fmt.Printf("✅ Read %d records: %d inserted, %d duplicates collapsed, %d unlocated, %d geocoded\n",
			stats.Read, stats.Inserted, stats.Duplicates, stats.Unlocated, stats.Geocoded)

		return nil
	},
}

func init() {
	defaultDB := os.Getenv("ITINERA_DB_PATH")
	if defaultDB == "" {
		defaultDB = "data"
	}

	rootCmd.PersistentFlags().StringVar(
		&dbPath,
		"db-path",
		defaultDB,
		"directory holding the local database (env ITINERA_DB_PATH)",
	)

	ingestCmd.Flags().StringVar(&ingestOptions.source, "source", "unknown", "provider label for the imported records")
	ingestCmd.Flags().StringVar(&ingestOptions.region, "region", "", "region bias for geocoding, e.g. vn")
	ingestCmd.Flags().BoolVar(&ingestOptions.geocode, "geocode", false, "geocode records that arrive without coordinates")
	ingestCmd.Flags().IntVar(&ingestOptions.precision, "precision", 0, "geohash precision for dedupe keys (0 = default)")

	rootCmd.AddCommand(ingestCmd)
}
