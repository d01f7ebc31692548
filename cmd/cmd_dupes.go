// Copyright 2026 The Itinera Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/feravila/itinera/dedupe"
	"github.com/feravila/itinera/poi"
)

var dupesCmd = &cobra.Command{
	Use:   "dupes [file]",
	Short: "Report duplicate POI pairs",
	Long: `Scans the local store (or a provider file) and reports every pair of
POIs considered duplicates: same identity key, or same normalized name
within walking distance.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		records, err := loadRecords(args)
		if err != nil {
			return err
		}

		type pair struct {
			A poi.Record `json:"a"`
			B poi.Record `json:"b"`
		}

		pairs := []pair{}

		for i := 0; i < len(records); i++ {
			for j := i + 1; j < len(records); j++ {
				if dedupe.AreDuplicates(records[i], records[j]) {
					pairs = append(pairs, pair{A: records[i], B: records[j]})
				}
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if err := enc.Encode(pairs); err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "Found %d duplicate pairs among %d POIs\n", len(pairs), len(records))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(dupesCmd)
}
