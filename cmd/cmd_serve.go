// Copyright 2026 The Itinera Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/feravila/itinera/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the clustering and dedupe API server (local only)",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		db, repo, err := openRepository()
		if err != nil {
			return err
		}
		defer db.Close()

		fmt.Printf("🗺️  itinera API starting on http://%s\n", serveAddr)
		fmt.Println("🔒 Local only - not exposed to internet")

		return server.NewServer(repo).Run(serveAddr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "localhost:8080", "listen address")
	rootCmd.AddCommand(serveCmd)
}
