// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command wolftrace runs the WolfTrace graph API and offline analysis tools.
//
// Usage:
//
//	wolftrace serve                       # start the HTTP API
//	wolftrace serve --port 8080 --debug
//	wolftrace analyze snapshot.json       # statistics and communities
//	wolftrace diff before.json after.json # structural comparison
//
// Example requests:
//
//	# Health check
//	curl http://localhost:5000/api/health
//
//	# Import a generic document
//	curl -X POST http://localhost:5000/api/import \
//	  -H "Content-Type: application/json" \
//	  -d '{"collector": "generic", "data": {"nodes": [{"id": "alice"}]}}'
//
//	# Find paths
//	curl -X POST http://localhost:5000/api/paths \
//	  -H "Content-Type: application/json" \
//	  -d '{"source": "alice", "target": "dc01", "max_depth": 4}'
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wolftrace/wolftrace/cmd/wolftrace/config"
	"github.com/wolftrace/wolftrace/services/wolftrace"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "wolftrace",
	Short:         "Graph data engine for security investigations",
	Version:       wolftrace.ServiceVersion,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.wolftrace/wolftrace.yaml)")
	rootCmd.AddCommand(newServeCmd(), newAnalyzeCmd(), newDiffCmd())
}

// loadConfig reads the config file named by --config or the default path.
func loadConfig() (config.Config, error) {
	path := configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return config.Config{}, err
		}
	}
	return config.Load(path)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
