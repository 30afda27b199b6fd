package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"osmeditor/pkg/ingest"
	"osmeditor/pkg/store"
)

var loadCmd = &cobra.Command{
	Use:   "load <path.osm.pbf>",
	Short: "Ingest a PBF file and report parse counts, without serving",
	Args:  cobra.ExactArgs(1),
	RunE:  runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	path := args[0]

	start := time.Now()
	log.Printf("Ingesting %s...", path)

	s := store.New()
	result, err := ingest.IngestFile(context.Background(), s, path)
	if err != nil {
		return fmt.Errorf("ingest %s: %w", path, err)
	}
	s.RebuildIndices()

	elapsed := time.Since(start)
	stats := s.Stats()
	fmt.Fprintf(os.Stdout, "nodes_parsed=%d ways_parsed=%d relations_parsed=%d\n",
		result.NodesParsed, result.WaysParsed, result.RelationsParsed)
	fmt.Fprintf(os.Stdout, "stored: %d nodes, %d ways, %d relations\n",
		stats.NodeCount, stats.WayCount, stats.RelationCount)
	log.Printf("Done in %s", elapsed.Round(time.Millisecond))
	return nil
}
