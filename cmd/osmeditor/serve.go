package main

import (
	"context"
	"log"
	"time"

	"github.com/spf13/cobra"

	"osmeditor/pkg/api"
	"osmeditor/pkg/history"
	"osmeditor/pkg/ingest"
	"osmeditor/pkg/store"
)

var serveAddr string
var serveCORSOrigin string
var servePBFPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP dispatcher over an in-memory document",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config listen_addr)")
	serveCmd.Flags().StringVar(&serveCORSOrigin, "cors-origin", "", "CORS allowed origin (overrides config cors_origin)")
	serveCmd.Flags().StringVar(&servePBFPath, "pbf", "", "PBF file to ingest before serving (overrides config default_pbf_path)")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := cfg.ListenAddr
	if serveAddr != "" {
		addr = serveAddr
	}
	corsOrigin := cfg.CORSOrigin
	if serveCORSOrigin != "" {
		corsOrigin = serveCORSOrigin
	}
	pbfPath := cfg.DefaultPBFPath
	if servePBFPath != "" {
		pbfPath = servePBFPath
	}

	s := store.New()
	mgr := history.New()

	if pbfPath != "" {
		log.Printf("Loading %s...", pbfPath)
		start := time.Now()
		result, err := ingest.IngestFile(context.Background(), s, pbfPath)
		if err != nil {
			return err
		}
		s.RebuildIndices()
		log.Printf("Loaded %d nodes, %d ways, %d relations in %s",
			result.NodesParsed, result.WaysParsed, result.RelationsParsed,
			time.Since(start).Round(time.Millisecond))
	}

	handlers := api.NewHandlers(s, mgr)
	srv := api.NewServer(api.ServerConfig{
		Addr:           addr,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		RequestTimeout: cfg.RequestTimeout,
		MaxConcurrent:  cfg.MaxConcurrent,
		CORSOrigin:     corsOrigin,
	}, handlers)

	return api.ListenAndServe(srv)
}
