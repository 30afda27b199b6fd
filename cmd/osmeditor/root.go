package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"osmeditor/internal/config"
)

var cfgFile string
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "osmeditor",
	Short: "In-memory OSM editing engine",
	Long: `osmeditor ingests an OSM PBF extract into an in-memory entity
store and serves viewport queries, hit-testing and undoable edits over
HTTP for a local editor frontend.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
}

func initConfig() {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	cfg = loaded
}
