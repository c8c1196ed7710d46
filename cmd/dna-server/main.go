package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dna-engine/dna/internal/exitcode"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr exitCodeErr
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Error())
			os.Exit(exitErr.code)
		}
		os.Exit(exitcode.Usage)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dna-server",
	Short: "DNA - Direct Node Access ingestion and streaming engine",
	Long: `dna-server ingests blocks from a chain RPC endpoint into a
content-indexed block store and serves filtered, ordered streams of
that data to many concurrent gRPC clients.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

const version = "0.1.0"

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(statusCmd)
}
