// Package cmd provides the CLI commands for the tlsn-prover-gateway.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/summitto/tlsn-prover-gateway/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "tlsn-prover",
	Short: "TLSNotary prover gateway",
	Long: `tlsn-prover is an HTTP-fronted notarization gateway for the MPC-TLS/TLSNotary
protocol: it shapes a caller's proxied HTTP request, dials a notary server,
drives the prover state machine over the resulting MPC-TLS connection,
resolves the caller's redaction selectors, and publishes the finished proof
on a ZeroMQ IPC bus while returning an independent copy of the upstream
response to the caller.

Examples:
  # Start with config file settings
  tlsn-prover serve

  # Start with a specific config file
  tlsn-prover --config /path/to/tlsn-prover.yaml serve`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./tlsn-prover.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
