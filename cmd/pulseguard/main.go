// Pulseguard is a command-line client for the Pulse home-security
// cloud portal.
//
// The portal has no documented API, so pulseguard drives the same HTML
// interface a browser would: it signs in, keeps the session alive, and
// polls for remote state changes, exposing the site's alarm status and
// zones on the terminal.
//
// Usage:
//
//	pulseguard watch [flags]
//	pulseguard status [flags]
//	pulseguard fingerprint
//
// See 'pulseguard --help' for available options.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/pulseguard/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pulseguard",
	Short: "Pulse portal client",
	Long: `A command-line client for the Pulse home-security cloud portal.

Pulseguard signs in to the portal the way a browser would, keeps the
session alive across the portal's idle timeout, and polls for remote
state changes so the local view of the site and its zones stays fresh.

Credentials: the username, host, and device fingerprint come from the
config file or flags. The password is prompted, or read from the
PULSEGUARD_PASSWORD environment variable for non-interactive use.`,
	Version: version.Version,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(fingerprintCmd)
	rootCmd.AddCommand(versionCmd)
}

// Version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pulseguard %s (commit: %s)\n", version.Version, version.Commit)
	},
}
