// Package main provides the lmrkctl command line client for the LMRK
// administration backend.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		verbose    bool
	)
	a := &app{}

	cmd := &cobra.Command{
		Use:   "lmrkctl",
		Short: "Client for the LMRK membership administration backend",
		Long: `lmrkctl signs in to the LMRK administration backend and runs the
report and lookup operations of the admin dashboard from the terminal.

The session survives between invocations: the access token is kept in
a local file and renewed automatically, and expired tokens are
refreshed transparently on use.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(configPath, verbose)
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "Path to configuration file")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(
		loginCmd(a),
		logoutCmd(a),
		statusCmd(a),
		whoamiCmd(a),
		refreshCmd(a),
		reportsCmd(a),
		branchesCmd(a),
		sectionsCmd(a),
		usersCmd(a),
		versionCmd(),
	)

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("lmrkctl version %s\n", Version)
		},
	}
}
