// Package main is the entry point for the rosterd binary.
//
// rosterd is an in-memory student roster served over HTTP. The same binary
// runs the server and talks to one.
//
// Usage:
//
//	rosterd serve [-c config.yaml]         # start the server
//	rosterd validate -c config.yaml        # check a config file
//	rosterd list                           # print all records
//	rosterd put NAME BRANCH [--replace]    # create or replace a record
//	rosterd delete NAME                    # remove a record
//	rosterd version                        # show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information, set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd only prints help; the work happens in subcommands.
var rootCmd = &cobra.Command{
	Use:   "rosterd",
	Short: "An in-memory student roster over HTTP",
	Long: `rosterd keeps a roster of students and their branches in memory and
serves it over HTTP. Records are created or replaced with POST/PUT, removed
with DELETE and listed with GET on a single route (default /v1/student).
Nothing is persisted: stopping the server discards every record.

Quick start:
  1. Run: rosterd serve
  2. Run: rosterd put alice cs
  3. Run: rosterd list`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already printed the error.
		os.Exit(1)
	}
}

func main() {
	Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "rosterd %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
