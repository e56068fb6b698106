package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/obsidianstack/rosterd/internal/config"
)

// validateCmd validates a config file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a rosterd configuration file without starting the server.

The YAML is parsed, defaults and environment overrides are applied, and every
field is checked. Exit code 0 means the file is valid.

Example:
  rosterd validate -c config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	s := cfg.Server
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  HTTP:      %s%s\n", s.HTTPAddr(), s.RoutePrefix)
	if s.GRPCPort != 0 {
		fmt.Fprintf(out, "  gRPC:      %s\n", s.GRPCAddr())
	} else {
		fmt.Fprintf(out, "  gRPC:      disabled\n")
	}
	fmt.Fprintf(out, "  Body cap:  %d bytes\n", s.MaxBodyBytes)
	fmt.Fprintf(out, "  Log level: %s\n", s.LogLevel)
	if s.Metrics.Enabled {
		fmt.Fprintf(out, "  Metrics:   %s\n", s.Metrics.Path)
	} else {
		fmt.Fprintf(out, "  Metrics:   disabled\n")
	}
	if s.Stream.Enabled {
		fmt.Fprintf(out, "  Stream:    every %s\n", s.Stream.Interval)
	} else {
		fmt.Fprintf(out, "  Stream:    disabled\n")
	}
	return nil
}
