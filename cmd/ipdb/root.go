package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

type globalFlags struct {
	verbose bool
	quiet   bool
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	cmd := &cobra.Command{
		Use:   "ipdb",
		Short: "Consolidate RIR delegation statistics into IP range databases",
		Long: `ipdb reads the delegation statistics published by the Regional Internet
Registries, merges the IPv4 and IPv6 ranges assigned to each country and writes
them as sorted record files for fast lookups.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose output")
	cmd.PersistentFlags().
		BoolVarP(&flags.quiet, "quiet", "q", false, "Suppress all output except errors")

	cmd.AddCommand(newBuildCmd(&flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger writes text records to w at a level chosen by the global flags.
func newLogger(w io.Writer, flags *globalFlags) *slog.Logger {
	level := slog.LevelInfo

	switch {
	case flags.quiet:
		level = slog.LevelError
	case flags.verbose:
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// printInfo prints to the command output unless in quiet mode
func printInfo(cmd *cobra.Command, flags *globalFlags, format string, args ...any) {
	if !flags.quiet {
		fmt.Fprintf(cmd.OutOrStdout(), format, args...)
	}
}
