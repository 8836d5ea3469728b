package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aglyzov/go-ipdb/config"
	"github.com/aglyzov/go-ipdb/ipdb"
)

type buildFlags struct {
	output   string
	config   string
	skip     []string
	order    string
	maxNodes int
	summary  bool
}

func newBuildCmd(global *globalFlags) *cobra.Command {
	var flags buildFlags

	cmd := &cobra.Command{
		Use:   "build [files...]",
		Short: "Build <output>.v4 and <output>.v6 from RIR statistics files",
		Long: `The build command merges the ranges of every given RIR statistics file
(format version 2) and writes the consolidated IPv4 and IPv6 record files.
Files named on the command line replace the inputs of the config file.

Example:
  ipdb build -o /usr/local/etc/ipdb/IPRanges/ipcc delegated-*-latest
  ipdb build -c ipdb.yaml
  ipdb build --skip EU --skip AP --order big -o ./ipcc delegated-ripencc-latest`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, global, &flags, args)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output basename (default from config)")
	cmd.Flags().StringVarP(&flags.config, "config", "c", "", "YAML config file")
	cmd.Flags().StringSliceVar(&flags.skip, "skip", nil, "Tags never stored (default EU)")
	cmd.Flags().StringVar(&flags.order, "order", "", "Byte order of the records: little or big")
	cmd.Flags().IntVar(&flags.maxNodes, "max-nodes", 0, "Node budget per store, 0 means unlimited")
	cmd.Flags().BoolVar(&flags.summary, "summary", false, "Print the number of ranges per tag")

	return cmd
}

// buildConfig merges the config file, the flags and the arguments.
func buildConfig(cmd *cobra.Command, flags *buildFlags, args []string) (config.Build, error) {
	cfg := config.Default()

	if flags.config != "" {
		var err error
		if cfg, err = config.Load(flags.config); err != nil {
			return cfg, err
		}
	}

	if cmd.Flags().Changed("output") {
		cfg.Output = flags.output
	}
	if cmd.Flags().Changed("skip") {
		cfg.SkipTags = flags.skip
	}
	if cmd.Flags().Changed("order") {
		cfg.ByteOrder = flags.order
	}
	if cmd.Flags().Changed("max-nodes") {
		cfg.MaxNodes = flags.maxNodes
	}
	if len(args) > 0 {
		cfg.Inputs = args
	}

	if len(cfg.Inputs) == 0 {
		return cfg, errors.New("no input files")
	}

	return cfg, cfg.Validate()
}

func runBuild(cmd *cobra.Command, global *globalFlags, flags *buildFlags, args []string) error {
	cfg, err := buildConfig(cmd, flags, args)
	if err != nil {
		return err
	}

	// both are valid after buildConfig
	skip, _ := cfg.Skip()
	order, _ := cfg.Order()

	b := ipdb.NewBuilder(ipdb.Options{
		Logger:   newLogger(cmd.ErrOrStderr(), global),
		Skip:     skip,
		MaxNodes: cfg.MaxNodes,
		Order:    order,
	})

	printInfo(cmd, global, "Processing RIR data files ...\n\n")

	for _, path := range cfg.Inputs {
		st, err := os.Stat(path)
		if err != nil {
			return err
		}
		if st.Size() == 0 {
			return fmt.Errorf("%s: empty file", path)
		}

		printInfo(cmd, global, " %s ", filepath.Base(path))

		if _, err := b.IngestFile(path); err != nil {
			return err
		}
	}

	if err := b.Save(cfg.Output); err != nil {
		return fmt.Errorf("failed to save %s: %w", cfg.Output, err)
	}

	printInfo(cmd, global, "\n\nNumber of processed IP-Ranges = %d\n", b.Count())

	if flags.summary {
		sum := b.Summary()

		printInfo(cmd, global, "\nIPv4 ranges: %d (%d addresses)\n", sum.Ranges4, sum.Addresses4)
		printInfo(cmd, global, "IPv6 ranges: %d (%s addresses)\n", sum.Ranges6, sum.Addresses6)
		printInfo(cmd, global, "Tags: %d\n\n", len(sum.Tags))

		for _, tc := range sum.Tags {
			printInfo(cmd, global, "  %-4s %d\n", tc.Tag, tc.Ranges)
		}
	}

	return nil
}
