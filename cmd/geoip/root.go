package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aglyzov/go-ipdb/flatrec"
	"github.com/aglyzov/go-ipdb/ipdb"
)

var version = "dev"

type rootFlags struct {
	basename string
	order    string
}

func newRootCmd() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   "geoip [-r basename] <address>",
		Short: "Look up the country of an IP address",
		Long: `geoip finds the range containing a dotted IPv4 or colon IPv6 address in the
record files generated by the 'ipdb' tool and prints it with its country code.

Example:
  geoip 192.0.2.1
  geoip -r ./ipcc 2001:db8::1`,
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(cmd, &flags, args[0])
		},
	}

	cmd.Flags().StringVarP(&flags.basename, "records", "r", ipdb.DefaultBasename,
		"Basename of the record files, .v4/.v6 are appended")
	cmd.Flags().StringVar(&flags.order, "order", flatrec.LittleEndian.String(),
		"Byte order of the records: little or big")

	return cmd
}

func runLookup(cmd *cobra.Command, flags *rootFlags, addr string) error {
	order, err := flatrec.ParseOrder(flags.order)
	if err != nil {
		return err
	}

	// parse first so a typo does not cost a database load
	if _, err := ipdb.ParseAddr(addr); err != nil {
		return err
	}

	db, err := ipdb.Open(flags.basename, ipdb.Bisect, order)
	if err != nil {
		return err
	}

	res, ok, err := db.Lookup(addr)
	if err != nil {
		return err
	}

	if !ok {
		fmt.Fprintf(cmd.OutOrStdout(), "%s not found\n", addr)
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s in %s-%s in %s\n", addr, res.Lo, res.Hi, res.Tag)

	return nil
}
