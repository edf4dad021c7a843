package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oxen-io/ledger-crawler"
)

func newReadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "read <title>",
		Short: "Read a value shown over several pages",
		Long: `Read a value the device splits over pages titled "<title> (1/N)" through
"<title> (N/N)", pushing right to reach each page. The device must be on
the first page and is left on the last one. Set --quirks on for a device
that drops capital S.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.connect(cmd.Context(), false)
			if err != nil {
				return err
			}
			val, err := crawler.ReadPaginated(cmd.Context(), s, args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), val)
			return err
		},
	}
}
