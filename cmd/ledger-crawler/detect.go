package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oxen-io/ledger-crawler"
)

func newDetectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "Detect display quirks of the device",
		Long: `Walk the settings menu to find out whether the device drops a capital "S"
from displayed text. The device must be on its main screen and is returned
there afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dev, err := crawler.NewHTTPDevice(a.cfg.APIURL, nil)
			if err != nil {
				return err
			}
			q, err := crawler.DetectQuirks(cmd.Context(), dev, a.cfg.HomeTitle)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "drops capital S: %t\n", q.DropsCapitalS)
			return err
		},
	}
}
