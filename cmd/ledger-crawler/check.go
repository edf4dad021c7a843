package main

import (
	"github.com/spf13/cobra"

	"github.com/oxen-io/ledger-crawler"
	"github.com/oxen-io/ledger-crawler/internal/script"
)

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check <script>",
		Short: "Check the device against an interaction script",
		Long: `Evaluate each step of a YAML interaction script once, in order, against
the current device screen. Any step that does not match on the first look
fails the check. Captured values are printed as YAML.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := script.Load(args[0])
			if err != nil {
				return err
			}
			s, err := a.connect(cmd.Context(), true)
			if err != nil {
				return err
			}
			values := crawler.NewValues()
			if err := sc.Check(cmd.Context(), s, crawler.WithValues(values)); err != nil {
				return err
			}
			return printValues(cmd, values)
		},
	}
}

func printValues(cmd *cobra.Command, values *crawler.Values) error {
	out, err := valuesYAML(values)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
