package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newScreenCmd(a *app) *cobra.Command {
	var boxed bool
	cmd := &cobra.Command{
		Use:   "screen",
		Short: "Print the text currently on the device screen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.connect(cmd.Context(), false)
			if err != nil {
				return err
			}
			scr, err := s.Screen(cmd.Context())
			if err != nil {
				return err
			}
			if boxed {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), scr.Box())
				return err
			}
			for _, line := range scr.Lines() {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&boxed, "box", false, "draw a frame around the screen")
	return cmd
}
