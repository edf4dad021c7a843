package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/oxen-io/ledger-crawler"
)

func newPressCmd(a *app) *cobra.Command {
	var (
		count  int
		sleep  time.Duration
		delay  time.Duration
		action string
		show   bool
	)
	cmd := &cobra.Command{
		Use:   "press <left|right|both>",
		Short: "Push a device button",
		Long: `Push a device button one or more times.

With --action press or --action release, only that half of the push is
sent, which lets a button be held while others are pushed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			button, err := crawler.ParseButton(args[0])
			if err != nil {
				return err
			}
			pa, err := parsePressAction(action)
			if err != nil {
				return err
			}
			s, err := a.connect(cmd.Context(), false)
			if err != nil {
				return err
			}
			err = s.Press(cmd.Context(), crawler.Press{
				Button: button,
				Count:  count,
				Action: pa,
				Delay:  delay,
				Sleep:  sleep,
			})
			if err != nil {
				return err
			}
			if !show {
				return nil
			}
			scr, err := s.Screen(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), scr.Box())
			return err
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of pushes")
	cmd.Flags().DurationVar(&sleep, "sleep", 0, "pause after each push")
	cmd.Flags().DurationVar(&delay, "delay", 0, "hold time the device applies between press and release")
	cmd.Flags().StringVar(&action, "action", "press-and-release", "press-and-release, press, or release")
	cmd.Flags().BoolVar(&show, "show", false, "print the screen after pushing")
	return cmd
}

func parsePressAction(s string) (crawler.PressAction, error) {
	switch pa := crawler.PressAction(s); pa {
	case crawler.PressAndRelease, crawler.PressOnly, crawler.ReleaseOnly:
		return pa, nil
	}
	return "", fmt.Errorf("invalid press action %q (want press-and-release, press, or release)", s)
}
