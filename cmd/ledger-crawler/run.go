package main

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oxen-io/ledger-crawler"
	"github.com/oxen-io/ledger-crawler/internal/script"
)

func newRunCmd(a *app) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "run <script> -- <command> [args...]",
		Short: "Run a command while walking the device through a script",
		Long: `Start a command, typically a wallet call that needs confirmation on the
device, and walk the device through the script's steps while it runs.
The command's standard output is copied to standard output once it exits,
followed by the captured values as YAML.

The run fails if a step cannot be satisfied, if the command exits before
every step was seen, or if the timeout expires.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.ArgsLenAtDash() != 1 {
				return fmt.Errorf("the command must follow the script after --")
			}
			sc, err := script.Load(args[0])
			if err != nil {
				return err
			}
			s, err := a.connect(cmd.Context(), true)
			if err != nil {
				return err
			}

			argv := args[1:]
			action := func(ctx context.Context) ([]byte, error) {
				c := exec.CommandContext(ctx, argv[0], argv[1:]...)
				var stdout bytes.Buffer
				c.Stdout = &stdout
				c.Stderr = cmd.ErrOrStderr()
				a.logger.Debug("Starting command", zap.Strings("argv", argv))
				err := c.Run()
				return stdout.Bytes(), err
			}

			values := crawler.NewValues()
			opts := []crawler.RunOption{crawler.WithValues(values)}
			if timeout > 0 {
				opts = append(opts, crawler.WithinTimeout(timeout))
			}
			out, err := crawler.Run(cmd.Context(), s, action, sc.Matchers(s), opts...)
			if _, werr := cmd.OutOrStdout().Write(out); werr != nil && err == nil {
				err = werr
			}
			if err != nil {
				return err
			}
			return printValues(cmd, values)
		},
	}
	cmd.Flags().DurationVar(&timeout, "within", 0, "timeout for this run, overriding --timeout")
	return cmd
}
