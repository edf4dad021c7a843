package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oxen-io/ledger-crawler/internal/emulator"
)

func newEmulateCmd(a *app) *cobra.Command {
	var (
		listen   string
		menuPath string
		dropS    bool
	)
	cmd := &cobra.Command{
		Use:   "emulate",
		Short: "Serve a scripted device emulator",
		Long: `Serve the emulator REST API backed by a menu of screens, for developing
scripts without a real emulator. The default menu imitates a wallet app
with an address display and a settings menu.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			menu := emulator.DefaultMenu()
			if menuPath != "" {
				var err error
				if menu, err = emulator.LoadMenu(menuPath); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("drop-capital-s") {
				menu.DropCapitalS = dropS
			}
			e, err := emulator.New(menu, a.logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", listen)
			if err != nil {
				return err
			}
			srv := &http.Server{
				Handler:           e.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}
			a.logger.Info("Serving emulator",
				zap.Stringer("listenAddress", ln.Addr()),
				zap.String("start", menu.Start),
				zap.Bool("dropCapitalS", menu.DropCapitalS),
			)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Serve(ln) }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			a.logger.Info("Shutting down emulator")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "127.0.0.1:5000", "address to serve the REST API on")
	cmd.Flags().StringVar(&menuPath, "menu", "", "YAML menu file (default: built-in wallet menu)")
	cmd.Flags().BoolVar(&dropS, "drop-capital-s", false, `imitate a device that drops capital "S" from displayed text`)
	return cmd
}
