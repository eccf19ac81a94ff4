package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/zoobzio/beacon/internal/config"
	"github.com/zoobzio/beacon/internal/logging"
	"github.com/zoobzio/beacon/pkg/wsbridge"
	"github.com/zoobzio/capitan"
)

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "beacond",
		Short:         "Keep declared map markers in sync with a browser map host",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "beacon.toml", "Config file (.toml, .yaml or .json)")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve the map host bridge and watch marker declarations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			log := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.Pretty)
			logging.Install(log)
			defer capitan.Shutdown()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, log)
		},
	}

	var host string
	var ttl time.Duration
	token := &cobra.Command{
		Use:     "token",
		Short:   "Print a map host token",
		Example: "  beacond token --host kiosk-1 --ttl 24h",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			t, err := wsbridge.IssueToken([]byte(cfg.Secret), host, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), t)
			return nil
		},
	}
	token.Flags().StringVar(&host, "host", "", "Host name carried by the token")
	token.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (0 never expires)")
	_ = token.MarkFlagRequired("host")

	root.AddCommand(serve, token)
	return root
}

// run serves until ctx is done or the server fails, then shuts down.
func run(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	d, err := newDaemon(ctx, cfg, log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		d.close()
	}()

	errc := make(chan error, 1)
	go func() { errc <- d.listen() }()

	d.start(ctx)
	log.Info().Str("addr", cfg.Addr).Int("markers", len(d.markers)).Msg("beacond serving")

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errc:
	}
	cancel()

	sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer scancel()
	if err := d.shutdown(sctx); err != nil {
		log.Warn().Err(err).Msg("shutdown")
	}
	if serveErr != nil {
		return fmt.Errorf("server error: %w", serveErr)
	}
	return nil
}
