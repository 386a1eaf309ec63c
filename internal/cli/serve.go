package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/uplinehq/upline/internal/config"
	"github.com/uplinehq/upline/internal/gateway"
	"github.com/uplinehq/upline/internal/relay"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the hierarchy HTTP gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := os.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}

		svc, cleanup, err := openService(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if cfg.Relay.Enabled {
			producer := relay.NewKafkaProducer(cfg.Relay.Brokers, cfg.Relay.Topic)
			defer producer.Close()
			r := relay.New(producer, svc.Notifier())
			r.Start(ctx)
			defer r.Stop()
			slog.Info("Kafka relay enabled", "topic", cfg.Relay.Topic)
		}

		slog.Info("Serving hierarchy", "tenant", cfg.Tenant.ID)
		return gateway.New(cfg.Gateway, svc).Run(ctx)
	},
}
