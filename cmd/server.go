package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"github.com/taigaio/taiga/internal/api"
	"github.com/taigaio/taiga/internal/config"
	"github.com/taigaio/taiga/internal/migrations"
	"github.com/taigaio/taiga/internal/pubsub"
	"github.com/taigaio/taiga/internal/services"
	"github.com/taigaio/taiga/internal/telemetry"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the API server",
	Run: func(cmd *cobra.Command, args []string) {
		conf := config.ReadConfig()

		shutdownTelemetry := telemetry.NewProvider(conf.OTEL_EXPORTER_OTLP_ENDPOINT)
		defer shutdownTelemetry()

		svc := services.NewServices(conf)
		defer svc.Close()

		m, err := migrations.NewMigrator(svc.DB)
		if err != nil {
			log.Fatalln("Unable to create migrator", err)
		}
		if err := m.Up(context.Background(), 0); err != nil {
			log.Fatalln("Unable to run migrations", err)
		}

		// Roles, memberships and permission tiers changes drop the access cache
		if svc.AccessCache != nil {
			ps := pubsub.NewPubSub(conf.DSN())
			svc.WatchAccessChanges(ps)
			if err := ps.Start(); err != nil {
				log.Fatalln("Unable to listen for access changes", err)
			}
			defer ps.Stop()
		}

		s, err := api.New(conf, svc)
		if err != nil {
			log.Fatalln("Unable to create server", err)
		}
		s.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
