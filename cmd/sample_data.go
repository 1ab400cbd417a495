package cmd

import (
	"context"
	"log"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/taigaio/taiga/internal/config"
	"github.com/taigaio/taiga/internal/db"
	"github.com/taigaio/taiga/internal/migrations"
	"github.com/taigaio/taiga/internal/sampledata"
	"github.com/taigaio/taiga/internal/services"
)

// Development only. The seed comes from SAMPLE_DATA_SEED so runs are reproducible.
var sampleDataCmd = &cobra.Command{
	Use:   "sample-data",
	Short: "Fill an empty database with demo data",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		conf := config.ReadConfig()
		ctx := context.Background()

		conn := db.NewConn(conf)
		defer conn.Close()

		m, err := migrations.NewMigrator(conn)
		if err != nil {
			log.Fatalln("Unable to create migrator", err)
		}
		if err := m.Up(ctx, 0); err != nil {
			log.Fatalln("Unable to run migrations", err)
		}

		err = db.RunInTx(ctx, conn, func(tx *sqlx.Tx) error {
			svc := services.New(tx)
			loader := sampledata.NewLoader(sampledata.Services{
				User:       svc.User,
				Workspace:  svc.Workspace,
				Project:    svc.Project,
				Invitation: svc.Invitation,
				Story:      svc.Story,
			}, conf.SAMPLE_DATA_SEED, sampledata.DefaultOptions())
			return loader.Load(ctx)
		})
		if err != nil {
			log.Fatalln("Unable to load sample data", err)
		}

		slog.Info("Sample data loaded", slog.Int64("seed", conf.SAMPLE_DATA_SEED))
	},
}

func init() {
	rootCmd.AddCommand(sampleDataCmd)
}
