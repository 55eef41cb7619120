package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Tombleron/z2p/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations to the configured database",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		cfg, log, err := setup(ctx)
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		db, err := database.Open(ctx, cfg.Database.WithDatabase(), database.OptionsFrom(cfg.Database), log.Desugar())
		if err != nil {
			return err
		}
		defer db.Close()

		if err := database.Migrate(ctx, db.DB, log); err != nil {
			log.Errorw("migration failed", "err", err)
			return err
		}
		log.Infow("schema up to date", "database", cfg.Database.DatabaseName)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
