package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/99minutos/users-api/internal/infrastructure/db/mongo"
	"github.com/99minutos/users-api/pkg/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the MongoDB indexes the service relies on",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := bootstrap()

		db, closeDB, err := openDatabase(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeDB()

		if err := mongo.EnsureIndexes(cmd.Context(), db); err != nil {
			return fmt.Errorf("ensure indexes: %w", err)
		}
		logger.Get().Info().Str("database", cfg.Mongo.Database).Msg("indexes ensured")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
