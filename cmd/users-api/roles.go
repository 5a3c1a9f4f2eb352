package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/99minutos/users-api/internal/core/domain"
	"github.com/99minutos/users-api/internal/infrastructure/db/mongo"
	"github.com/99minutos/users-api/pkg/logger"
)

var defaultRoles = []domain.Role{
	{ID: 1, Name: "admin"},
	{ID: 2, Name: "user"},
}

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "Manage the roles users can be assigned",
}

var rolesSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert or refresh the default roles",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := bootstrap()

		db, closeDB, err := openDatabase(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeDB()

		repo := mongo.NewRoleRepository(db)
		for _, role := range defaultRoles {
			if err := repo.Upsert(cmd.Context(), role); err != nil {
				return fmt.Errorf("seed role %d: %w", role.ID, err)
			}
		}
		logger.Get().Info().Int("count", len(defaultRoles)).Msg("roles seeded")
		return nil
	},
}

var rolesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the stored roles",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := bootstrap()

		db, closeDB, err := openDatabase(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeDB()

		roles, err := mongo.NewRoleRepository(db).List(cmd.Context())
		if err != nil {
			return fmt.Errorf("list roles: %w", err)
		}
		out := cmd.OutOrStdout()
		for _, role := range roles {
			fmt.Fprintf(out, "%d\t%s\n", role.ID, role.Name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rolesCmd)
	rolesCmd.AddCommand(rolesSeedCmd, rolesListCmd)
}
