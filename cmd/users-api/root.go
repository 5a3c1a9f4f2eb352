package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"github.com/99minutos/users-api/internal/infrastructure/db/mongo"
	"github.com/99minutos/users-api/internal/pkg/config"
	"github.com/99minutos/users-api/pkg/logger"
)

const serviceName = "users-api"

var envFile string

var rootCmd = &cobra.Command{
	Use:          serviceName,
	Short:        "User management REST service",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadEnvFile(envFile)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "load environment variables from this file before reading configuration")
}

// loadEnvFile loads path into the process environment. With no path, a local
// .env is picked up only in development.
func loadEnvFile(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	if os.Getenv("ENV") == "" || os.Getenv("ENV") == "development" {
		_ = godotenv.Load()
	}
	return nil
}

// bootstrap reads configuration and installs the process logger.
func bootstrap() *config.Config {
	cfg := config.Load()
	format := logger.FormatJSON
	if cfg.Development() {
		format = logger.FormatConsole
	}
	logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Format:  format,
		Service: serviceName,
	})
	return cfg
}

// openDatabase connects to MongoDB; the returned func disconnects.
func openDatabase(ctx context.Context, cfg *config.Config) (*mongodriver.Database, func(), error) {
	client, db, err := mongo.Connect(ctx, mongo.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		Timeout:  cfg.Mongo.Timeout,
	})
	if err != nil {
		return nil, nil, err
	}
	return db, func() { _ = client.Disconnect(context.Background()) }, nil
}
