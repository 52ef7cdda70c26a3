package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kzxian1201/medical-tourism-planning-system/config"
	srv "github.com/kzxian1201/medical-tourism-planning-system/internal/server"
	"github.com/kzxian1201/medical-tourism-planning-system/internal/store"
)

func main() {
	var configPath string
	var root = &cobra.Command{Use: "mediplan"}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run the planning HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(configPath)
			return srv.Run(cfg)
		},
	}

	var migDir string
	var direction string
	var steps int
	var migrate = &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(configPath)
			dsn, err := cfg.Storage.Postgres.DSN()
			if err != nil {
				dsn = "" // fall back to DATABASE_URL / POSTGRES_* env
			}
			return srv.Migrate(migDir, dsn, direction, steps)
		},
	}
	migrate.Flags().StringVar(&migDir, "dir", "file://migrations", "migrations source (file://migrations)")
	migrate.Flags().StringVar(&direction, "direction", "up", "up or down")
	migrate.Flags().IntVar(&steps, "steps", 0, "number of steps (0 = all)")

	var seedDir string
	var seed = &cobra.Command{
		Use:   "seed",
		Short: "Load the domain catalog from seed files into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(configPath)
			ctx := context.Background()
			st, err := store.New(ctx, cfg.Storage.Postgres)
			if err != nil {
				return fmt.Errorf("connecting postgres: %w", err)
			}
			defer st.Close()
			if err := st.SeedFromDir(ctx, seedDir); err != nil {
				return fmt.Errorf("seeding catalog: %w", err)
			}
			fmt.Println("catalog seeded from", seedDir)
			return nil
		},
	}
	seed.Flags().StringVar(&seedDir, "dir", "data/seed", "directory with seed JSON files")

	root.AddCommand(serve, migrate, seed)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
