package main

import (
	"fmt"
	"os"

	"companion-be/internal/catalog"
	"companion-be/internal/config"
	"companion-be/pkg/database"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	catalogPath string
	dryRun      bool
)

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed characters and notification types from the YAML catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(true, true)
	},
}

var charactersCmd = &cobra.Command{
	Use:   "characters",
	Short: "Upsert the character catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(true, false)
	},
}

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Upsert the notification type registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(false, true)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&catalogPath, "catalog", "c", "", "catalog file (default: CATALOG_PATH or config/catalog.yaml)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "validate the catalog without touching the database")
	rootCmd.AddCommand(charactersCmd, notificationsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(characters, notifications bool) error {
	cfg := config.Load()
	if catalogPath == "" {
		catalogPath = cfg.App.CatalogPath
	}

	cat, err := catalog.Load(catalogPath)
	if err != nil {
		color.Red("Invalid catalog: %v", err)
		return err
	}
	color.Green("Catalog %s: %d characters, %d notification types", catalogPath, len(cat.Characters), len(cat.NotificationTypes))
	if dryRun {
		color.Yellow("Dry run: nothing written")
		return nil
	}

	if cfg.Database.Connection == "" {
		return fmt.Errorf("DB_CONNECTION_STRING is not set")
	}
	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, true)
	if err != nil {
		color.Red("Failed to connect to database: %v", err)
		return err
	}

	return seed(db, cat, characters, notifications)
}

func seed(db *gorm.DB, cat *catalog.Catalog, characters, notifications bool) error {
	if characters {
		color.Yellow("Seeding Characters...")
		if err := SeedCharacters(db, cat); err != nil {
			return err
		}
	}
	if notifications {
		color.Yellow("Seeding Notification Types...")
		if err := SeedNotificationTypes(db, cat); err != nil {
			return err
		}
	}
	color.Green("✅ Seeding completed!")
	return nil
}
