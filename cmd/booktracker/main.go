package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"booktracker/internal/app"
	"booktracker/internal/storage/sqlite"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "booktracker: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "booktracker",
		Short:        "Personal book tracker with an offline-first shell cache",
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
	)
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the booktracker server",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := app.New()
			if err != nil {
				return err
			}
			return application.Run()
		},
	}
}

func newMigrateCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "migrate [up|down|status|version]",
		Short: "Manage the database schema",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if it exists
			_ = godotenv.Load()

			if dbPath == "" {
				dbPath = os.Getenv("BOOKTRACKER_DB_PATH")
			}
			if dbPath == "" {
				dbPath = "data/booktracker.db"
			}

			command := "up"
			if len(args) > 0 {
				command = args[0]
			}

			db, err := sql.Open("sqlite", "file:"+dbPath)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			goose.SetBaseFS(sqlite.MigrationsFS)
			if err := goose.SetDialect("sqlite3"); err != nil {
				return fmt.Errorf("set dialect: %w", err)
			}

			switch command {
			case "up":
				return goose.Up(db, "migrations")
			case "down":
				return goose.Down(db, "migrations")
			case "status":
				return goose.Status(db, "migrations")
			case "version":
				version, err := goose.GetDBVersion(db)
				if err != nil {
					return err
				}
				fmt.Printf("current migration version: %d\n", version)
				return nil
			default:
				return fmt.Errorf("unknown command %q (available: up, down, status, version)", command)
			}
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "path to the SQLite database file")
	return cmd
}
