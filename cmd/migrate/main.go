package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"globalgigs/config"
	"globalgigs/pkg/database"
)

const usage = `
GlobalGigs - Postgres store migrations

Usage:
  migrate [command] [flags]

Commands:
  up          Apply all pending migrations
  down        Roll back migrations (all, or -steps N)
  status      Show the applied schema version

Flags:
  -source string   golang-migrate source URL (default MIGRATIONS_PATH)
  -steps int       Number of migrations to roll back with down

Examples:
  go run ./cmd/migrate up
  go run ./cmd/migrate down -steps 1
  go run ./cmd/migrate status
`

func main() {
	cfg := config.LoadConfig()

	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	source := fs.String("source", cfg.MigrationsPath, "golang-migrate source URL")
	steps := fs.Int("steps", 0, "Number of migrations to roll back")
	fs.Usage = func() {
		fmt.Print(usage)
	}

	if len(os.Args) < 2 {
		fs.Usage()
		os.Exit(1)
	}
	command := os.Args[1]
	_ = fs.Parse(os.Args[2:])

	dsn := cfg.PostgresURL()

	switch command {
	case "up":
		log.Println("Running migrations up...")
		if err := database.RunMigrationsUp(*source, dsn); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migrations completed successfully")
	case "down":
		log.Println("Rolling back migrations...")
		if err := database.RollbackMigrations(*source, dsn, *steps); err != nil {
			log.Fatalf("Rollback failed: %v", err)
		}
		log.Println("Rollback completed successfully")
	case "status":
		version, dirty, err := database.Version(*source, dsn)
		if err != nil {
			log.Fatalf("Status failed: %v", err)
		}
		log.Printf("Schema version: %d (dirty: %t)", version, dirty)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		fs.Usage()
		os.Exit(1)
	}
}
