package db

import (
	"fmt"
	"log"
	"os"
	"strconv"
)

// RunMigrateCommand handles the 'migrate' subcommand dispatching.
func RunMigrateCommand(args []string, dbPath string) {
	if len(args) < 1 {
		PrintMigrateHelp()
		os.Exit(1)
	}
	action := args[0]
	migrationsFS := MigrationsFS()

	// Open the database without running schema initialization; migrations
	// manage the schema.
	database, err := OpenDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	switch action {
	case "up":
		log.Printf("Running migrations...")
		if err := database.MigrateUp(migrationsFS); err != nil {
			log.Fatalf("Migration up failed: %v", err)
		}
		log.Println("All migrations applied successfully")

	case "down":
		log.Printf("Rolling back most recent migration...")
		if err := database.MigrateDown(migrationsFS); err != nil {
			log.Fatalf("Migration down failed: %v", err)
		}
		log.Println("Rollback complete")

	case "status":
		version, dirty, err := database.MigrateVersion(migrationsFS)
		if err != nil {
			log.Fatalf("Failed to read migration status: %v", err)
		}
		log.Printf("Current version: %d (dirty: %v)", version, dirty)

	case "version":
		if len(args) < 2 {
			log.Fatal("Usage: iriscore migrate version <version_number>")
		}
		v, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			log.Fatalf("Invalid version %q: %v", args[1], err)
		}
		if err := database.MigrateTo(migrationsFS, uint(v)); err != nil {
			log.Fatalf("Migration to version %d failed: %v", v, err)
		}
		log.Printf("Migrated to version %d", v)

	case "force":
		if len(args) < 2 {
			log.Fatal("Usage: iriscore migrate force <version_number>")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			log.Fatalf("Invalid version %q: %v", args[1], err)
		}
		if err := database.MigrateForce(migrationsFS, v); err != nil {
			log.Fatalf("Force migration failed: %v", err)
		}
		log.Printf("Forced version to %d", v)

	case "help":
		PrintMigrateHelp()

	default:
		fmt.Printf("Unknown migrate action: %s\n\n", action)
		PrintMigrateHelp()
		os.Exit(1)
	}
}

// PrintMigrateHelp prints usage for the migrate subcommand.
func PrintMigrateHelp() {
	fmt.Println(`Usage: iriscore migrate <action>

Actions:
  up                 Apply all pending migrations
  down               Roll back the most recent migration
  status             Show current migration version
  version <n>        Migrate up or down to version n
  force <n>          Force the version marker to n (dirty-state recovery)
  help               Show this help`)
}
