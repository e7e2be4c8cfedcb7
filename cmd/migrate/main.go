package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"pollstream/config"
	"pollstream/internal/repository"
	"pollstream/pkg/database"
)

const usage = `
pollstream - Database CLI Tool

Usage:
  migrate [command]

Commands:
  up          Create tables and seed the sequence counter
  status      Show database connection status
  reset       Drop all tables and re-run migrations (DANGEROUS)

Examples:
  go run cmd/migrate/main.go up
  go run cmd/migrate/main.go reset
`

func main() {
	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	command := flag.Arg(0)

	cfg := config.LoadConfig()
	database.Connect(cfg)
	defer database.Close()

	ctx := context.Background()

	switch command {
	case "up":
		log.Println("Running migrations...")
		if err := repository.InitSchema(ctx, database.DB); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migrations applied")
	case "status":
		if err := database.DB.PingContext(ctx); err != nil {
			log.Fatalf("Database unreachable: %v", err)
		}
		log.Println("Database connection OK")
	case "reset":
		log.Println("Dropping all tables...")
		if err := repository.DropSchema(ctx, database.DB); err != nil {
			log.Fatalf("Drop failed: %v", err)
		}
		if err := repository.InitSchema(ctx, database.DB); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Schema reset")
	default:
		fmt.Printf("Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}
