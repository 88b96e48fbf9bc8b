package main

import (
	"context"
	"log"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"

	"github.com/fdg312/run-coach/internal/config"
	"github.com/fdg312/run-coach/internal/dbmigrate"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: go run ./cmd/migrate [%s]", strings.Join(dbmigrate.Commands, "|"))
	}

	command := os.Args[1]
	if !dbmigrate.IsCommand(command) {
		log.Fatalf("unsupported command %q (allowed: %s)", command, strings.Join(dbmigrate.Commands, ", "))
	}

	cfg := config.Load()
	dbURL, source, warning, err := dbmigrate.SelectDatabaseURL(cfg, false)
	if err != nil {
		log.Fatal(err)
	}

	if warning != "" {
		log.Printf("WARN migrate: %s", warning)
	}
	log.Printf("migrate: command=%s using=%s", command, source)

	if err := dbmigrate.Run(context.Background(), command, dbURL); err != nil {
		log.Fatal(err)
	}

	log.Printf("migrate: %s completed successfully", command)
}
