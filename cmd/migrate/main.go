package main

import (
	"context"
	"log"
	"os"

	"cropyield/internal/migration"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

func main() {
	if len(os.Args) < 3 {
		log.Fatal("Usage: migrate <postgres|sqlite> <dsn>")
	}

	driver := os.Args[1]
	dsn := os.Args[2]
	if driver != "postgres" && driver != "sqlite" {
		log.Fatalf("Unsupported driver %q", driver)
	}

	ctx := context.Background()
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	runner := migration.NewRunner()
	log.Printf("Applying artifact schema %s to %s", runner.Version(), driver)
	if err := runner.Run(ctx, db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Printf("Migration complete")
}
