// Command migrate applies schema migrations and seed data to the collabhub
// database.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"collabhub.org/internal/migrate"
)

func main() {
	log.SetFlags(0)

	dsn := flag.String("dsn", os.Getenv("COLLABHUB_PG_DSN"), "PostgreSQL DSN")
	migrationsPath := flag.String("migrations", "migrations", "Path to SQL migrations")
	seedsPath := flag.String("seeds", "seeds", "Path to SQL seeds")
	flag.Parse()

	if err := run(*dsn, *migrationsPath, *seedsPath, flag.Arg(0)); err != nil {
		log.Fatal(err)
	}
}

func run(dsn, migrationsPath, seedsPath, command string) error {
	if dsn == "" {
		return fmt.Errorf("missing DSN: provide via -dsn or COLLABHUB_PG_DSN")
	}
	if command == "" {
		return fmt.Errorf("usage: migrate [up|down|seed|status]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	mgr := migrate.NewManager(db, migrationsPath, seedsPath)

	switch command {
	case "up":
		err = mgr.Up(ctx)
	case "down":
		err = mgr.Down(ctx)
	case "seed":
		err = mgr.Seed(ctx)
	case "status":
		var history []string
		if history, err = mgr.Status(ctx); err == nil {
			for _, item := range history {
				fmt.Println(item)
			}
		}
	default:
		return fmt.Errorf("unknown command %q", command)
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", command, err)
	}
	return nil
}
