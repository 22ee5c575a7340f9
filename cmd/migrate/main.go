// Command migrate prepares a Postgres database for the postgres account
// store. With --list it prints the service's tables instead.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/ignite/emailguard/internal/pkg/logger"
	"github.com/ignite/emailguard/internal/repository/postgres"
)

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	listOnly := false
	for _, a := range os.Args[1:] {
		if a == "--list" {
			listOnly = true
		}
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logger.Error("connect failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		logger.Error("ping failed", "error", err)
		os.Exit(1)
	}

	if listOnly {
		rows, err := db.QueryContext(ctx,
			`SELECT tablename FROM pg_tables WHERE schemaname = 'public' AND tablename LIKE 'emailguard_%' ORDER BY tablename`)
		if err != nil {
			logger.Error("list tables failed", "error", err)
			os.Exit(1)
		}
		defer rows.Close()
		n := 0
		for rows.Next() {
			var t string
			if err := rows.Scan(&t); err != nil {
				logger.Error("scan table name failed", "error", err)
				os.Exit(1)
			}
			fmt.Println(" ", t)
			n++
		}
		fmt.Printf("Total: %d tables\n", n)
		return
	}

	if err := postgres.NewAccountRepo(db).EnsureSchema(ctx); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}
	logger.Info("schema is up to date")
}
