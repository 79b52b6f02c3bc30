// Command migrate applies or inspects the database schema. The server only
// auto-migrates outside production, so deployments run "migrate up" first.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"feedhub/internal/config"
	"feedhub/internal/database"
	"feedhub/internal/middleware"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: migrate <up|status>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	middleware.Configure(cfg.Env, cfg.LogLevel)

	dialector, err := database.Dialector(cfg)
	if err != nil {
		return err
	}
	db, err := database.Open(dialector, false)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer func() { _ = sqlDB.Close() }()
	}

	switch strings.ToLower(strings.TrimSpace(flag.Arg(0))) {
	case "up":
		if err := database.Migrate(db); err != nil {
			return err
		}
		log.Println("schema applied")
	case "status":
		missing := database.PendingTables(db)
		if len(missing) == 0 {
			log.Println("schema up to date")
			return nil
		}
		log.Printf("missing tables: %s", strings.Join(missing, ", "))
	default:
		return usage()
	}
	return nil
}
