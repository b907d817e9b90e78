// Command migrate runs schema operations for the backend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/middleware"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

const usageText = "usage: migrate <up|auto|status|down <version>>"

// command is a parsed invocation. version is only set for down.
type command struct {
	name    string
	version int
}

func parseCommand(args []string) (command, error) {
	if len(args) == 0 {
		return command{}, errors.New(usageText)
	}
	cmd := command{name: strings.ToLower(strings.TrimSpace(args[0]))}
	switch cmd.name {
	case "up", "auto", "status":
		if len(args) > 1 {
			return command{}, fmt.Errorf("%s takes no arguments; %s", cmd.name, usageText)
		}
	case "down":
		if len(args) != 2 {
			return command{}, fmt.Errorf("down needs exactly one version; %s", usageText)
		}
		version, err := strconv.Atoi(args[1])
		if err != nil || version < 1 {
			return command{}, fmt.Errorf("invalid version %q", args[1])
		}
		cmd.version = version
	default:
		return command{}, fmt.Errorf("unknown command %q; %s", cmd.name, usageText)
	}
	return cmd, nil
}

func run() error {
	flag.Parse()
	cmd, err := parseCommand(flag.Args())
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	middleware.InitLogger(cfg.Env, os.Stdout)

	ctx := context.Background()
	// schema changes happen only through the command below, never on connect
	db, err := database.ConnectWithOptions(ctx, cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = database.Close(db) }()

	switch cmd.name {
	case "up":
		if err := database.RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("sql migrations: %w", err)
		}
		log.Println("sql migrations applied")
	case "auto":
		cfg.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		log.Println("models auto-migrated")
	case "status":
		status, err := database.GetSchemaStatus(ctx, db, cfg)
		if err != nil {
			return fmt.Errorf("schema status: %w", err)
		}
		log.Printf("mode=%s env=%s sql=%t auto=%t applied=%v pending=%d",
			status.Mode, status.Environment, status.WillRunSQL, status.WillRunAutoMigrate,
			status.AppliedVersions, len(status.PendingMigrations))
		for _, m := range status.PendingMigrations {
			log.Printf("pending %s", m.String())
		}
	case "down":
		if err := database.RollbackMigration(ctx, db, cmd.version); err != nil {
			return fmt.Errorf("rollback %d: %w", cmd.version, err)
		}
		log.Printf("rolled back migration %06d", cmd.version)
	}
	return nil
}
