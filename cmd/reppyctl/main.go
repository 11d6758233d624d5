package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
	"gorm.io/gorm"

	"reppyroute/internal/app"
	"reppyroute/internal/config"
	"reppyroute/internal/database"
	"reppyroute/internal/domain"
	"reppyroute/internal/idempotency"
	"reppyroute/internal/modules/auth"
	"reppyroute/internal/pkg/logger"
	"reppyroute/internal/storage"
)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:  "reppyctl",
		Usage: "Reppy Route operator tooling",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "database-url", Sources: cli.EnvVars("DATABASE_URL"), Usage: "overrides DATABASE_URL"},
		},
		Commands: []*cli.Command{
			migrateCommand(),
			seedCommand(),
			cleanupCommand(),
			createAdminCommand(),
			statsCommand(),
		},
	}

	if err := root.Run(context.Background(), args); err != nil {
		slog.Error("reppyctl failed", "error", err)
		os.Exit(1)
	}
}

// env holds what every command needs.
type env struct {
	cfg *config.Config
	db  *gorm.DB
	app *app.App
}

func open(ctx context.Context, c *cli.Command) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dsn := c.String("database-url"); dsn != "" {
		cfg.DatabaseURL = dsn
	}
	log := logger.New(cfg.AppEnv, cfg.LogLevel)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}

	a := app.New(app.Deps{
		Config: cfg,
		DB:     db,
		Store:  storage.NewLocalStore(cfg.UploadDir, cfg.UploadURLBase),
		Guard:  idempotency.NewDBGuard(db),
		Logger: log,
	})
	return &env{cfg: cfg, db: db, app: a}, nil
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create or update the database schema",
		Action: func(ctx context.Context, c *cli.Command) error {
			e, err := open(ctx, c)
			if err != nil {
				return err
			}
			fmt.Printf("schema up to date (%s)\n", redactDSN(e.cfg.DatabaseURL))
			return nil
		},
	}
}

func cleanupCommand() *cli.Command {
	return &cli.Command{
		Name:  "cleanup",
		Usage: "Delete old read notifications and expired idempotency keys",
		Action: func(ctx context.Context, c *cli.Command) error {
			e, err := open(ctx, c)
			if err != nil {
				return err
			}
			res, err := e.app.Cleanup.RunOnce(ctx)
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
}

func createAdminCommand() *cli.Command {
	return &cli.Command{
		Name:  "create-admin",
		Usage: "Create an admin account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "password", Required: true, Usage: "at least 8 characters"},
			&cli.StringFlag{Name: "name", Value: "Administrator"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if len(c.String("password")) < 8 {
				return fmt.Errorf("password must be at least 8 characters")
			}
			e, err := open(ctx, c)
			if err != nil {
				return err
			}
			p, err := e.app.Auth.CreateAccount(ctx, auth.NewAccount{
				Email:    c.String("email"),
				Password: c.String("password"),
				FullName: c.String("name"),
				Role:     domain.RoleAdmin,
			})
			if err != nil {
				return err
			}
			fmt.Printf("admin %s created with id %d\n", p.Email, p.ID)
			return nil
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Print platform counters",
		Action: func(ctx context.Context, c *cli.Command) error {
			e, err := open(ctx, c)
			if err != nil {
				return err
			}
			stats, err := e.app.Admin.Stats(ctx)
			if err != nil {
				return err
			}
			return printJSON(stats)
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func redactDSN(dsn string) string {
	if database.IsPostgres(dsn) {
		return "postgres"
	}
	return dsn
}
