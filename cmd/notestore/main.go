package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/notestore/internal"
	pkgconfig "github.com/starford/notestore/pkg/config"
)

var version = "dev"

func loadOptions(cmd *cli.Command) ([]internal.Option, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cmd.Bool("start-from-scratch") {
		cfg.Account.StartFromScratch = true
	}
	if cmd.Bool("override-lock") {
		cfg.Storage.OverrideLock = true
	}
	return []internal.Option{internal.WithConfig(cfg)}, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func stats(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.Stats(ctx, os.Stdout, opts...)
}

func search(ctx context.Context, cmd *cli.Command) error {
	query := cmd.Args().First()
	if query == "" {
		return fmt.Errorf("search: query argument is required")
	}
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.Search(ctx, os.Stdout, query, int(cmd.Int("limit")), opts...)
}

func accounts(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.Accounts(ctx, os.Stdout, opts...)
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, version, opts...)
}

func main() {
	cmd := &cli.Command{
		Name:    "notestore",
		Usage:   "Local notes data store with full-text search",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.BoolFlag{
				Name:  "start-from-scratch",
				Usage: "Wipe the account's storage before opening it",
			},
			&cli.BoolFlag{
				Name:    "override-lock",
				Usage:   "Open the storage even when another process holds its lock",
				Sources: cli.EnvVars("STORAGE_OVERRIDE_LOCK"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the read-only inspection API",
				Action: serve,
			},
			{
				Name:   "stats",
				Usage:  "Print entity counts of the configured account",
				Action: stats,
			},
			{
				Name:      "search",
				Usage:     "Search notes with the note search grammar",
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of notes",
						Value: 50,
					},
				},
				Action: search,
			},
			{
				Name:   "accounts",
				Usage:  "List accounts under the storage root",
				Action: accounts,
			},
			{
				Name:   "mcp",
				Usage:  "Serve read-only MCP tools over stdio",
				Action: mcp,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
