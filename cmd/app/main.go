package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/promptdeck/internal"
	pkgconfig "github.com/starford/promptdeck/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	var overrides []func(*internal.Config)
	if root := cmd.String("root"); root != "" {
		overrides = append(overrides, func(c *internal.Config) { c.Storage.Root = root })
	}

	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(configPath, cfg, overrides...); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func options(cmd *cli.Command) ([]internal.Option, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, opts...); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

func reindex(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	report, err := internal.Reindex(ctx, opts...)
	if err != nil {
		return fmt.Errorf("reindex error: %w", err)
	}
	fmt.Printf("added %d, removed %d, refreshed %d, reassigned %d\n",
		report.Added, report.Removed, report.Refreshed, report.Reassigned)
	return nil
}

func flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to config file",
			DefaultText: "config/config.yaml",
			Value:       "config/config.yaml",
			Sources:     cli.EnvVars("APP_CONFIG_FILE"),
		},
		&cli.StringFlag{
			Name:    "root",
			Usage:   "Data directory (overrides storage.root)",
			Sources: cli.EnvVars("PROMPTDECK_ROOT"),
		},
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "promptdeck",
		Usage:   "Prompt library with Markdown storage, fuzzy search and an MCP bridge",
		Version: version,
		Action:  serve,
		Flags:   flags(),
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, SSE stream and file watcher",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the prompt tools over MCP on stdin/stdout",
				Action: mcp,
			},
			{
				Name:   "reindex",
				Usage:  "Reconcile the index with the prompts directory and exit",
				Action: reindex,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
