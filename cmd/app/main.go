package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/lagu/internal"
	pkgconfig "github.com/starford/lagu/pkg/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func loadOptions(cmd *cli.Command) ([]internal.Option, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if v := cmd.String("vault"); v != "" {
		cfg.Vault.Path = v
	}
	if cmd.Bool("allow-bi-links") {
		cfg.Study.AllowBiLinks = true
	}

	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}, nil
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

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, opts...); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "lagu",
		Usage:   "Study a Markdown vault in link order: notes unlock once the notes they link to are read",
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
			&cli.StringFlag{
				Name:    "vault",
				Usage:   "Vault directory (overrides vault.path)",
				Sources: cli.EnvVars("LAGU_VAULT"),
			},
			&cli.BoolFlag{
				Name:    "allow-bi-links",
				Usage:   "Let mutually linked notes unlock each other (overrides study.allow_bi_links)",
				Sources: cli.EnvVars("LAGU_ALLOW_BI_LINKS"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, event stream and vault watcher (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the study tools over MCP stdio",
				Action: serveMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
