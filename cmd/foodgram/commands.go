package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sakif/foodgram/internal/config"
	"github.com/sakif/foodgram/internal/model"
	sqliteRepo "github.com/sakif/foodgram/internal/repository/sqlite"
	"github.com/sakif/foodgram/internal/server"
	"github.com/sakif/foodgram/internal/service"
)

// app carries what every subcommand needs after the persistent pre-run.
type app struct {
	configPath string
	cfg        config.Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "foodgram",
		Short:        "Recipe sharing API server and catalog tools",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = cfg.NewLogger(cmd.ErrOrStderr())
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "",
		"path to a YAML config file (default $"+config.EnvConfigPath+")")

	root.AddCommand(
		a.serveCmd(),
		a.loadIngredientsCmd(),
		a.createTagCmd(),
	)
	return root
}

// ensureDBDir creates the database's parent directory (like `mkdir -p`).
func (a *app) ensureDBDir() error {
	dir := filepath.Dir(a.cfg.DBPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating database directory %s: %w", dir, err)
	}
	return nil
}

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API until SIGINT or SIGTERM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ensureDBDir(); err != nil {
				return err
			}

			srv, err := server.New(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return err
			}
			// Start blocks until shutdown and closes the server on return.
			return srv.Start()
		},
	}
}

// loadIngredientsCmd imports a JSON array of
// {"name": "...", "measurement_unit": "..."} objects. Rows that already
// exist are skipped, so the command can be re-run safely.
func (a *app) loadIngredientsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load-ingredients <file.json>",
		Short: "Import ingredients from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			var ingredients []model.Ingredient
			if err := json.Unmarshal(data, &ingredients); err != nil {
				return fmt.Errorf("parsing %s: %w", args[0], err)
			}

			return a.withCatalog(cmd.Context(), func(ctx context.Context, catalog *service.CatalogService) error {
				res, err := catalog.ImportIngredients(ctx, ingredients)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %d, skipped %d existing\n", res.Created, res.Skipped)
				return nil
			})
		},
	}
}

func (a *app) createTagCmd() *cobra.Command {
	var name, color, slug string

	cmd := &cobra.Command{
		Use:   "create-tag",
		Short: "Add a recipe tag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCatalog(cmd.Context(), func(ctx context.Context, catalog *service.CatalogService) error {
				tag, err := catalog.CreateTag(ctx, name, color, slug)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created tag %d %s (%s, %s)\n", tag.ID, tag.Name, tag.Slug, tag.Color)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&color, "color", "", "hex color, e.g. #E26C2D")
	cmd.Flags().StringVar(&slug, "slug", "", "URL slug used by the ?tags= filter")
	for _, f := range []string{"name", "color", "slug"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func (a *app) withCatalog(ctx context.Context, fn func(context.Context, *service.CatalogService) error) error {
	if err := a.ensureDBDir(); err != nil {
		return err
	}
	db, err := sqliteRepo.New(a.cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, service.NewCatalogService(db, db, a.logger))
}
