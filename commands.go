package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sjsage522/euromillionsworker/config"
	"sjsage522/euromillionsworker/internal/models"
	"sjsage522/euromillionsworker/logger"
	"sjsage522/euromillionsworker/services/generator"
	"sjsage522/euromillionsworker/services/publisher"
)

var (
	flagSave bool
	cfg      config.Config
)

// newRootCmd creates the root command; without a subcommand it serves
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "euromillionsworker",
		Short: "Collect EuroMillions results and generate grids",
		Long: `Scrapes the EuroMillions results history, stores every draw and
generates grids biased toward the most drawn numbers and stars.
Runs the HTTP API and the twice-weekly sync by default.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cfg)
		},
	}

	cmd.AddCommand(newServeCmd(), newFetchCmd(), newGenerateCmd())
	return cmd
}

// setup initializes logging and loads the configuration
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.LoadConfig()
	if err != nil {
		return err
	}

	// LoadConfig has read .env, so logging sees its LOG_* values
	logger.Init()
	return cfg.Validate()
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the scheduled sync",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cfg)
		},
	}
}

func newFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Fetch the results history once and store new draws",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runFetch(ctx, cmd.OutOrStdout())
		},
	}
}

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Print grids for the next draw",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), cmd.OutOrStdout(), flagSave)
		},
	}
	cmd.Flags().BoolVar(&flagSave, "save", false, "Store the generated grids")
	return cmd
}

func runFetch(ctx context.Context, out io.Writer) error {
	deps, err := initializeServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	w, err := newWorker(cfg, deps)
	if err != nil {
		return err
	}

	report, err := w.SyncHistory(ctx)
	if err != nil {
		return fmt.Errorf("fetching history: %w", err)
	}

	fmt.Fprintf(out, "History fetched. Processed %d draws.\n", report.Processed)
	return printJSON(out, report)
}

func runGenerate(ctx context.Context, out io.Writer, save bool) error {
	deps, err := initializeServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	grids, err := generator.New(deps.Store, nil).Generate(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("generating grids: %w", err)
	}

	if save {
		grids = saveGrids(ctx, deps.Store, deps.Publisher, grids)
	}
	return printJSON(out, grids)
}

type gridSaver interface {
	SaveGrid(ctx context.Context, grid models.Grid) (models.Grid, error)
}

func saveGrids(ctx context.Context, store gridSaver, pub publisher.Publisher, grids []models.Grid) []models.Grid {
	for i, g := range grids {
		saved, err := store.SaveGrid(ctx, g)
		if err != nil {
			logger.ForStorage().Warn().Err(err).Msg("Failed to save grid")
			continue
		}
		grids[i] = saved
		if data, err := json.Marshal(saved); err == nil {
			if err := pub.Publish(publisher.KeyGrid, data); err != nil {
				logger.ForPublisher().Warn().Err(err).Msg("Failed to publish grid")
			}
		}
	}
	return grids
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
