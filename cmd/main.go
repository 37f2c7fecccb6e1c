package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"govharvest/internal/app"
	"govharvest/internal/config"
)

var (
	cfgPath        string
	flagInitial    string
	flagFinal      string
	flagCollection string
	flagCategory   string
	verbose        bool
)

func main() {
	root := &cobra.Command{
		Use:           "govharvest",
		Short:         "Harvest court documents and metadata from govinfo.gov",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to the yaml config")
	root.PersistentFlags().StringVar(&flagInitial, "initial-date", "", "harvest from this date (YYYY-MM-DD)")
	root.PersistentFlags().StringVar(&flagFinal, "final-date", "", "harvest up to this date (YYYY-MM-DD)")
	root.PersistentFlags().StringVar(&flagCollection, "collection", "", "collection to harvest")
	root.PersistentFlags().StringVar(&flagCategory, "category", "", "nature of suit to harvest")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "per-case debug logging")

	root.AddCommand(
		phaseCommand("scrape", "Scrape the search results and seal the snapshot",
			(*app.App).Scrape),
		phaseCommand("download", "Download metadata and PDFs for the sealed snapshot",
			(*app.App).Download),
		phaseCommand("serialize", "Serialize downloaded metadata into case records",
			(*app.App).Serialize),
		phaseCommand("reconcile", "Close serialization gaps and reseal the archive summary",
			(*app.App).Reconcile),
		phaseCommand("package", "Package the harvested tree into tar.gz archives",
			(*app.App).Package),
		phaseCommand("run", "Run the whole pipeline",
			(*app.App).Run),
	)

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("harvest failed")
		os.Exit(1)
	}
}

func phaseCommand(name, short string, phase func(*app.App, context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			return phase(a, ctx)
		},
	}
}

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if flagInitial != "" {
		cfg.Search.InitialDate = flagInitial
	}
	if flagFinal != "" {
		cfg.Search.FinalDate = flagFinal
	}
	if flagCollection != "" {
		cfg.Search.Collection = flagCollection
	}
	if flagCategory != "" {
		cfg.Search.Category = flagCategory
	}
	cfg.Normalize()
	return cfg, nil
}

func setupLogging() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}
