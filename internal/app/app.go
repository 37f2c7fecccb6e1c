package app

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"govharvest/internal/archive"
	"govharvest/internal/config"
	"govharvest/internal/db"
	"govharvest/internal/errlog"
	"govharvest/internal/extract"
	"govharvest/internal/fetch"
	"govharvest/internal/reconcile"
	"govharvest/internal/render"
	"govharvest/internal/scrape"
)

// App wires one harvest run: every phase shares the same config,
// layout, error logs and optional record store.
type App struct {
	cfg    *config.Config
	layout config.Layout
	errs   *errlog.Logger
	store  *db.Store
}

func New(cfg *config.Config) (*App, error) {
	layout := config.NewLayout(cfg)
	for _, dir := range []string{layout.CategoryDir(), layout.ErrorsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	a := &App{
		cfg:    cfg,
		layout: layout,
		errs:   errlog.New(layout.ErrorsDir()),
	}
	if cfg.DB.Enabled {
		store, err := db.NewStore(cfg.DB)
		if err != nil {
			return nil, err
		}
		a.store = store
	}

	log.Info().
		Str("collection", cfg.Search.Collection).
		Str("category", cfg.Search.Category).
		Str("dates", cfg.Search.InitialDate+".."+cfg.Search.FinalDate).
		Str("run", layout.RunHash).
		Msg("harvest configured")
	return a, nil
}

// Scrape walks the search windows and seals the result snapshot.
func (a *App) Scrape(ctx context.Context) error {
	sealer := &scrape.Sealer{
		Scraper: &scrape.Scraper{
			BaseURL:    a.cfg.Search.BaseURL,
			Collection: a.cfg.Search.Collection,
			Category:   a.cfg.Search.Category,
			PageSize:   a.cfg.Search.PageSize,
			PageOffset: a.cfg.Search.PageOffset,
			ResultCap:  a.cfg.Search.ResultCap,
		},
		Factory: render.NewFactory(a.cfg.Search.Backend, render.Options{
			UserAgent: a.cfg.Search.UserAgent,
			Marker:    a.cfg.Search.ReadyMarker,
			Wait:      a.cfg.RenderWait(),
		}),
		Workers:     a.cfg.Workers,
		InitialDate: a.cfg.Search.InitialDate,
		FinalDate:   a.cfg.Search.FinalDate,
		WindowDays:  a.cfg.Search.WindowDays,
		Direction:   a.cfg.Search.Direction,
	}

	snap, err := sealer.Seal(ctx)
	if err != nil {
		return err
	}
	return scrape.WriteSnapshot(a.layout.SnapshotPath(), snap)
}

// Download fetches metadata and PDFs for every case in the snapshot.
func (a *App) Download(ctx context.Context) error {
	ids, err := scrape.CaseIDs(a.layout.SnapshotPath())
	if err != nil {
		return err
	}
	log.Info().Int("cases", len(ids)).Msg("downloading case files")
	fetcher := fetch.NewFetcher(a.cfg, a.layout, a.errs)
	return fetcher.FetchAll(ids, a.cfg.Workers)
}

// Serialize turns every downloaded metadata file into a case record.
func (a *App) Serialize(ctx context.Context) error {
	ser := a.serializer()
	paths, err := ser.AllXMLPaths()
	if err != nil {
		return err
	}
	log.Info().Int("files", len(paths)).Msg("serializing metadata")
	ser.BulkSerialize(ctx, paths)
	return ctx.Err()
}

// Reconcile closes the xml/json gap and reseals the archive summary.
func (a *App) Reconcile(ctx context.Context) error {
	r := &reconcile.Reconciler{
		Layout:     a.layout,
		Serializer: a.serializer(),
	}
	summary, err := r.Run(ctx)
	if err != nil {
		return err
	}
	if a.store != nil {
		if err := a.store.SaveSummary(ctx, summary); err != nil {
			log.Error().Err(err).Msg("summary not mirrored")
		}
	}
	return nil
}

// Package builds the per-court and bulk tar.gz archives.
func (a *App) Package(ctx context.Context) error {
	p := &archive.Packager{
		Layout:  a.layout,
		Workers: a.cfg.Workers,
	}
	_, err := p.Pack(ctx)
	return err
}

// Run executes the whole pipeline in order.
func (a *App) Run(ctx context.Context) error {
	for _, phase := range []func(context.Context) error{
		a.Scrape, a.Download, a.Serialize, a.Reconcile, a.Package,
	} {
		if err := phase(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) serializer() *extract.Serializer {
	var sink extract.RecordSink
	if a.store != nil {
		sink = a.store
	}
	return extract.NewSerializer(a.cfg, a.layout, a.errs, sink)
}

func (a *App) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}
