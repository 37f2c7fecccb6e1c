package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"govharvest/internal/daterange"
	"govharvest/internal/models"
	"govharvest/internal/render"
)

// Sealer drives the scraper over every window of the date range and
// seals the merged result set into a provenance-stamped snapshot.
type Sealer struct {
	Scraper     *Scraper
	Factory     render.Factory
	Workers     int
	InitialDate string
	FinalDate   string
	WindowDays  int
	Direction   string
}

func (s *Sealer) Seal(ctx context.Context) (*models.ResultSnapshot, error) {
	start, err := daterange.Parse(s.InitialDate)
	if err != nil {
		return nil, fmt.Errorf("parsing initial date: %w", err)
	}
	end, err := daterange.Parse(s.FinalDate)
	if err != nil {
		return nil, fmt.Errorf("parsing final date: %w", err)
	}
	windows := daterange.Split(s.Direction, start, end, s.WindowDays)

	workers := s.Workers
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan daterange.Window)
	results := make(chan map[string][]models.LinkRecord)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := s.Factory()
			if err != nil {
				log.Error().Err(err).Msg("renderer not built, worker idle")
				for range jobs {
				}
				return
			}
			for w := range jobs {
				pages, err := s.Scraper.ScrapeWindow(ctx, r, w)
				if err != nil {
					log.Error().Err(err).
						Str("window", daterange.Format(w.Start)+"-to-"+daterange.Format(w.End)).
						Msg("window failed")
					continue
				}
				results <- pages
			}
		}()
	}

	go func() {
		for _, w := range windows {
			select {
			case jobs <- w:
			case <-ctx.Done():
				close(jobs)
				wg.Wait()
				close(results)
				return
			}
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	merged := make(map[string][]models.LinkRecord)
	total := 0
	for pages := range results {
		for key, links := range pages {
			merged[key] = links
			total += len(links)
		}
	}

	snap := &models.ResultSnapshot{
		Pages:       merged,
		InitialDate: s.InitialDate,
		FinalDate:   s.FinalDate,
		UpdateDate:  time.Now().Format("2006-01-02"),
		TotalCases:  total,
	}
	log.Info().
		Int("windows", len(windows)).
		Int("total_cases", total).
		Msg("results sealed")
	return snap, ctx.Err()
}

// WriteSnapshot persists the snapshot, overwriting any previous run with
// the same search details.
func WriteSnapshot(path string, snap *models.ResultSnapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating snapshot dir: %w", err)
	}
	data, err := json.MarshalIndent(snap, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// CaseIDs re-reads a sealed snapshot and yields "package/granule" ids in
// key order. A missing snapshot means the scrape phase never ran, which
// is a hard error.
func CaseIDs(snapshotPath string) ([]string, error) {
	data, err := os.ReadFile(snapshotPath)
	if err != nil {
		return nil, fmt.Errorf("%s is not a file or directory: %w", snapshotPath, err)
	}
	var snap models.ResultSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", snapshotPath, err)
	}

	keys := make([]string, 0, len(snap.Pages))
	for key := range snap.Pages {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var ids []string
	for _, key := range keys {
		for _, link := range snap.Pages[key] {
			ids = append(ids, strings.Replace(link.URL, "/app/details/", "", 1))
		}
	}
	return ids, nil
}
