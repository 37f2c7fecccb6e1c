package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"govharvest/internal/config"
	"govharvest/internal/daterange"
	"govharvest/internal/extract"
	"govharvest/internal/models"
)

// Reconciler compares the downloaded metadata files against the
// serialized records, re-drives serialization over the gap once, and
// rebuilds the running archive summary.
type Reconciler struct {
	Layout     config.Layout
	Serializer *extract.Serializer
}

// stems collects the file stems of one kind across all courts.
func (r *Reconciler) stems(kind string) (map[string]bool, error) {
	paths, err := filepath.Glob(filepath.Join(r.Layout.CategoryDir(), "*", "*", kind, "*."+kind))
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[strings.TrimSuffix(filepath.Base(p), "."+kind)] = true
	}
	return set, nil
}

// FailedStems returns the metadata stems that have no serialized record
// yet, in sorted order.
func (r *Reconciler) FailedStems() ([]string, map[string]bool, map[string]bool, error) {
	xmlSet, err := r.stems("xml")
	if err != nil {
		return nil, nil, nil, err
	}
	jsonSet, err := r.stems("json")
	if err != nil {
		return nil, nil, nil, err
	}
	var failed []string
	for stem := range xmlSet {
		if !jsonSet[stem] {
			failed = append(failed, stem)
		}
	}
	sort.Strings(failed)
	return failed, xmlSet, jsonSet, nil
}

// Run reconciles to convergence: one serialization re-drive over the
// failed set, one rescan, then the summary rebuild.
func (r *Reconciler) Run(ctx context.Context) (*models.ArchiveSummary, error) {
	failed, xmlSet, jsonSet, err := r.FailedStems()
	if err != nil {
		return nil, err
	}

	if len(failed) > 0 {
		log.Info().Int("failed", len(failed)).Msg("re-driving serialization")
		var paths []string
		for _, stem := range failed {
			matches, err := filepath.Glob(filepath.Join(r.Layout.CategoryDir(), "*", "*", "xml", stem+".xml"))
			if err == nil && len(matches) > 0 {
				paths = append(paths, matches[0])
			}
		}
		r.Serializer.BulkSerialize(ctx, paths)

		if _, xmlSet, jsonSet, err = r.FailedStems(); err != nil {
			return nil, err
		}
	}

	summary, err := r.WriteSummary(xmlSet, jsonSet)
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// WriteSummary merges the scanned stems into info.json. Counts only
// move for unseen case keys, so rebuilding over the same tree is
// idempotent; a case whose record appeared since the last rebuild flips
// has_json and bumps the json total.
func (r *Reconciler) WriteSummary(xmlSet, jsonSet map[string]bool) (*models.ArchiveSummary, error) {
	info := &models.ArchiveSummary{
		DatesCovered: [][2]string{},
		Records:      make(map[string]*models.CourtIndex),
	}
	if data, err := os.ReadFile(r.Layout.InfoPath()); err == nil {
		if err := json.Unmarshal(data, info); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", r.Layout.InfoPath(), err)
		}
	}
	if info.Records == nil {
		info.Records = make(map[string]*models.CourtIndex)
	}

	stems := make([]string, 0, len(xmlSet))
	for stem := range xmlSet {
		stems = append(stems, stem)
	}
	sort.Strings(stems)

	for _, stem := range stems {
		caseKey := r.Layout.Collection + "-" + stem
		abbr := strings.Split(stem, "-")[0]

		court := info.Records[abbr]
		if court == nil {
			court = &models.CourtIndex{Cases: make(map[string]*models.CaseFlags)}
			info.Records[abbr] = court
		}
		if court.Cases == nil {
			court.Cases = make(map[string]*models.CaseFlags)
		}

		flags := court.Cases[caseKey]
		if flags == nil {
			flags = &models.CaseFlags{}
			if jsonSet[stem] {
				flags.HasJSON = true
				info.TotalJSONFiles++
			}
			court.Cases[caseKey] = flags
			court.NumberOfRecords++
			info.TotalCases++
		} else if !flags.HasJSON && jsonSet[stem] {
			flags.HasJSON = true
			info.TotalJSONFiles++
		}
	}

	if err := r.coverDates(info); err != nil {
		return nil, err
	}

	info.Collection = r.Layout.Collection
	info.Category = r.Layout.Category
	info.TimeCreated = time.Now().Format("02/01/2006 15:04:05")

	data, err := json.MarshalIndent(info, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encoding summary: %w", err)
	}
	if err := os.WriteFile(r.Layout.InfoPath(), data, 0o644); err != nil {
		return nil, fmt.Errorf("writing summary: %w", err)
	}
	log.Info().
		Int("total_cases", info.TotalCases).
		Int("total_json_files", info.TotalJSONFiles).
		Msg("archive summary sealed")
	return info, nil
}

// coverDates folds the date ranges of every persisted snapshot into the
// summary, deduplicated and sorted by initial date.
func (r *Reconciler) coverDates(info *models.ArchiveSummary) error {
	snapshots, err := filepath.Glob(filepath.Join(r.Layout.CategoryDir(), "*.json"))
	if err != nil {
		return err
	}
	for _, path := range snapshots {
		if path == r.Layout.InfoPath() {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var snap models.ResultSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			continue
		}
		if snap.InitialDate == "" || snap.FinalDate == "" {
			continue
		}
		pair := [2]string{snap.InitialDate, snap.FinalDate}
		seen := false
		for _, existing := range info.DatesCovered {
			if existing == pair {
				seen = true
				break
			}
		}
		if !seen {
			info.DatesCovered = append(info.DatesCovered, pair)
		}
	}
	sort.Slice(info.DatesCovered, func(i, j int) bool {
		a, errA := daterange.Parse(info.DatesCovered[i][0])
		b, errB := daterange.Parse(info.DatesCovered[j][0])
		if errA != nil || errB != nil {
			return info.DatesCovered[i][0] < info.DatesCovered[j][0]
		}
		return a.Before(b)
	})
	return nil
}
