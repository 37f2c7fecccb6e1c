package fetch

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"govharvest/internal/config"
	"govharvest/internal/errlog"
)

// Fetcher downloads the metadata file and the PDF of each case. Court
// documents can be large, so the client carries no timeout ceiling.
type Fetcher struct {
	BaseURL    string
	Collection string
	Layout     config.Layout
	Client     *http.Client
	Errors     *ErrorMap
	Errlog     *errlog.Logger
}

func NewFetcher(cfg *config.Config, layout config.Layout, errs *errlog.Logger) *Fetcher {
	return &Fetcher{
		BaseURL:    cfg.Search.BaseURL,
		Collection: cfg.Search.Collection,
		Layout:     layout,
		Client:     &http.Client{},
		Errors:     NewErrorMap(),
		Errlog:     errs,
	}
}

// FetchCase downloads mods.xml and the PDF for one "package/granule" id.
// Existing targets are skipped, which makes reruns idempotent. Failures
// land in the shared error map; in retry mode a confirmed success
// removes the entry.
func (f *Fetcher) FetchCase(caseID string, retry bool) {
	if caseID == "" {
		return
	}
	parts := strings.SplitN(caseID, "/", 2)
	if len(parts) != 2 {
		f.Errors.Set(caseID, "malformed case id")
		return
	}
	packageID, granuleID := parts[0], parts[1]

	// filename = {court_code}-{case_number}-{sequence_number}
	filename := strings.Replace(granuleID, f.Collection+"-", "", 1)
	granuleParts := strings.Split(granuleID, "-")
	if len(granuleParts) < 2 {
		f.Errors.Set(caseID, "malformed granule id")
		return
	}
	court := granuleParts[1]

	for _, kind := range []string{"xml", "pdf"} {
		var fileURL string
		switch kind {
		case "xml":
			fileURL = f.BaseURL + "metadata/granule/" + caseID + "/mods.xml"
		case "pdf":
			fileURL = f.BaseURL + "content/pkg/" + packageID + "/pdf/" + granuleID + ".pdf"
		}

		dir := f.Layout.KindDir(court, kind)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			f.Errors.Set(caseID, err.Error())
			continue
		}
		path := filepath.Join(dir, filename+"."+kind)
		if _, err := os.Stat(path); err == nil {
			continue
		}

		if err := f.download(fileURL, path); err != nil {
			f.Errors.Set(caseID, err.Error())
			continue
		}
		if retry {
			f.Errors.Remove(caseID)
		}
		log.Debug().Str("file", filename+"."+kind).Msg("downloaded")
	}
}

// statusError keeps the bare status code as the logged detail.
type statusError int

func (e statusError) Error() string { return strconv.Itoa(int(e)) }

func (f *Fetcher) download(fileURL, path string) error {
	resp, err := f.Client.Get(fileURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp.StatusCode)
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(path)
		return err
	}
	return out.Close()
}

// FetchAll pools the downloads, runs one retry pass over the failures
// and persists whatever still failed to the download log before
// clearing the map.
func (f *Fetcher) FetchAll(caseIDs []string, workers int) error {
	f.pool(caseIDs, workers, false)

	if f.Errors.Len() > 0 {
		retryIDs := f.Errors.Keys()
		log.Info().Int("failed", len(retryIDs)).Msg("retrying failed downloads")
		f.pool(retryIDs, workers, true)

		remaining := f.Errors.Items()
		if len(remaining) > 0 {
			rows := make([][]string, 0, len(remaining))
			for _, id := range f.Errors.Keys() {
				rows = append(rows, []string{id, remaining[id]})
			}
			if err := f.Errlog.Append("download-log", rows...); err != nil {
				return fmt.Errorf("writing download log: %w", err)
			}
			log.Warn().Int("failed", len(remaining)).Msg("downloads still failing, logged")
		}
		f.Errors.Clear()
	}
	return nil
}

func (f *Fetcher) pool(caseIDs []string, workers int, retry bool) {
	if workers < 1 {
		workers = 1
	}
	jobs := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				f.FetchCase(id, retry)
			}
		}()
	}
	for _, id := range caseIDs {
		jobs <- id
	}
	close(jobs)
	wg.Wait()
}
