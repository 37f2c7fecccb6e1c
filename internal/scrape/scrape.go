package scrape

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"govharvest/internal/daterange"
	"govharvest/internal/models"
	"govharvest/internal/render"
)

// titleRe splits the share title "<num> - <name>".
var titleRe = regexp.MustCompile(`^(.*?) - (.*)`)

// Scraper walks the paginated results of one search window.
type Scraper struct {
	BaseURL    string
	Collection string
	Category   string
	PageSize   int
	PageOffset int
	ResultCap  int
}

// CompileURL builds the encoded search URL for one window and page offset.
func (s *Scraper) CompileURL(startDate, endDate string, page int) string {
	return fmt.Sprintf(`%sapp/search/%%7B"query"%%3A"collection%%3A(%s)%%20AND%%20publishdate%%3Arange(%s%%2C%s)%%20AND%%20naturesuit%%3A(%s)"%%2C"offset"%%3A%d%%2C"pageSize"%%3A"%d"%%7D`,
		s.BaseURL, s.Collection, startDate, endDate, s.Category, page, s.PageSize)
}

// ScrapeWindow renders every results page of one window and returns the
// links keyed by "{start}-to-{end}_{page}" with 1-based page numbers.
func (s *Scraper) ScrapeWindow(ctx context.Context, r render.Renderer, w daterange.Window) (map[string][]models.LinkRecord, error) {
	startDate := daterange.Format(w.Start)
	endDate := daterange.Format(w.End)

	doc, err := s.renderPage(ctx, r, startDate, endDate, s.PageOffset)
	if err != nil {
		return nil, err
	}

	records := 0
	if txt := doc.Find("#recordCountId").Text(); txt != "" {
		cleaned := strings.ReplaceAll(strings.ReplaceAll(txt, " Records", ""), ",", "")
		if n, err := strconv.Atoi(strings.TrimSpace(cleaned)); err == nil {
			records = n
		}
	}

	// The last numbered page sits just before the "next" control. Past
	// the service ceiling only result_cap/page_size pages are reachable;
	// the rest of the window is accepted loss.
	maxPage := 0
	if next := doc.Find("li.next").First(); next.Length() > 0 {
		lastPage := strings.TrimSpace(next.PrevFiltered("li").Find("a").Text())
		if n, err := strconv.Atoi(lastPage); err == nil {
			if records <= s.ResultCap {
				maxPage = n
			} else {
				maxPage = s.ResultCap / s.PageSize
			}
		}
	}

	pages := make(map[string][]models.LinkRecord)
	pages[pageKey(startDate, endDate, s.PageOffset+1)] = findLinks(doc)

	for page := 1; page < maxPage; page++ {
		doc, err := s.renderPage(ctx, r, startDate, endDate, page)
		if err != nil {
			return nil, err
		}
		pages[pageKey(startDate, endDate, page+1)] = findLinks(doc)
	}

	log.Debug().
		Str("window", startDate+"-to-"+endDate).
		Int("records", records).
		Int("pages", len(pages)).
		Msg("window scraped")
	return pages, nil
}

func (s *Scraper) renderPage(ctx context.Context, r render.Renderer, startDate, endDate string, page int) (*goquery.Document, error) {
	body, err := r.Render(ctx, s.CompileURL(startDate, endDate, page))
	if err != nil {
		return nil, fmt.Errorf("rendering window %s-to-%s page %d: %w", startDate, endDate, page, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing window %s-to-%s page %d: %w", startDate, endDate, page, err)
	}
	return doc, nil
}

func pageKey(startDate, endDate string, page int) string {
	return fmt.Sprintf("%s-to-%s_%d", startDate, endDate, page)
}

// findLinks collects the share anchors of the results page. An empty
// page yields an empty, non-nil slice so the snapshot keeps the key.
func findLinks(doc *goquery.Document) []models.LinkRecord {
	links := make([]models.LinkRecord, 0)
	doc.Find("a.displayShare").Each(func(_ int, sel *goquery.Selection) {
		m := titleRe.FindStringSubmatch(sel.AttrOr("addthis:title", ""))
		if m == nil {
			return
		}
		links = append(links, models.LinkRecord{
			Num:  m[1],
			Name: m[2],
			URL:  sel.AttrOr("addthis:url", ""),
		})
	})
	return links
}
