package scrape

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"govharvest/internal/daterange"
	"govharvest/internal/render"
)

type fakeRenderer struct {
	pages map[string]string
}

func (f *fakeRenderer) Render(_ context.Context, pageURL string) (string, error) {
	return f.pages[pageURL], nil
}

func testScraper() *Scraper {
	return &Scraper{
		BaseURL:    "https://www.govinfo.gov/",
		Collection: "USCOURTS",
		Category:   "Patent",
		PageSize:   100,
		ResultCap:  10000,
	}
}

func resultsPage(count string, lastPage int, links ...[2]string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	if count != "" {
		fmt.Fprintf(&b, `<span id="recordCountId">%s Records</span>`, count)
	}
	if lastPage > 0 {
		b.WriteString("<ul>")
		for i := 1; i <= lastPage; i++ {
			fmt.Fprintf(&b, "<li><a>%d</a></li>", i)
		}
		b.WriteString(`<li class="next"><a>Next</a></li></ul>`)
	}
	for _, l := range links {
		fmt.Fprintf(&b, `<a class="displayShare" addthis:title="%s" addthis:url="%s">Share</a>`, l[0], l[1])
	}
	b.WriteString("</body></html>")
	return b.String()
}

func window(t *testing.T, start, end string) daterange.Window {
	t.Helper()
	s, err := daterange.Parse(start)
	if err != nil {
		t.Fatal(err)
	}
	e, err := daterange.Parse(end)
	if err != nil {
		t.Fatal(err)
	}
	return daterange.Window{Start: s, End: e}
}

func TestCompileURL(t *testing.T) {
	s := testScraper()
	got := s.CompileURL("2020-01-01", "2020-12-31", 0)
	for _, part := range []string{
		"https://www.govinfo.gov/app/search/",
		"collection%3A(USCOURTS)",
		"publishdate%3Arange(2020-01-01%2C2020-12-31)",
		"naturesuit%3A(Patent)",
		`"offset"%3A0`,
		`"pageSize"%3A"100"`,
	} {
		if !strings.Contains(got, part) {
			t.Errorf("URL missing %q:\n%s", part, got)
		}
	}
}

func TestScrapeWindowPaginates(t *testing.T) {
	s := testScraper()
	w := window(t, "2020-01-01", "2020-12-31")

	r := &fakeRenderer{pages: map[string]string{
		s.CompileURL("2020-01-01", "2020-12-31", 0): resultsPage("250", 3,
			[2]string{"1 - Smith v. Jones", "/app/details/USCOURTS-mad-1_18-cv-10568/USCOURTS-mad-1_18-cv-10568-1"},
			[2]string{"2 - Doe v. Roe", "/app/details/USCOURTS-ca9-06-55380/USCOURTS-ca9-06-55380-0"},
		),
		s.CompileURL("2020-01-01", "2020-12-31", 1): resultsPage("250", 3,
			[2]string{"101 - Foo v. Bar", "/app/details/USCOURTS-nysd-1_05-cv-01234/USCOURTS-nysd-1_05-cv-01234-2"},
		),
		s.CompileURL("2020-01-01", "2020-12-31", 2): resultsPage("250", 3),
	}}

	pages, err := s.ScrapeWindow(context.Background(), r, w)
	if err != nil {
		t.Fatalf("ScrapeWindow: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("got %d pages, want 3: %v", len(pages), pages)
	}

	first := pages["2020-01-01-to-2020-12-31_1"]
	if len(first) != 2 {
		t.Fatalf("first page has %d links, want 2", len(first))
	}
	if first[0].Num != "1" || first[0].Name != "Smith v. Jones" {
		t.Errorf("unexpected first link: %+v", first[0])
	}
	if first[0].URL != "/app/details/USCOURTS-mad-1_18-cv-10568/USCOURTS-mad-1_18-cv-10568-1" {
		t.Errorf("unexpected first link URL: %s", first[0].URL)
	}
	if len(pages["2020-01-01-to-2020-12-31_2"]) != 1 {
		t.Errorf("second page: %v", pages["2020-01-01-to-2020-12-31_2"])
	}
	third, ok := pages["2020-01-01-to-2020-12-31_3"]
	if !ok || third == nil || len(third) != 0 {
		t.Errorf("empty third page should keep its key with no links: %v", third)
	}
}

func TestScrapeWindowCapsPages(t *testing.T) {
	s := testScraper()
	s.ResultCap = 200
	w := window(t, "2020-01-01", "2020-12-31")

	pages := map[string]string{
		s.CompileURL("2020-01-01", "2020-12-31", 0): resultsPage("20500", 205),
	}
	// Only the capped offsets may be requested.
	pages[s.CompileURL("2020-01-01", "2020-12-31", 1)] = resultsPage("20500", 205)

	got, err := s.ScrapeWindow(context.Background(), &fakeRenderer{pages: pages}, w)
	if err != nil {
		t.Fatalf("ScrapeWindow: %v", err)
	}
	// 20500 records exceed the cap of 200, so 200/100 = 2 pages total.
	if len(got) != 2 {
		t.Errorf("got %d pages, want 2: %v", len(got), got)
	}
}

func TestScrapeWindowEmptyResults(t *testing.T) {
	s := testScraper()
	w := window(t, "1991-06-01", "1992-05-31")

	got, err := s.ScrapeWindow(context.Background(), &fakeRenderer{pages: map[string]string{}}, w)
	if err != nil {
		t.Fatalf("ScrapeWindow: %v", err)
	}
	links, ok := got["1991-06-01-to-1992-05-31_1"]
	if !ok {
		t.Fatalf("missing window key: %v", got)
	}
	if links == nil || len(links) != 0 {
		t.Errorf("want empty non-nil slice, got %v", links)
	}
}

func TestSealAndCaseIDs(t *testing.T) {
	s := testScraper()
	sealer := &Sealer{
		Scraper: s,
		Factory: func() (render.Renderer, error) {
			return &fakeRenderer{pages: map[string]string{
				s.CompileURL("2020-01-01", "2020-07-01", 0): resultsPage("1", 0,
					[2]string{"1 - Smith v. Jones", "/app/details/USCOURTS-mad-1_18-cv-10568/USCOURTS-mad-1_18-cv-10568-1"},
				),
			}}, nil
		},
		Workers:     2,
		InitialDate: "2020-01-01",
		FinalDate:   "2020-12-31",
		WindowDays:  182,
		Direction:   "forward",
	}

	snap, err := sealer.Seal(context.Background())
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if snap.TotalCases != 1 {
		t.Errorf("total_cases = %d, want 1", snap.TotalCases)
	}
	if len(snap.Pages) != 2 {
		t.Errorf("got %d page keys, want 2: %v", len(snap.Pages), snap.Pages)
	}
	if snap.InitialDate != "2020-01-01" || snap.FinalDate != "2020-12-31" || snap.UpdateDate == "" {
		t.Errorf("provenance not stamped: %+v", snap)
	}

	path := filepath.Join(t.TempDir(), "run.json")
	if err := WriteSnapshot(path, snap); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	ids, err := CaseIDs(path)
	if err != nil {
		t.Fatalf("CaseIDs: %v", err)
	}
	if len(ids) != 1 || ids[0] != "USCOURTS-mad-1_18-cv-10568/USCOURTS-mad-1_18-cv-10568-1" {
		t.Errorf("unexpected ids: %v", ids)
	}
}

func TestSealEmptyWindows(t *testing.T) {
	s := testScraper()
	sealer := &Sealer{
		Scraper:     s,
		Factory:     func() (render.Renderer, error) { return &fakeRenderer{pages: map[string]string{}}, nil },
		Workers:     2,
		InitialDate: "2019-01-01",
		FinalDate:   "2020-12-31",
		WindowDays:  365,
		Direction:   "backward",
	}
	snap, err := sealer.Seal(context.Background())
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if snap.TotalCases != 0 {
		t.Errorf("total_cases = %d, want 0", snap.TotalCases)
	}
	if len(snap.Pages) != 2 {
		t.Errorf("got %d page keys, want 2", len(snap.Pages))
	}
	for key, links := range snap.Pages {
		if links == nil {
			t.Errorf("key %s has nil links", key)
		}
	}
}

func TestCaseIDsMissingSnapshot(t *testing.T) {
	if _, err := CaseIDs(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing snapshot")
	}
}
