package extract

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"govharvest/internal/config"
	"govharvest/internal/errlog"
	"govharvest/internal/models"
)

const modsFixture = `<mods>
<docclass>USCOURTS</docclass>
<category>Judicial Publications</category>
<collectioncode>USCOURTS</collectioncode>
<courttype>District</courttype>
<courtcode>mad</courtcode>
<courtcircuit>1</courtcircuit>
<courtstate>MA</courtstate>
<casenumber>1:18-cv-10568</casenumber>
<caseoffice>Boston</caseoffice>
<party role="plaintiff" fullname="John Smith"></party>
<party role="plaintiff" fullname="John Smith"></party>
<party role="Defendant-Appellee" fullname="Jane Jones"></party>
<identifier type="uri">https://example.gov/ignored</identifier>
<identifier type="preferred citation">1:18-cv-10568;18-10568</identifier>
<relateditem id="id-USCOURTS-mad-1_18-cv-10568-1">
<url displaylabel="PDF rendition">https://example.gov/pdf</url>
<url displaylabel="Content Detail">https://example.gov/detail</url>
<accessid>USCOURTS-mad-1_18-cv-10568-1</accessid>
<title>Smith v. Jones</title>
<dateissued>2018-05-01</dateissued>
<dockettext>Memorandum and Order</dockettext>
</relateditem>
</mods>`

func parseFixture(t *testing.T) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(modsFixture))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestApply(t *testing.T) {
	e := &Extractor{Collection: "USCOURTS"}
	rec := &models.CaseRecord{}
	results := e.Apply(parseFixture(t), "mad-1_18-cv-10568-1", rec)

	if rec.CourtType != "District" {
		t.Errorf("court_type = %q", rec.CourtType)
	}
	if rec.CaseNumber != "1:18-cv-10568" {
		t.Errorf("case_number = %q", rec.CaseNumber)
	}
	if rec.PreferredCitation != "1:18-cv-10568;18-10568" {
		t.Errorf("preferred_citation = %q, untyped identifier must be skipped", rec.PreferredCitation)
	}
	if rec.PDFURL != "https://example.gov/pdf" || rec.URL != "https://example.gov/detail" {
		t.Errorf("display label routing: pdf_url=%q url=%q", rec.PDFURL, rec.URL)
	}
	if rec.ID != "USCOURTS-mad-1_18-cv-10568-1" {
		t.Errorf("id = %q", rec.ID)
	}
	if rec.CaseName != "Smith v. Jones" {
		t.Errorf("case_name = %q", rec.CaseName)
	}
	if rec.DocketText != "Memorandum and Order" || rec.DateIssued != "2018-05-01" {
		t.Errorf("docket_text=%q date_issued=%q", rec.DocketText, rec.DateIssued)
	}

	wantParty := map[string][]string{
		"plaintiff":          {"John Smith"},
		"defendant_appellee": {"Jane Jones"},
	}
	if !reflect.DeepEqual(rec.Party, wantParty) {
		t.Errorf("party = %v, want %v", rec.Party, wantParty)
	}

	// Absent tags leave empty fields and report missing, not an error.
	if rec.State != "" || rec.PartNumber != "" {
		t.Errorf("absent tags must stay empty: state=%q part_number=%q", rec.State, rec.PartNumber)
	}
	missing := map[string]bool{}
	for _, res := range results {
		if res.Status == TagMissing {
			missing[res.Field] = true
		}
		if res.Status == TagMalformed {
			t.Errorf("unexpected malformed result: %+v", res)
		}
	}
	if !missing["state"] || !missing["part_number"] {
		t.Errorf("missing tags not reported: %v", missing)
	}
}

func TestApplyUnknownRelatedItem(t *testing.T) {
	e := &Extractor{Collection: "USCOURTS"}
	rec := &models.CaseRecord{}
	results := e.Apply(parseFixture(t), "wrong-access-id", rec)

	malformed := 0
	for _, res := range results {
		if res.Status == TagMalformed {
			malformed++
		}
	}
	if malformed == 0 {
		t.Error("related rules should report malformed scope")
	}
	if rec.CourtType != "District" {
		t.Error("main rules must still apply")
	}
}

func TestSerializeFileWithoutPDF(t *testing.T) {
	cfg := config.Default()
	cfg.BaseDir = t.TempDir()
	cfg.OCR.Enabled = false
	cfg.Workers = 1
	layout := config.NewLayout(cfg)

	xmlDir := layout.KindDir("mad", "xml")
	if err := os.MkdirAll(xmlDir, 0o755); err != nil {
		t.Fatal(err)
	}
	xmlPath := filepath.Join(xmlDir, "mad-1_18-cv-10568-1.xml")
	if err := os.WriteFile(xmlPath, []byte(modsFixture), 0o644); err != nil {
		t.Fatal(err)
	}

	errs := errlog.New(layout.ErrorsDir())
	sink := &captureSink{}
	s := NewSerializer(cfg, layout, errs, sink)

	if err := s.SerializeFile(context.Background(), xmlPath); err != nil {
		t.Fatalf("SerializeFile: %v", err)
	}

	jsonPath := filepath.Join(layout.KindDir("mad", "json"), "mad-1_18-cv-10568-1.json")
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("record not written: %v", err)
	}
	var rec models.CaseRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatal(err)
	}
	if !rec.OCR {
		t.Error("textless case must be flagged ocr")
	}
	if rec.PlainText != "" {
		t.Errorf("plain_text = %q, want empty with OCR disabled", rec.PlainText)
	}
	if rec.Blocked {
		t.Error("blocked must be false")
	}
	if rec.CaseName != "Smith v. Jones" {
		t.Errorf("metadata not extracted: case_name=%q", rec.CaseName)
	}

	rows, err := errs.Rows("process-log")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0][1] != "Not processed" {
		t.Errorf("process log: %v", rows)
	}

	if len(sink.saved) != 1 || sink.saved[0] != "mad-1_18-cv-10568-1" {
		t.Errorf("sink not called: %v", sink.saved)
	}
}

type captureSink struct {
	saved []string
}

func (c *captureSink) SaveCase(_ context.Context, filename string, _ *models.CaseRecord) error {
	c.saved = append(c.saved, filename)
	return nil
}
