package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"govharvest/internal/models"
)

// tagRule maps one descriptive-metadata tag to a serialized field.
// "main" rules search the whole document; "related" rules scope to the
// related-item element carrying the case access id.
type tagRule struct {
	section string
	tag     string
	field   string
}

var tagRules = []tagRule{
	{"main", "docclass", "doc_class"},
	{"main", "category", "category"},
	{"main", "collectioncode", "collection"},
	{"main", "courttype", "court_type"},
	{"main", "courtcode", "court_code"},
	{"main", "courtcircuit", "court_circuit"},
	{"main", "courtstate", "court_state"},
	{"main", "casenumber", "case_number"},
	{"main", "caseoffice", "case_office"},
	{"main", "branch", "branch"},
	{"main", "cause", "cause"},
	{"main", "naturesuit", "nature_of_suit"},
	{"main", "naturesuitcode", "nature_of_suit_code"},
	{"main", "casetype", "case_type"},
	{"main", "recordcreationdate", "date_created"},
	{"main", "recordchangedate", "date_changed"},
	{"main", "dateingested", "date_ingested"},
	{"main", "languageterm", "language_term"},
	{"main", "party", "party"},
	{"main", "identifier", "preferred_citation"},
	{"related", "url", "url"},
	{"related", "accessid", "id"},
	{"related", "state", "state"},
	{"related", "title", "case_name"},
	{"related", "dockettext", "docket_text"},
	{"related", "dateissued", "date_issued"},
	{"related", "partnumber", "part_number"},
}

type TagStatus int

const (
	TagFound TagStatus = iota
	TagMissing
	TagMalformed
)

// TagResult reports how one rule fared, so the serializer can log
// malformed metadata without aborting the record.
type TagResult struct {
	Tag    string
	Field  string
	Status TagStatus
	Detail string
}

// Extractor applies the tag rules to a parsed mods.xml document.
type Extractor struct {
	Collection string
}

// Apply fills rec from doc. Absent tags leave their field empty; for
// repeated tags the last occurrence wins, except parties which merge
// into a role map keeping first-seen order.
func (e *Extractor) Apply(doc *goquery.Document, accessID string, rec *models.CaseRecord) []TagResult {
	results := make([]TagResult, 0, len(tagRules))
	for _, rule := range tagRules {
		results = append(results, e.applyRule(doc, accessID, rec, rule))
	}
	return results
}

func (e *Extractor) applyRule(doc *goquery.Document, accessID string, rec *models.CaseRecord, rule tagRule) TagResult {
	res := TagResult{Tag: rule.tag, Field: rule.field, Status: TagFound}

	scope := doc.Selection
	if rule.section == "related" {
		scope = doc.Find(fmt.Sprintf(`[id="id-%s-%s"]`, e.Collection, accessID))
		if scope.Length() == 0 {
			res.Status = TagMalformed
			res.Detail = fmt.Sprintf("related item id-%s-%s not found", e.Collection, accessID)
			return res
		}
	}

	var sel *goquery.Selection
	if rule.tag == "identifier" {
		// Only the identifier typed "preferred citation" is wanted.
		sel = scope.Find(`identifier[type="preferred citation"]`)
	} else {
		sel = scope.Find(rule.tag)
	}

	if rule.field != "party" {
		rec.SetField(rule.field, "")
	}
	if sel.Length() == 0 {
		res.Status = TagMissing
		return res
	}

	sel.Each(func(_ int, s *goquery.Selection) {
		switch s.AttrOr("displaylabel", "") {
		case "PDF rendition":
			rec.PDFURL = s.Text()
		case "Content Detail":
			rec.URL = s.Text()
		default:
			if rule.tag == "party" {
				role, okRole := s.Attr("role")
				fullname, okName := s.Attr("fullname")
				if !okRole || !okName {
					res.Status = TagMalformed
					res.Detail = "party without role or fullname"
					return
				}
				rec.AddParty(normalizeRole(role), fullname)
				return
			}
			rec.SetField(rule.field, s.Text())
		}
	})
	return res
}

// normalizeRole lowercases a party role and joins its words with
// underscores, treating hyphens as word breaks.
func normalizeRole(role string) string {
	role = strings.ToLower(role)
	role = strings.ReplaceAll(role, "-", " ")
	return strings.ReplaceAll(role, " ", "_")
}
