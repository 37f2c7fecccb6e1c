package models

// LinkRecord is one search result: its ordinal on the results page, the
// case name and the relative detail URL.
type LinkRecord struct {
	Num  string `json:"num"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ResultSnapshot seals one scrape run. Pages is keyed by
// "{start}-to-{end}_{page}" with 1-based page numbers.
type ResultSnapshot struct {
	Pages       map[string][]LinkRecord `json:"pages"`
	InitialDate string                  `json:"initial_date"`
	FinalDate   string                  `json:"final_date"`
	UpdateDate  string                  `json:"update_date"`
	TotalCases  int                     `json:"total_cases"`
}

// CaseRecord holds everything serialized for one case: the fields lifted
// from its descriptive metadata plus the resolved plain text.
type CaseRecord struct {
	DocClass          string              `json:"doc_class" bson:"doc_class"`
	Category          string              `json:"category" bson:"category"`
	Collection        string              `json:"collection" bson:"collection"`
	CourtType         string              `json:"court_type" bson:"court_type"`
	CourtCode         string              `json:"court_code" bson:"court_code"`
	CourtCircuit      string              `json:"court_circuit" bson:"court_circuit"`
	CourtState        string              `json:"court_state" bson:"court_state"`
	CaseNumber        string              `json:"case_number" bson:"case_number"`
	CaseOffice        string              `json:"case_office" bson:"case_office"`
	Branch            string              `json:"branch" bson:"branch"`
	Cause             string              `json:"cause" bson:"cause"`
	NatureOfSuit      string              `json:"nature_of_suit" bson:"nature_of_suit"`
	NatureOfSuitCode  string              `json:"nature_of_suit_code" bson:"nature_of_suit_code"`
	CaseType          string              `json:"case_type" bson:"case_type"`
	DateCreated       string              `json:"date_created" bson:"date_created"`
	DateChanged       string              `json:"date_changed" bson:"date_changed"`
	DateIngested      string              `json:"date_ingested" bson:"date_ingested"`
	LanguageTerm      string              `json:"language_term" bson:"language_term"`
	Party             map[string][]string `json:"party" bson:"party"`
	PreferredCitation string              `json:"preferred_citation" bson:"preferred_citation"`
	URL               string              `json:"url" bson:"url"`
	ID                string              `json:"id" bson:"id"`
	State             string              `json:"state" bson:"state"`
	CaseName          string              `json:"case_name" bson:"case_name"`
	DocketText        string              `json:"docket_text" bson:"docket_text"`
	DateIssued        string              `json:"date_issued" bson:"date_issued"`
	PartNumber        string              `json:"part_number" bson:"part_number"`
	PDFURL            string              `json:"pdf_url" bson:"pdf_url"`
	Blocked           bool                `json:"blocked" bson:"blocked"`
	PageCount         int                 `json:"page_count" bson:"page_count"`
	OCR               bool                `json:"ocr" bson:"ocr"`
	PlainText         string              `json:"plain_text" bson:"plain_text"`
}

// SetField assigns a string field by its serialized name. Unknown names
// are ignored so metadata quirks never abort a batch.
func (c *CaseRecord) SetField(field, value string) {
	switch field {
	case "doc_class":
		c.DocClass = value
	case "category":
		c.Category = value
	case "collection":
		c.Collection = value
	case "court_type":
		c.CourtType = value
	case "court_code":
		c.CourtCode = value
	case "court_circuit":
		c.CourtCircuit = value
	case "court_state":
		c.CourtState = value
	case "case_number":
		c.CaseNumber = value
	case "case_office":
		c.CaseOffice = value
	case "branch":
		c.Branch = value
	case "cause":
		c.Cause = value
	case "nature_of_suit":
		c.NatureOfSuit = value
	case "nature_of_suit_code":
		c.NatureOfSuitCode = value
	case "case_type":
		c.CaseType = value
	case "date_created":
		c.DateCreated = value
	case "date_changed":
		c.DateChanged = value
	case "date_ingested":
		c.DateIngested = value
	case "language_term":
		c.LanguageTerm = value
	case "preferred_citation":
		c.PreferredCitation = value
	case "url":
		c.URL = value
	case "id":
		c.ID = value
	case "state":
		c.State = value
	case "case_name":
		c.CaseName = value
	case "docket_text":
		c.DocketText = value
	case "date_issued":
		c.DateIssued = value
	case "part_number":
		c.PartNumber = value
	case "pdf_url":
		c.PDFURL = value
	}
}

// AddParty records a party fullname under a normalized role, keeping the
// first-seen order and dropping duplicates.
func (c *CaseRecord) AddParty(role, fullname string) {
	if c.Party == nil {
		c.Party = make(map[string][]string)
	}
	for _, name := range c.Party[role] {
		if name == fullname {
			return
		}
	}
	c.Party[role] = append(c.Party[role], fullname)
}

// CaseFlags tracks which artifacts exist for one case.
type CaseFlags struct {
	HasJSON bool `json:"has_json" bson:"has_json"`
}

// CourtIndex groups the cases of one court abbreviation.
type CourtIndex struct {
	NumberOfRecords int                   `json:"number_of_records" bson:"number_of_records"`
	Cases           map[string]*CaseFlags `json:"cases" bson:"cases"`
}

// ArchiveSummary is the running info.json sealing the bulk data.
type ArchiveSummary struct {
	DatesCovered   [][2]string            `json:"dates_covered" bson:"dates_covered"`
	TotalJSONFiles int                    `json:"total_json_files" bson:"total_json_files"`
	TotalCases     int                    `json:"total_cases" bson:"total_cases"`
	Records        map[string]*CourtIndex `json:"records" bson:"records"`
	Collection     string                 `json:"collection" bson:"collection"`
	Category       string                 `json:"category" bson:"category"`
	TimeCreated    string                 `json:"time_created" bson:"time_created"`
}
