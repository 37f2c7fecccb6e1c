package models

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestSetField(t *testing.T) {
	rec := &CaseRecord{}
	rec.SetField("case_number", "1:18-cv-10568")
	rec.SetField("court_type", "District")
	rec.SetField("preferred_citation", "1:18-cv-10568;18-10568")
	rec.SetField("unknown_tag", "ignored")

	if rec.CaseNumber != "1:18-cv-10568" || rec.CourtType != "District" {
		t.Errorf("fields not set: %+v", rec)
	}
	if rec.PreferredCitation != "1:18-cv-10568;18-10568" {
		t.Errorf("preferred_citation = %q", rec.PreferredCitation)
	}

	// Repeated tags: the last occurrence wins.
	rec.SetField("case_number", "2:19-cv-00001")
	if rec.CaseNumber != "2:19-cv-00001" {
		t.Errorf("last occurrence should win, got %q", rec.CaseNumber)
	}
}

func TestAddParty(t *testing.T) {
	rec := &CaseRecord{}
	rec.AddParty("plaintiff", "John Smith")
	rec.AddParty("plaintiff", "John Smith")
	rec.AddParty("plaintiff", "Acme Corp")
	rec.AddParty("defendant_appellee", "Jane Jones")

	want := map[string][]string{
		"plaintiff":          {"John Smith", "Acme Corp"},
		"defendant_appellee": {"Jane Jones"},
	}
	if !reflect.DeepEqual(rec.Party, want) {
		t.Errorf("party = %v, want %v", rec.Party, want)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	snap := ResultSnapshot{
		Pages: map[string][]LinkRecord{
			"2020-01-01-to-2020-12-31_1": {
				{Num: "1", Name: "Smith v. Jones", URL: "/app/details/a/b"},
			},
			"2019-01-01-to-2019-12-31_1": {},
		},
		InitialDate: "2019-01-01",
		FinalDate:   "2020-12-31",
		UpdateDate:  "2021-01-05",
		TotalCases:  1,
	}
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatal(err)
	}
	var back ResultSnapshot
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(snap, back) {
		t.Errorf("round trip drifted:\n%+v\n%+v", snap, back)
	}
	if back.Pages["2019-01-01-to-2019-12-31_1"] == nil {
		t.Error("empty page lost its key")
	}
}
