package playermap

import (
	"testing"
	"time"
)

func TestNewRecord_CoercesMissingValues(t *testing.T) {
	rec := NewRecord(42, nil, " Arsenal ", nil)
	if rec.ID != "42" {
		t.Fatalf("unexpected id: %q", rec.ID)
	}
	if rec.Name != "" {
		t.Fatalf("expected empty name for nil input, got %q", rec.Name)
	}
	if rec.Team != "Arsenal" {
		t.Fatalf("unexpected team: %q", rec.Team)
	}
	if _, ok := rec.Attr("xG"); ok {
		t.Fatalf("expected no attribute on empty extension bag")
	}
}

func TestResult_CountsAndMatchRate(t *testing.T) {
	result := Result{
		Mappings: []Mapping{
			{PrimaryID: "1", MatchType: MatchTypeManual, Confidence: 1},
			{PrimaryID: "2", MatchType: MatchTypeAutomated, Confidence: 0.9},
			{PrimaryID: "3", MatchType: MatchTypeAutomated, Confidence: 0.85},
		},
		Unmatched: []Record{{ID: "4"}},
	}

	if got := result.Count(MatchTypeManual); got != 1 {
		t.Fatalf("expected 1 manual mapping, got %d", got)
	}
	if got := result.Count(MatchTypeAutomated); got != 2 {
		t.Fatalf("expected 2 automated mappings, got %d", got)
	}
	if got := result.MatchRate(); got != 0.75 {
		t.Fatalf("expected match rate 0.75, got %v", got)
	}
	if _, ok := result.MappedPrimaryIDs()["3"]; !ok {
		t.Fatalf("expected primary 3 in mapped set")
	}
}

func TestCleanName(t *testing.T) {
	tests := map[string]string{
		"  Martin Ødegaard ":        "martin odegaard",
		"Emile Smith Rowe Jr.":      "emile smith rowe",
		"Bruno Miguel B. Fernandes": "bruno miguel fernandes",
		"Raúl Jiménez":              "raul jimenez",
		"":                          "",
	}
	for in, want := range tests {
		if got := CleanName(in); got != want {
			t.Fatalf("CleanName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildReport(t *testing.T) {
	primary := []Record{
		{ID: "1", Name: "Bukayo Saka", Team: "Arsenal"},
		{ID: "2", Name: "", Team: "Arsenal"},
		{ID: "2", Name: "Duplicate", Team: ""},
		{ID: "3", Name: "Cole Palmer", Team: "Chelsea"},
	}
	result := Result{
		Mappings: []Mapping{{PrimaryID: "1", MatchType: MatchTypeAutomated, Confidence: 1}},
		Unmatched: []Record{
			primary[1], primary[2], primary[3],
		},
	}

	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	report := BuildReport(now, 0.8, primary, nil, result, nil)

	if report.PrimaryCount != 4 || report.AutomatedCount != 1 || report.UnmatchedCount != 3 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	if len(report.DuplicatePrimaryIDs) != 1 || report.DuplicatePrimaryIDs[0] != "2" {
		t.Fatalf("unexpected duplicates: %v", report.DuplicatePrimaryIDs)
	}
	if report.MissingName != 1 || report.MissingTeam != 1 {
		t.Fatalf("unexpected missing counts: name=%d team=%d", report.MissingName, report.MissingTeam)
	}
	if len(report.UnmatchedByTeam) != 3 {
		t.Fatalf("unexpected unmatched team buckets: %v", report.UnmatchedByTeam)
	}
	if report.UnmatchedByTeam[0].Team != "" || report.UnmatchedByTeam[0].Count != 1 {
		t.Fatalf("expected ties ordered by team name, got %v", report.UnmatchedByTeam)
	}
}
