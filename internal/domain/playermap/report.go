package playermap

import (
	"sort"
	"strings"
	"time"
)

// NearMiss is the best same-team candidate an unmatched primary record had.
type NearMiss struct {
	Primary      Record
	Candidate    *Record
	Score        float64
	CleanedScore float64
}

// TeamCount is a per-team tally used in reports.
type TeamCount struct {
	Team  string
	Count int
}

// Report summarizes a matching run for human review.
type Report struct {
	GeneratedAt         time.Time
	Threshold           float64
	PrimaryCount        int
	SecondaryCount      int
	ManualCount         int
	AutomatedCount      int
	UnmatchedCount      int
	MatchRate           float64
	DuplicatePrimaryIDs []string
	MissingName         int
	MissingTeam         int
	UnmatchedByTeam     []TeamCount
	NearMisses          []NearMiss
}

// BuildReport derives the review summary from the inputs and result of a run.
func BuildReport(now time.Time, threshold float64, primary, secondary []Record, result Result, nearMisses []NearMiss) Report {
	report := Report{
		GeneratedAt:    now,
		Threshold:      threshold,
		PrimaryCount:   len(primary),
		SecondaryCount: len(secondary),
		ManualCount:    result.Count(MatchTypeManual),
		AutomatedCount: result.Count(MatchTypeAutomated),
		UnmatchedCount: len(result.Unmatched),
		MatchRate:      result.MatchRate(),
		NearMisses:     nearMisses,
	}

	seen := make(map[string]int, len(primary))
	for _, item := range primary {
		seen[item.ID]++
		if strings.TrimSpace(item.Name) == "" {
			report.MissingName++
		}
		if strings.TrimSpace(item.Team) == "" {
			report.MissingTeam++
		}
	}
	for id, count := range seen {
		if count > 1 {
			report.DuplicatePrimaryIDs = append(report.DuplicatePrimaryIDs, id)
		}
	}
	sort.Strings(report.DuplicatePrimaryIDs)

	byTeam := make(map[string]int)
	for _, item := range result.Unmatched {
		byTeam[item.Team]++
	}
	for name, count := range byTeam {
		report.UnmatchedByTeam = append(report.UnmatchedByTeam, TeamCount{Team: name, Count: count})
	}
	sort.SliceStable(report.UnmatchedByTeam, func(i, j int) bool {
		if report.UnmatchedByTeam[i].Count != report.UnmatchedByTeam[j].Count {
			return report.UnmatchedByTeam[i].Count > report.UnmatchedByTeam[j].Count
		}
		return report.UnmatchedByTeam[i].Team < report.UnmatchedByTeam[j].Team
	})

	return report
}
