package export

import (
	"fmt"
	"strings"
	"text/template"
	"time"
)

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"pct":   func(v float64) string { return fmt.Sprintf("%.1f%%", v*100) },
	"score": func(v float64) string { return fmt.Sprintf("%.3f", v) },
	"ts":    func(v time.Time) string { return v.UTC().Format(time.RFC3339) },
	"join":  strings.Join,
	"cell":  markdownCell,
}).Parse(`# Player mapping report

Generated {{ ts .GeneratedAt }} with threshold {{ score .Threshold }}.

| Metric | Value |
|---|---|
| Primary players | {{ .PrimaryCount }} |
| Secondary players | {{ .SecondaryCount }} |
| Manual matches | {{ .ManualCount }} |
| Automated matches | {{ .AutomatedCount }} |
| Unmatched | {{ .UnmatchedCount }} |
| Match rate | {{ pct .MatchRate }} |
| Missing name | {{ .MissingName }} |
| Missing team | {{ .MissingTeam }} |
{{ if .DuplicatePrimaryIDs }}
Duplicate primary ids: {{ join .DuplicatePrimaryIDs ", " }}
{{ end }}{{ if .UnmatchedByTeam }}
## Unmatched by team

| Team | Unmatched |
|---|---|
{{ range .UnmatchedByTeam }}| {{ cell .Team }} | {{ .Count }} |
{{ end }}{{ end }}{{ if .NearMisses }}
## Near misses

| Primary id | Name | Team | Best candidate | Score | Cleaned score |
|---|---|---|---|---|---|
{{ range .NearMisses }}| {{ cell .Primary.ID }} | {{ cell .Primary.Name }} | {{ cell .Primary.Team }} | {{ if .Candidate }}{{ cell .Candidate.Name }} ({{ cell .Candidate.ID }}){{ else }}-{{ end }} | {{ score .Score }} | {{ if .Candidate }}{{ score .CleanedScore }}{{ else }}-{{ end }} |
{{ end }}{{ end }}`))

func markdownCell(value string) string {
	value = strings.ReplaceAll(value, "|", `\|`)
	value = strings.ReplaceAll(value, "\n", " ")
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
