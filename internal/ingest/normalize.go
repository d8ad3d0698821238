package ingest

import (
	"strconv"
	"strings"
	"time"

	"github.com/sprintsight/sprintsight/internal/domain"
)

// backlogSentinel is how some exports label issues outside any sprint.
const backlogSentinel = "none( backlog)"

// Column-name variants seen across CSV/Excel exports. Matching is
// case-insensitive and whitespace-insensitive (exports embed newlines in
// headers like "Assigned Sprint\nStart date").
var (
	idColumns       = []string{"jira id", "issue key", "issue id", "key", "id"}
	summaryColumns  = []string{"summary", "title"}
	statusColumns   = []string{"status", "issue status"}
	pointsColumns   = []string{"story points", "story point estimate", "custom field (story points)", "points", "estimate"}
	sprintColumns   = []string{"assigned sprint", "sprint", "sprint name"}
	startColumns    = []string{"assigned sprint start date", "sprint start date", "start date"}
	endColumns      = []string{"assigned sprint end date", "sprint end date", "end date"}
	assigneeColumns = []string{"assignee", "assigned to", "owner"}
	flaggedColumns  = []string{"flagged", "custom field (flagged)", "impediment"}
)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/Jan/06",
	"02/Jan/06 3:04 PM",
	"1/2/2006",
	"01/02/2006",
}

// Row is one spreadsheet row keyed by its export header.
type Row map[string]string

// Result is the outcome of normalizing a whole ingestion source. Records
// that fail normalization are skipped and counted, never fatal on their own.
type Result struct {
	Issues  []domain.Issue
	Skipped int
}

// canonKey collapses case, newlines and repeated spaces so header variants
// compare equal.
func canonKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.Join(strings.Fields(s), " ")
}

func lookup(row Row, names []string) (string, bool) {
	for key, val := range row {
		ck := canonKey(key)
		for _, n := range names {
			if ck == n {
				return strings.TrimSpace(val), true
			}
		}
	}
	return "", false
}

func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "none") {
		return nil
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			tt := t.UTC()
			return &tt
		}
	}
	return nil
}

func parsePoints(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}

func isFlagged(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s != "" && s != "none" && s != "no" && s != "false" && s != "0"
}

// NormalizeRow converts one spreadsheet row into a canonical Issue. The only
// hard requirement is an identifier; story points default to 0.
func NormalizeRow(row Row) (domain.Issue, error) {
	id, ok := lookup(row, idColumns)
	if !ok || id == "" {
		return domain.Issue{}, &domain.NormalizationError{Field: "id", Reason: "missing identifier"}
	}

	sprint, _ := lookup(row, sprintColumns)
	if canonKey(sprint) == backlogSentinel {
		sprint = ""
	}

	assignee, _ := lookup(row, assigneeColumns)
	if assignee == "" || strings.EqualFold(assignee, "nan") {
		assignee = domain.Unassigned
	}

	rawStatus, _ := lookup(row, statusColumns)
	status := MapStatus(rawStatus)

	rawPoints, _ := lookup(row, pointsColumns)
	summary, _ := lookup(row, summaryColumns)
	rawStart, _ := lookup(row, startColumns)
	rawEnd, _ := lookup(row, endColumns)
	rawFlag, _ := lookup(row, flaggedColumns)

	iss := domain.Issue{
		ID:              id,
		Summary:         summary,
		SprintName:      sprint,
		Assignee:        assignee,
		Status:          status,
		StoryPoints:     parsePoints(rawPoints),
		IsBlocked:       status == domain.StatusBlocked || isFlagged(rawFlag),
		SprintStartDate: parseDate(rawStart),
		SprintEndDate:   parseDate(rawEnd),
	}
	return iss, nil
}

// NormalizeRows runs NormalizeRow over a whole export. When zero rows
// survive, the ingestion attempt fails and the caller must leave the
// current dataset untouched.
func NormalizeRows(rows []Row) (Result, error) {
	res := Result{Issues: make([]domain.Issue, 0, len(rows))}
	for _, row := range rows {
		iss, err := NormalizeRow(row)
		if err != nil {
			res.Skipped++
			continue
		}
		res.Issues = append(res.Issues, iss)
	}
	if len(res.Issues) == 0 {
		return Result{Skipped: res.Skipped}, domain.ErrEmptyDataset
	}
	return res, nil
}
