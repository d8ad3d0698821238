package ingest

import (
	"time"

	"github.com/sprintsight/sprintsight/internal/domain"
)

// Story points live in a customfield whose id varies per Jira site; these
// are the ids commonly provisioned by Jira Cloud.
var storyPointFields = []string{
	"customfield_10016",
	"customfield_10106",
	"customfield_10002",
	"customfield_10004",
}

// SprintContext is the sprint an API-fetched issue was listed under.
type SprintContext struct {
	Name      string
	StartDate *time.Time
	EndDate   *time.Time
}

// NormalizeJiraIssue converts one raw tracker issue object into a canonical
// Issue. The raw shape is the decoded JSON of the agile API's sprint-issue
// listing.
func NormalizeJiraIssue(raw map[string]any, sprint SprintContext) (domain.Issue, error) {
	key, _ := raw["key"].(string)
	if key == "" {
		return domain.Issue{}, &domain.NormalizationError{Field: "key", Reason: "missing identifier"}
	}
	fields, _ := raw["fields"].(map[string]any)
	if fields == nil {
		return domain.Issue{}, &domain.NormalizationError{Field: "fields", Reason: "missing fields object"}
	}

	rawStatus := ""
	if st, ok := fields["status"].(map[string]any); ok {
		rawStatus, _ = st["name"].(string)
	}
	status := MapStatus(rawStatus)

	assignee := domain.Unassigned
	if as, ok := fields["assignee"].(map[string]any); ok {
		if name, _ := as["displayName"].(string); name != "" {
			assignee = name
		}
	}

	summary, _ := fields["summary"].(string)

	points := 0.0
	for _, cf := range storyPointFields {
		if v, ok := fields[cf].(float64); ok && v >= 0 {
			points = v
			break
		}
	}

	flagged := false
	if fv, ok := fields["flagged"].([]any); ok && len(fv) > 0 {
		flagged = true
	}

	return domain.Issue{
		ID:              key,
		Summary:         summary,
		SprintName:      sprint.Name,
		Assignee:        assignee,
		Status:          status,
		StoryPoints:     points,
		IsBlocked:       status == domain.StatusBlocked || flagged,
		SprintStartDate: sprint.StartDate,
		SprintEndDate:   sprint.EndDate,
	}, nil
}

// NormalizeJiraIssues skips malformed issue objects the same way the
// spreadsheet path skips malformed rows.
func NormalizeJiraIssues(raws []map[string]any, sprint SprintContext) Result {
	res := Result{}
	for _, raw := range raws {
		iss, err := NormalizeJiraIssue(raw, sprint)
		if err != nil {
			res.Skipped++
			continue
		}
		res.Issues = append(res.Issues, iss)
	}
	return res
}
