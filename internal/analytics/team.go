package analytics

import (
	"sort"

	"github.com/sprintsight/sprintsight/internal/domain"
)

// BuildTeamMetrics groups all issues by assignee, including issues outside
// any sprint. Unknown assignees land in the Unassigned bucket rather than
// being dropped. Output is ordered by assigned points descending, capped at
// limit when limit > 0.
func BuildTeamMetrics(issues []domain.Issue, limit int) []domain.TeamMemberMetrics {
	byName := map[string]*domain.TeamMemberMetrics{}
	order := []string{}
	for _, iss := range issues {
		name := iss.Assignee
		if name == "" {
			name = domain.Unassigned
		}
		m, ok := byName[name]
		if !ok {
			m = &domain.TeamMemberMetrics{Name: name}
			byName[name] = m
			order = append(order, name)
		}
		m.AssignedPoints += iss.StoryPoints
		if iss.Status == domain.StatusDone {
			m.CompletedPoints += iss.StoryPoints
		}
	}

	out := make([]domain.TeamMemberMetrics, 0, len(order))
	for _, name := range order {
		m := byName[name]
		if m.AssignedPoints > 0 {
			m.CompletionRate = m.CompletedPoints / m.AssignedPoints * 100
		}
		out = append(out, *m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AssignedPoints != out[j].AssignedPoints {
			return out[i].AssignedPoints > out[j].AssignedPoints
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
