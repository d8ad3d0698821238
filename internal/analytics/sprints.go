// Package analytics contains the pure aggregation functions of the engine.
// Every function here is a stateless computation over one immutable
// dataset snapshot; nothing is cached and nothing needs locking.
package analytics

import (
	"sort"
	"time"

	"github.com/sprintsight/sprintsight/internal/domain"
)

// BuildSprintMetrics groups issues by sprint in a single pass and computes
// per-sprint metrics. Issues with no sprint are excluded here (the team
// aggregator still sees them). Output is ordered by start date descending
// with undated sprints last.
func BuildSprintMetrics(issues []domain.Issue, now time.Time) []domain.SprintMetrics {
	groups := map[string][]domain.Issue{}
	order := []string{}
	for _, iss := range issues {
		if iss.SprintName == "" {
			continue
		}
		if _, ok := groups[iss.SprintName]; !ok {
			order = append(order, iss.SprintName)
		}
		groups[iss.SprintName] = append(groups[iss.SprintName], iss)
	}

	out := make([]domain.SprintMetrics, 0, len(order))
	for _, name := range order {
		out = append(out, buildOne(name, groups[name], now))
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].StartDate, out[j].StartDate
		switch {
		case a == nil && b == nil:
			return out[i].SprintName < out[j].SprintName
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.After(*b)
		default:
			return out[i].SprintName < out[j].SprintName
		}
	})
	return out
}

func buildOne(name string, issues []domain.Issue, now time.Time) domain.SprintMetrics {
	m := domain.SprintMetrics{
		SprintName:         name,
		StatusDistribution: domain.StatusDistribution{},
	}
	for _, st := range domain.AllStatuses {
		m.StatusDistribution[st] = 0
	}

	for _, iss := range issues {
		m.TotalIssues++
		m.TotalStoryPoints += iss.StoryPoints
		m.StatusDistribution[iss.Status]++
		switch iss.Status {
		case domain.StatusDone:
			m.CompletedStoryPoints += iss.StoryPoints
		case domain.StatusInProgress:
			m.InProgressStoryPoints += iss.StoryPoints
		case domain.StatusToDo:
			m.TodoStoryPoints += iss.StoryPoints
		}
		if iss.IsBlocked {
			m.BlockedStoryPoints += iss.StoryPoints
		}
		if m.StartDate == nil && iss.SprintStartDate != nil {
			m.StartDate = iss.SprintStartDate
		}
		if m.EndDate == nil && iss.SprintEndDate != nil {
			m.EndDate = iss.SprintEndDate
		}
	}

	if m.TotalStoryPoints > 0 {
		m.CompletionPercentage = m.CompletedStoryPoints / m.TotalStoryPoints * 100
	}
	m.Velocity = m.CompletedStoryPoints

	if m.EndDate != nil {
		d := int(m.EndDate.Sub(now).Hours() / 24)
		if d < 0 {
			d = 0
		}
		m.DaysRemaining = &d
	}
	if m.StartDate != nil {
		d := int(now.Sub(*m.StartDate).Hours() / 24)
		if d < 0 {
			d = 0
		}
		m.DaysElapsed = &d
	}

	m.RiskLevel = classifyRisk(m)
	return m
}

// classifyRisk applies the classification rules in precedence order; the
// first match wins, so every sprint lands in exactly one bucket. A sprint
// with no committed points gives no risk signal.
func classifyRisk(m domain.SprintMetrics) domain.RiskLevel {
	if m.TotalStoryPoints == 0 {
		return domain.RiskOnTrack
	}
	blockedRatio := m.BlockedStoryPoints / m.TotalStoryPoints

	switch {
	case m.CompletionPercentage < 40 && m.DaysRemaining != nil && *m.DaysRemaining <= 2:
		return domain.RiskCritical
	case m.CompletionPercentage < 40 || blockedRatio > 0.2:
		return domain.RiskHigh
	case m.CompletionPercentage < 70:
		return domain.RiskMedium
	default:
		return domain.RiskOnTrack
	}
}
