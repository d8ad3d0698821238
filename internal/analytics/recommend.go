package analytics

import (
	"fmt"
	"hash/fnv"
	"sort"
	"time"

	"github.com/sprintsight/sprintsight/internal/domain"
)

// Rule names feed the deterministic prompt id, so they must stay stable
// across releases: a renamed rule would reset every consumer's dismiss
// state for that condition.
const (
	ruleCriticalRisk   = "critical_risk"
	ruleBlockedWork    = "blocked_work"
	ruleSprintComplete = "sprint_complete"
	ruleStaleData      = "stale_data"
	RuleAIInsight      = "ai_insight"
)

// OverallSprint labels dataset-level prompts that belong to no one sprint.
const OverallSprint = "Overall"

var promptRank = map[domain.PromptType]int{
	domain.PromptCritical: 0,
	domain.PromptWarning:  1,
	domain.PromptSuccess:  2,
	domain.PromptInfo:     3,
}

// PromptID returns the stable identifier for a (sprint, rule) condition.
// The same condition always yields the same id across recomputations, so
// consumers can use it as an idempotency key for dismissals.
func PromptID(sprintName, rule string) string {
	h := fnv.New64a()
	h.Write([]byte(sprintName))
	h.Write([]byte{0})
	h.Write([]byte(rule))
	return fmt.Sprintf("%016x", h.Sum64())
}

// BuildRecommendations evaluates the rule set over sprint metrics that are
// already ordered most recent first, and returns prompts most urgent first
// with ties broken by that recency.
func BuildRecommendations(sprints []domain.SprintMetrics, now time.Time, lookbackDays int) []domain.RecommendationPrompt {
	var prompts []domain.RecommendationPrompt

	for _, s := range sprints {
		if s.RiskLevel == domain.RiskCritical {
			days := "unknown"
			if s.DaysRemaining != nil {
				days = fmt.Sprintf("%d", *s.DaysRemaining)
			}
			prompts = append(prompts, domain.RecommendationPrompt{
				ID:         PromptID(s.SprintName, ruleCriticalRisk),
				SprintName: s.SprintName,
				PromptType: domain.PromptCritical,
				Title:      fmt.Sprintf("%s - Sprint at critical risk", s.SprintName),
				Message: fmt.Sprintf("Sprint is %.0f%% complete with %s days remaining. %.0f story points at risk. Immediate action required.",
					s.CompletionPercentage, days, s.TotalStoryPoints-s.CompletedStoryPoints),
			})
		}
		if s.BlockedStoryPoints > 0 {
			prompts = append(prompts, domain.RecommendationPrompt{
				ID:         PromptID(s.SprintName, ruleBlockedWork),
				SprintName: s.SprintName,
				PromptType: domain.PromptWarning,
				Title:      fmt.Sprintf("%s - Blocked work", s.SprintName),
				Message: fmt.Sprintf("%d issues (%.0f story points) are blocked. Review and unblock to maintain velocity.",
					s.StatusDistribution[domain.StatusBlocked], s.BlockedStoryPoints),
			})
		}
		if s.RiskLevel == domain.RiskOnTrack && s.CompletionPercentage == 100 {
			prompts = append(prompts, domain.RecommendationPrompt{
				ID:         PromptID(s.SprintName, ruleSprintComplete),
				SprintName: s.SprintName,
				PromptType: domain.PromptSuccess,
				Title:      fmt.Sprintf("%s - Sprint complete", s.SprintName),
				Message:    "All committed story points are done. Great work, keep up the momentum.",
			})
		}
	}

	if staleData(sprints, now, lookbackDays) {
		prompts = append(prompts, domain.RecommendationPrompt{
			ID:         PromptID(OverallSprint, ruleStaleData),
			SprintName: OverallSprint,
			PromptType: domain.PromptInfo,
			Title:      "Data may be stale",
			Message: fmt.Sprintf("No sprint started within the last %d days. Refresh the tracker connection or upload a newer export.",
				lookbackDays),
		})
	}

	// stable sort keeps sprint recency as the tiebreak within each urgency
	sort.SliceStable(prompts, func(i, j int) bool {
		return promptRank[prompts[i].PromptType] < promptRank[prompts[j].PromptType]
	})
	return prompts
}

func staleData(sprints []domain.SprintMetrics, now time.Time, lookbackDays int) bool {
	if len(sprints) == 0 || lookbackDays <= 0 {
		return false
	}
	cutoff := now.AddDate(0, 0, -lookbackDays)
	for _, s := range sprints {
		if s.StartDate != nil && s.StartDate.After(cutoff) {
			return false
		}
	}
	return true
}
