package analytics

import "github.com/sprintsight/sprintsight/internal/domain"

// BuildDashboard reduces the sprint metrics list to a single overview.
// Zero sprints yields a zero-valued summary, never an error: the caller
// treats an all-zero summary and "no data" as equivalent.
func BuildDashboard(sprints []domain.SprintMetrics) domain.DashboardSummary {
	sum := domain.DashboardSummary{TotalSprints: len(sprints)}
	if len(sprints) == 0 {
		return sum
	}

	var velocity, totalPoints, completedPoints float64
	for _, s := range sprints {
		sum.TotalIssues += s.TotalIssues
		velocity += s.Velocity
		totalPoints += s.TotalStoryPoints
		completedPoints += s.CompletedStoryPoints
		if s.RiskLevel == domain.RiskHigh || s.RiskLevel == domain.RiskCritical {
			sum.AtRiskSprints++
		}
	}
	sum.AverageVelocity = velocity / float64(len(sprints))
	if totalPoints > 0 {
		sum.CompletionRate = completedPoints / totalPoints * 100
	}
	return sum
}
