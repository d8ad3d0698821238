package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sprintsight/sprintsight/internal/domain"
)

// Delay prediction combines three weighted signals per sprint: progress
// against elapsed time, issue completion rate, and blocker exposure.
const (
	progressWeight   = 0.40
	completionWeight = 0.35
	blockerWeight    = 0.25
)

var riskRank = map[domain.RiskLevel]int{
	domain.RiskCritical: 0,
	domain.RiskHigh:     1,
	domain.RiskMedium:   2,
	domain.RiskOnTrack:  3,
}

// BuildPredictions forecasts delay per sprint, ordered most risky first.
func BuildPredictions(issues []domain.Issue, now time.Time) []domain.DelayPrediction {
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

	out := make([]domain.DelayPrediction, 0, len(order))
	for _, name := range order {
		out = append(out, predictOne(name, groups[name], now))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if riskRank[out[i].RiskLevel] != riskRank[out[j].RiskLevel] {
			return riskRank[out[i].RiskLevel] < riskRank[out[j].RiskLevel]
		}
		if out[i].DelayProbability != out[j].DelayProbability {
			return out[i].DelayProbability > out[j].DelayProbability
		}
		return out[i].SprintName < out[j].SprintName
	})
	return out
}

func predictOne(name string, issues []domain.Issue, now time.Time) domain.DelayPrediction {
	detail := detailMetrics(issues)

	progressRisk := progressVsTimeRisk(issues, detail, now)
	completionRisk := completionRateRisk(detail)
	blockerRisk := blockerTrendRisk(detail)

	probability := progressRisk*progressWeight +
		completionRisk*completionWeight +
		blockerRisk*blockerWeight
	probability = math.Round(probability*100) / 100

	daysRemaining := 0
	if end := sprintEnd(issues); end != nil {
		if d := int(end.Sub(now).Hours() / 24); d > 0 {
			daysRemaining = d
		}
	}

	return domain.DelayPrediction{
		SprintName:       name,
		WillDelay:        probability > 0.5,
		DelayProbability: probability,
		RiskLevel:        probabilityRisk(probability),
		DaysRemaining:    daysRemaining,
		Factors: domain.PredictionFactors{
			ProgressRisk:       math.Round(progressRisk*100) / 100,
			CompletionRateRisk: math.Round(completionRisk*100) / 100,
			BlockerRisk:        math.Round(blockerRisk*100) / 100,
		},
		Recommendations: predictionAdvice(progressRisk, completionRisk, blockerRisk, issues, detail),
		EarlyWarning:    daysRemaining >= 3 && probability > 0.5,
		Metrics:         detail,
	}
}

func detailMetrics(issues []domain.Issue) domain.PredictionDetail {
	d := domain.PredictionDetail{}
	for _, iss := range issues {
		d.TotalIssues++
		d.TotalStoryPoints += iss.StoryPoints
		switch iss.Status {
		case domain.StatusDone:
			d.CompletedIssues++
			d.CompletedPoints += iss.StoryPoints
		case domain.StatusInProgress:
			d.InProgressIssues++
			d.InProgressPoints += iss.StoryPoints
		case domain.StatusBlocked:
			d.BlockedIssues++
			d.BlockedPoints += iss.StoryPoints
		case domain.StatusToDo:
			d.TodoIssues++
			d.TodoPoints += iss.StoryPoints
		}
	}
	if d.TotalStoryPoints > 0 {
		d.CompletionPercentage = d.CompletedPoints / d.TotalStoryPoints * 100
	}
	return d
}

// progressVsTimeRisk scores the gap between time progress and work
// progress: at 50% of the timebox we expect 50% of the points done.
// Missing dates yield a neutral 0.5.
func progressVsTimeRisk(issues []domain.Issue, d domain.PredictionDetail, now time.Time) float64 {
	start, end := sprintStart(issues), sprintEnd(issues)
	if start == nil || end == nil {
		return 0.5
	}
	totalDays := end.Sub(*start).Hours() / 24
	if totalDays <= 0 {
		return 0.5
	}
	timeProgress := now.Sub(*start).Hours() / 24 / totalDays
	if timeProgress > 1 {
		timeProgress = 1
	}
	if timeProgress < 0 {
		timeProgress = 0
	}

	workProgress := 0.0
	if d.TotalStoryPoints > 0 {
		workProgress = d.CompletedPoints / d.TotalStoryPoints
	}

	gap := timeProgress - workProgress
	switch {
	case gap <= 0:
		return 0.0
	case gap < 0.2:
		return 0.2
	case gap < 0.4:
		return 0.5
	case gap < 0.6:
		return 0.75
	default:
		return 1.0
	}
}

func completionRateRisk(d domain.PredictionDetail) float64 {
	if d.TotalIssues == 0 {
		return 0
	}
	rate := float64(d.CompletedIssues) / float64(d.TotalIssues)
	var risk float64
	switch {
	case rate >= 0.8:
		risk = 0.0
	case rate >= 0.6:
		risk = 0.2
	case rate >= 0.4:
		risk = 0.5
	case rate >= 0.2:
		risk = 0.75
	default:
		risk = 1.0
	}
	// a large To Do backlog this late is its own signal
	if float64(d.TodoIssues)/float64(d.TotalIssues) > 0.5 {
		risk += 0.2
	}
	if risk > 1 {
		risk = 1
	}
	return risk
}

func blockerTrendRisk(d domain.PredictionDetail) float64 {
	if d.BlockedIssues == 0 || d.TotalIssues == 0 {
		return 0
	}
	issueRatio := float64(d.BlockedIssues) / float64(d.TotalIssues)
	pointRatio := 0.0
	if d.TotalStoryPoints > 0 {
		pointRatio = d.BlockedPoints / d.TotalStoryPoints
	}
	switch {
	case issueRatio < 0.1 && pointRatio < 0.1:
		return 0.2
	case issueRatio < 0.2 && pointRatio < 0.2:
		return 0.5
	case issueRatio < 0.3 && pointRatio < 0.3:
		return 0.75
	default:
		return 1.0
	}
}

func probabilityRisk(p float64) domain.RiskLevel {
	switch {
	case p >= 0.75:
		return domain.RiskCritical
	case p >= 0.50:
		return domain.RiskHigh
	case p >= 0.25:
		return domain.RiskMedium
	default:
		return domain.RiskOnTrack
	}
}

func predictionAdvice(progressRisk, completionRisk, blockerRisk float64, issues []domain.Issue, d domain.PredictionDetail) []string {
	var advice []string

	if progressRisk > 0.7 {
		advice = append(advice, fmt.Sprintf(
			"URGENT: %.0f story points remaining. Consider moving low-priority items to the next sprint.",
			d.TotalStoryPoints-d.CompletedPoints))
	} else if progressRisk > 0.4 {
		advice = append(advice, "Sprint is behind schedule. Focus on completing in-progress items before starting new work.")
	}

	if completionRisk > 0.7 {
		advice = append(advice, fmt.Sprintf(
			"Low completion rate detected. %d items in progress. Reduce work in progress to improve flow.",
			d.InProgressIssues))
	}

	if blockerRisk > 0.5 {
		advice = append(advice, fmt.Sprintf(
			"%d issues blocked (%.0f pts). Unblock these immediately to maintain velocity.",
			d.BlockedIssues, d.BlockedPoints))
		if d.BlockedIssues <= 5 {
			for _, iss := range issues {
				if iss.Status == domain.StatusBlocked {
					advice = append(advice, fmt.Sprintf("Blocked: %s - %s", iss.ID, truncate(iss.Summary, 50)))
				}
			}
		}
	}

	if len(advice) == 0 {
		advice = append(advice, "Sprint is on track. Continue current pace to meet commitments.")
	}
	return advice
}

// truncate cuts at rune boundaries so multi-byte summaries stay valid UTF-8.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func sprintStart(issues []domain.Issue) *time.Time {
	for _, iss := range issues {
		if iss.SprintStartDate != nil {
			return iss.SprintStartDate
		}
	}
	return nil
}

func sprintEnd(issues []domain.Issue) *time.Time {
	for _, iss := range issues {
		if iss.SprintEndDate != nil {
			return iss.SprintEndDate
		}
	}
	return nil
}
