package analytics

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sprintsight/sprintsight/internal/domain"
)

func TestProbabilityRisk(t *testing.T) {
	assert.Equal(t, domain.RiskCritical, probabilityRisk(0.75))
	assert.Equal(t, domain.RiskCritical, probabilityRisk(0.9))
	assert.Equal(t, domain.RiskHigh, probabilityRisk(0.5))
	assert.Equal(t, domain.RiskMedium, probabilityRisk(0.25))
	assert.Equal(t, domain.RiskOnTrack, probabilityRisk(0.1))
}

func TestProgressVsTimeRisk_MissingDatesNeutral(t *testing.T) {
	issues := []domain.Issue{{ID: "1", Status: domain.StatusToDo, StoryPoints: 3}}
	risk := progressVsTimeRisk(issues, detailMetrics(issues), now)
	assert.Equal(t, 0.5, risk)
}

func TestProgressVsTimeRisk_AheadOfSchedule(t *testing.T) {
	start := tp(now.AddDate(0, 0, -2))
	end := tp(now.AddDate(0, 0, 12))
	issues := []domain.Issue{
		{ID: "1", Status: domain.StatusDone, StoryPoints: 8, SprintStartDate: start, SprintEndDate: end},
		{ID: "2", Status: domain.StatusToDo, StoryPoints: 2, SprintStartDate: start, SprintEndDate: end},
	}
	// 80% done at ~14% of the timebox
	assert.Equal(t, 0.0, progressVsTimeRisk(issues, detailMetrics(issues), now))
}

func TestProgressVsTimeRisk_FarBehind(t *testing.T) {
	start := tp(now.AddDate(0, 0, -13))
	end := tp(now.AddDate(0, 0, 1))
	issues := []domain.Issue{
		{ID: "1", Status: domain.StatusToDo, StoryPoints: 10, SprintStartDate: start, SprintEndDate: end},
	}
	// ~93% of the timebox elapsed with nothing done
	assert.Equal(t, 1.0, progressVsTimeRisk(issues, detailMetrics(issues), now))
}

func TestCompletionRateRisk_TodoBacklogPenalty(t *testing.T) {
	d := domain.PredictionDetail{TotalIssues: 10, CompletedIssues: 3, TodoIssues: 6}
	// 30% issue completion scores 0.75, plus 0.2 for the To Do-heavy backlog
	assert.InDelta(t, 0.95, completionRateRisk(d), 0.001)

	d = domain.PredictionDetail{TotalIssues: 10, CompletedIssues: 1, TodoIssues: 9}
	// capped at 1
	assert.Equal(t, 1.0, completionRateRisk(d))
}

func TestBlockerTrendRisk(t *testing.T) {
	assert.Equal(t, 0.0, blockerTrendRisk(domain.PredictionDetail{TotalIssues: 10}))
	assert.Equal(t, 0.2, blockerTrendRisk(domain.PredictionDetail{
		TotalIssues: 20, BlockedIssues: 1, TotalStoryPoints: 100, BlockedPoints: 5,
	}))
	assert.Equal(t, 1.0, blockerTrendRisk(domain.PredictionDetail{
		TotalIssues: 10, BlockedIssues: 4, TotalStoryPoints: 40, BlockedPoints: 20,
	}))
}

func TestBuildPredictions_OrderingAndAdvice(t *testing.T) {
	healthyStart := tp(now.AddDate(0, 0, -2))
	healthyEnd := tp(now.AddDate(0, 0, 12))
	lateStart := tp(now.AddDate(0, 0, -13))
	lateEnd := tp(now.AddDate(0, 0, 1))

	issues := []domain.Issue{
		{ID: "H-1", SprintName: "Healthy", Status: domain.StatusDone, StoryPoints: 8,
			SprintStartDate: healthyStart, SprintEndDate: healthyEnd},
		{ID: "H-2", SprintName: "Healthy", Status: domain.StatusInProgress, StoryPoints: 2,
			SprintStartDate: healthyStart, SprintEndDate: healthyEnd},

		{ID: "L-1", SprintName: "Late", Summary: "payments integration", Status: domain.StatusBlocked,
			IsBlocked: true, StoryPoints: 8, SprintStartDate: lateStart, SprintEndDate: lateEnd},
		{ID: "L-2", SprintName: "Late", Status: domain.StatusToDo, StoryPoints: 8,
			SprintStartDate: lateStart, SprintEndDate: lateEnd},
	}

	preds := BuildPredictions(issues, now)
	require.Len(t, preds, 2)

	late, healthy := preds[0], preds[1]
	assert.Equal(t, "Late", late.SprintName)
	assert.True(t, late.WillDelay)
	assert.Greater(t, late.DelayProbability, healthy.DelayProbability)
	assert.Contains(t, []domain.RiskLevel{domain.RiskHigh, domain.RiskCritical}, late.RiskLevel)

	// blocked issues are named in the advice
	found := false
	for _, a := range late.Recommendations {
		if a == "Blocked: L-1 - payments integration" {
			found = true
		}
	}
	assert.True(t, found)

	assert.Equal(t, "Healthy", healthy.SprintName)
	assert.False(t, healthy.WillDelay)
	require.NotEmpty(t, healthy.Recommendations)
	assert.Equal(t, 2, healthy.Metrics.TotalIssues)
}

func TestBuildPredictions_SkipsSprintlessIssues(t *testing.T) {
	issues := []domain.Issue{
		{ID: "1", SprintName: "", Status: domain.StatusToDo, StoryPoints: 3},
	}
	assert.Empty(t, BuildPredictions(issues, now))
}

func TestPredictOne_EarlyWarning(t *testing.T) {
	start := tp(now.AddDate(0, 0, -10))
	end := tp(now.AddDate(0, 0, 5))
	issues := []domain.Issue{
		{ID: "1", SprintName: "W", Status: domain.StatusToDo, StoryPoints: 10,
			SprintStartDate: start, SprintEndDate: end},
		{ID: "2", SprintName: "W", Status: domain.StatusBlocked, StoryPoints: 10,
			IsBlocked: true, SprintStartDate: start, SprintEndDate: end},
	}
	p := predictOne("W", issues, now)
	assert.True(t, p.WillDelay)
	assert.Equal(t, 5, p.DaysRemaining)
	assert.True(t, p.EarlyWarning)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 50))
	long := "this summary is definitely longer than the fifty character cutoff"
	assert.Len(t, truncate(long, 50), 50)

	// never splits a multi-byte rune
	accented := strings.Repeat("é", 60)
	got := truncate(accented, 50)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 50, utf8.RuneCountInString(got))
}
