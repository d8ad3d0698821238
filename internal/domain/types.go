package domain

import (
	"bytes"
	"strconv"
	"time"
)

// Status is the canonical workflow state of an issue. Source systems map
// their own vocabularies onto this fixed set during normalization.
type Status string

const (
	StatusToDo       Status = "To Do"
	StatusInProgress Status = "In Progress"
	StatusInReview   Status = "In Review"
	StatusBlocked    Status = "Blocked"
	StatusDone       Status = "Done"
	StatusCancelled  Status = "Cancelled"
)

// AllStatuses is the fixed ordering used for status distributions.
var AllStatuses = []Status{
	StatusToDo,
	StatusInProgress,
	StatusInReview,
	StatusBlocked,
	StatusDone,
	StatusCancelled,
}

// StatusDistribution counts issues per canonical status. It marshals in
// AllStatuses order, not Go's lexical map-key sort: consumers render the
// buckets in workflow order and iterate the object as emitted.
type StatusDistribution map[Status]int

func (d StatusDistribution) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, st := range AllStatuses {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(string(st)))
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(d[st]))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// RiskLevel classifies a sprint's likelihood of missing its commitment.
type RiskLevel string

const (
	RiskOnTrack  RiskLevel = "on_track"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// PromptType orders recommendation prompts by urgency.
type PromptType string

const (
	PromptCritical PromptType = "critical"
	PromptWarning  PromptType = "warning"
	PromptSuccess  PromptType = "success"
	PromptInfo     PromptType = "info"
)

// Unassigned is the bucket for issues whose source record carries no assignee.
const Unassigned = "Unassigned"

// Issue is the canonical, source-agnostic representation of one tracked
// work item. An Issue belongs to at most one sprint; StoryPoints is never
// negative; Status is always one of the fixed set.
type Issue struct {
	ID              string     `json:"id"`
	Summary         string     `json:"summary,omitempty"`
	SprintName      string     `json:"sprint_name"`
	Assignee        string     `json:"assignee"`
	Status          Status     `json:"status"`
	StoryPoints     float64    `json:"story_points"`
	IsBlocked       bool       `json:"is_blocked"`
	SprintStartDate *time.Time `json:"sprint_start_date,omitempty"`
	SprintEndDate   *time.Time `json:"sprint_end_date,omitempty"`
}

// SprintMetrics is recomputed from the current dataset on every read; it
// is never stored.
type SprintMetrics struct {
	SprintName            string             `json:"sprint_name"`
	StartDate             *time.Time         `json:"start_date"`
	EndDate               *time.Time         `json:"end_date"`
	TotalIssues           int                `json:"total_issues"`
	TotalStoryPoints      float64            `json:"total_story_points"`
	CompletedStoryPoints  float64            `json:"completed_story_points"`
	InProgressStoryPoints float64            `json:"in_progress_story_points"`
	TodoStoryPoints       float64            `json:"todo_story_points"`
	BlockedStoryPoints    float64            `json:"blocked_story_points"`
	CompletionPercentage  float64            `json:"completion_percentage"`
	DaysRemaining         *int               `json:"days_remaining"`
	DaysElapsed           *int               `json:"days_elapsed"`
	RiskLevel             RiskLevel          `json:"risk_level"`
	Velocity              float64            `json:"velocity"`
	StatusDistribution    StatusDistribution `json:"status_distribution"`
}

type TeamMemberMetrics struct {
	Name            string  `json:"name"`
	AssignedPoints  float64 `json:"assigned_points"`
	CompletedPoints float64 `json:"completed_points"`
	CompletionRate  float64 `json:"completion_rate"`
}

type DashboardSummary struct {
	TotalSprints    int     `json:"total_sprints"`
	TotalIssues     int     `json:"total_issues"`
	AverageVelocity float64 `json:"average_velocity"`
	AtRiskSprints   int     `json:"at_risk_sprints"`
	CompletionRate  float64 `json:"completion_rate"`
}

// RecommendationPrompt carries one advisory message. ID is a stable hash
// of (sprint, rule) so recomputation yields the same identifier and the
// consumer can de-duplicate across refreshes.
type RecommendationPrompt struct {
	ID         string     `json:"id"`
	SprintName string     `json:"sprint_name"`
	PromptType PromptType `json:"prompt_type"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
}

// DelayPrediction is the weighted-factor delay forecast for one sprint.
type DelayPrediction struct {
	SprintName       string            `json:"sprint_name"`
	WillDelay        bool              `json:"will_delay"`
	DelayProbability float64           `json:"delay_probability"`
	RiskLevel        RiskLevel         `json:"risk_level"`
	DaysRemaining    int               `json:"days_remaining"`
	Factors          PredictionFactors `json:"factors"`
	Recommendations  []string          `json:"recommendations"`
	EarlyWarning     bool              `json:"early_warning"`
	Metrics          PredictionDetail  `json:"metrics"`
}

type PredictionFactors struct {
	ProgressRisk       float64 `json:"progress_risk"`
	CompletionRateRisk float64 `json:"completion_rate_risk"`
	BlockerRisk        float64 `json:"blocker_risk"`
}

type PredictionDetail struct {
	TotalIssues          int     `json:"total_issues"`
	TotalStoryPoints     float64 `json:"total_story_points"`
	CompletedIssues      int     `json:"completed_issues"`
	CompletedPoints      float64 `json:"completed_points"`
	InProgressIssues     int     `json:"in_progress_issues"`
	InProgressPoints     float64 `json:"in_progress_points"`
	BlockedIssues        int     `json:"blocked_issues"`
	BlockedPoints        float64 `json:"blocked_points"`
	TodoIssues           int     `json:"todo_issues"`
	TodoPoints           float64 `json:"todo_points"`
	CompletionPercentage float64 `json:"completion_percentage"`
}
