package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sprintsight/sprintsight/internal/analytics"
	"github.com/sprintsight/sprintsight/internal/config"
	"github.com/sprintsight/sprintsight/internal/domain"
	"github.com/sprintsight/sprintsight/internal/ingest"
	"github.com/sprintsight/sprintsight/internal/repo"
	"github.com/sprintsight/sprintsight/internal/store"
)

// TrackerClient is the outbound capability "fetch issues given
// credentials". Every call is timeout-bounded by the adapter.
type TrackerClient interface {
	Myself(ctx context.Context) error
	Boards(ctx context.Context, startAt, max int) (map[string]any, error)
	Sprints(ctx context.Context, boardID int64, startAt int) (map[string]any, error)
	SprintIssues(ctx context.Context, sprintID int64, startAt, max int) (map[string]any, error)
}

// TrackerFactory builds a client for one credential set.
type TrackerFactory func(baseURL, email, token string) TrackerClient

// Insighter is the optional LLM hook appended to recommendations.
type Insighter interface {
	Enabled() bool
	Insight(ctx context.Context, sprintSummaries []string) (string, error)
}

type Credentials struct {
	JiraURL string
	Email   string
	Token   string
}

type ConnectionStatus struct {
	Connected bool   `json:"connected"`
	JiraURL   string `json:"jira_url,omitempty"`
	Email     string `json:"email,omitempty"`
}

type IngestSummary struct {
	TotalIssues  int `json:"total_issues"`
	TotalSprints int `json:"total_sprints"`
	SkippedRows  int `json:"skipped_rows"`
}

type Service struct {
	cfg        config.Config
	log        zerolog.Logger
	store      *store.Store
	audit      *repo.Repository // nil when auditing is disabled
	newTracker TrackerFactory
	insight    Insighter

	mu    sync.Mutex
	creds *Credentials
}

func New(cfg config.Config, log zerolog.Logger, st *store.Store, audit *repo.Repository, newTracker TrackerFactory, insight Insighter) *Service {
	return &Service{cfg: cfg, log: log, store: st, audit: audit, newTracker: newTracker, insight: insight}
}

// ---- ingestion surface ----

// UploadFile parses a CSV/Excel export, normalizes it and atomically
// replaces the dataset. A failed attempt leaves the previous dataset
// untouched.
func (s *Service) UploadFile(ctx context.Context, filename string, data []byte) (IngestSummary, error) {
	rows, err := ingest.ParseFile(filename, data)
	if err != nil {
		return IngestSummary{}, err
	}
	res, err := ingest.NormalizeRows(rows)
	if err != nil {
		return IngestSummary{}, err
	}
	snap := s.store.Replace(res.Issues, "upload:"+filename)
	s.log.Info().Str("file", filename).Int("issues", len(res.Issues)).Int("skipped", res.Skipped).
		Uint64("generation", snap.Generation).Msg("dataset replaced from upload")

	if s.audit != nil {
		if err := s.audit.RecordUpload(ctx, filename, len(res.Issues), res.Skipped); err != nil {
			s.log.Error().Err(err).Msg("upload audit write failed")
		}
	}
	return IngestSummary{
		TotalIssues:  len(res.Issues),
		TotalSprints: countSprints(res.Issues),
		SkippedRows:  res.Skipped,
	}, nil
}

// ValidateCredentials applies the necessary-not-sufficient checks; the
// authoritative check is TestConnection's live call.
func (s *Service) ValidateCredentials(c Credentials) error {
	u := strings.ToLower(strings.TrimRight(strings.TrimSpace(c.JiraURL), "/"))
	if u == "" || !strings.HasSuffix(u, s.cfg.JiraDomainSuffix) {
		return fmt.Errorf("%w: jira_url must reference a %s site", domain.ErrInvalidCredentials, s.cfg.JiraDomainSuffix)
	}
	if strings.TrimSpace(c.Email) == "" {
		return fmt.Errorf("%w: email must not be empty", domain.ErrInvalidCredentials)
	}
	if strings.TrimSpace(c.Token) == "" {
		return fmt.Errorf("%w: api_token must not be empty", domain.ErrInvalidCredentials)
	}
	return nil
}

// TestConnection performs a lightweight authenticated call. It never
// mutates the dataset or the stored credentials.
func (s *Service) TestConnection(ctx context.Context, c Credentials) (bool, string) {
	if err := s.ValidateCredentials(c); err != nil {
		return false, err.Error()
	}
	tc := s.newTracker(c.JiraURL, c.Email, c.Token)
	if err := tc.Myself(ctx); err != nil {
		s.log.Warn().Err(err).Str("url", c.JiraURL).Msg("tracker connection test failed")
		return false, "Connection failed: " + err.Error()
	}
	return true, "Connection successful! Credentials are valid."
}

// Connect validates the credentials with a live call, stores them for the
// session, then performs a full fetch and replaces the dataset.
func (s *Service) Connect(ctx context.Context, c Credentials) (IngestSummary, error) {
	if err := s.ValidateCredentials(c); err != nil {
		return IngestSummary{}, err
	}
	tc := s.newTracker(c.JiraURL, c.Email, c.Token)
	if err := tc.Myself(ctx); err != nil {
		return IngestSummary{}, err
	}

	sum, err := s.fetchAndReplace(ctx, tc, c.JiraURL)
	if err != nil {
		return IngestSummary{}, err
	}

	s.mu.Lock()
	s.creds = &c
	s.mu.Unlock()

	if s.audit != nil {
		if err := s.audit.RecordConnection(ctx, c.JiraURL, c.Email); err != nil {
			s.log.Error().Err(err).Msg("connection audit write failed")
		}
	}
	return sum, nil
}

// Refresh re-fetches with the stored credentials.
func (s *Service) Refresh(ctx context.Context) (IngestSummary, error) {
	s.mu.Lock()
	creds := s.creds
	s.mu.Unlock()
	if creds == nil {
		return IngestSummary{}, domain.ErrNotConnected
	}
	tc := s.newTracker(creds.JiraURL, creds.Email, creds.Token)
	return s.fetchAndReplace(ctx, tc, creds.JiraURL)
}

func (s *Service) Status() ConnectionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.creds == nil {
		return ConnectionStatus{Connected: false}
	}
	return ConnectionStatus{Connected: true, JiraURL: s.creds.JiraURL, Email: s.creds.Email}
}

// fetchAndReplace walks boards, sprints per board and issues per sprint.
// A failing board is logged and skipped; the fetch fails only when nothing
// at all was collected, and then the previous dataset stays live.
func (s *Service) fetchAndReplace(ctx context.Context, tc TrackerClient, source string) (IngestSummary, error) {
	var issues []domain.Issue
	skipped := 0

	startAt := 0
	for {
		page, err := tc.Boards(ctx, startAt, 50)
		if err != nil {
			if len(issues) == 0 {
				return IngestSummary{}, err
			}
			break
		}
		boards, _ := page["values"].([]any)
		if len(boards) == 0 {
			break
		}
		for _, b0 := range boards {
			b, _ := b0.(map[string]any)
			if b == nil {
				continue
			}
			boardID := toInt64(b["id"])
			if boardID <= 0 {
				continue
			}
			got, skip, err := s.fetchBoard(ctx, tc, boardID)
			if err != nil {
				s.log.Error().Err(err).Int64("board", boardID).Msg("board fetch failed; skipping")
				continue
			}
			issues = append(issues, got...)
			skipped += skip
		}
		if last, _ := page["isLast"].(bool); last || len(boards) < 50 {
			break
		}
		startAt += len(boards)
	}

	if len(issues) == 0 {
		return IngestSummary{}, domain.ErrEmptyDataset
	}
	snap := s.store.Replace(issues, "jira:"+source)
	s.log.Info().Int("issues", len(issues)).Uint64("generation", snap.Generation).Msg("dataset replaced from tracker")
	return IngestSummary{
		TotalIssues:  len(issues),
		TotalSprints: countSprints(issues),
		SkippedRows:  skipped,
	}, nil
}

func (s *Service) fetchBoard(ctx context.Context, tc TrackerClient, boardID int64) ([]domain.Issue, int, error) {
	var issues []domain.Issue
	skipped := 0

	startAt := 0
	for {
		page, err := tc.Sprints(ctx, boardID, startAt)
		if err != nil {
			return nil, 0, err
		}
		sprints, _ := page["values"].([]any)
		if len(sprints) == 0 {
			break
		}
		for _, sp0 := range sprints {
			sp, _ := sp0.(map[string]any)
			if sp == nil {
				continue
			}
			sprintID := toInt64(sp["id"])
			name, _ := sp["name"].(string)
			if sprintID <= 0 || name == "" {
				continue
			}
			sctx := ingest.SprintContext{
				Name:      name,
				StartDate: parseJiraTime(sp["startDate"]),
				EndDate:   parseJiraTime(sp["endDate"]),
			}
			got, skip, err := s.fetchSprintIssues(ctx, tc, sprintID, sctx)
			if err != nil {
				return nil, 0, err
			}
			issues = append(issues, got...)
			skipped += skip
		}
		if last, _ := page["isLast"].(bool); last || len(sprints) < 50 {
			break
		}
		startAt += len(sprints)
	}
	return issues, skipped, nil
}

func (s *Service) fetchSprintIssues(ctx context.Context, tc TrackerClient, sprintID int64, sctx ingest.SprintContext) ([]domain.Issue, int, error) {
	pageSize := s.cfg.JiraPageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	var issues []domain.Issue
	skipped := 0

	startAt := 0
	for {
		page, err := tc.SprintIssues(ctx, sprintID, startAt, pageSize)
		if err != nil {
			return nil, 0, err
		}
		arr, _ := page["issues"].([]any)
		if len(arr) == 0 {
			break
		}
		raws := make([]map[string]any, 0, len(arr))
		for _, it := range arr {
			if im, _ := it.(map[string]any); im != nil {
				raws = append(raws, im)
			}
		}
		res := ingest.NormalizeJiraIssues(raws, sctx)
		issues = append(issues, res.Issues...)
		skipped += res.Skipped

		if last, _ := page["isLast"].(bool); last || len(arr) < pageSize {
			break
		}
		startAt += len(arr)
	}
	return issues, skipped, nil
}

// ---- query surface ----

func (s *Service) Dashboard() (domain.DashboardSummary, error) {
	snap, err := s.store.Current()
	if err != nil {
		return domain.DashboardSummary{}, err
	}
	sprints := analytics.BuildSprintMetrics(snap.Issues, time.Now().UTC())
	return analytics.BuildDashboard(sprints), nil
}

func (s *Service) Sprints() ([]domain.SprintMetrics, error) {
	snap, err := s.store.Current()
	if err != nil {
		return nil, err
	}
	return analytics.BuildSprintMetrics(snap.Issues, time.Now().UTC()), nil
}

func (s *Service) TeamPerformance() ([]domain.TeamMemberMetrics, error) {
	snap, err := s.store.Current()
	if err != nil {
		return nil, err
	}
	return analytics.BuildTeamMetrics(snap.Issues, s.cfg.MaxTeamMembers), nil
}

func (s *Service) Predictions() ([]domain.DelayPrediction, error) {
	snap, err := s.store.Current()
	if err != nil {
		return nil, err
	}
	return analytics.BuildPredictions(snap.Issues, time.Now().UTC()), nil
}

// Recommendations evaluates the rule set and, when the LLM hook is
// configured and any rule fired, appends one AI-insight info prompt.
// Insight failures are logged and swallowed; the rule prompts stand alone.
func (s *Service) Recommendations(ctx context.Context) ([]domain.RecommendationPrompt, error) {
	snap, err := s.store.Current()
	if err != nil {
		return nil, err
	}
	sprints := analytics.BuildSprintMetrics(snap.Issues, time.Now().UTC())
	prompts := analytics.BuildRecommendations(sprints, time.Now().UTC(), s.cfg.LookbackDays)

	if s.insight != nil && s.insight.Enabled() && len(prompts) > 0 {
		summaries := make([]string, 0, 3)
		for i, sm := range sprints {
			if i >= 3 {
				break
			}
			summaries = append(summaries, fmt.Sprintf("%s: %.0f%% complete, %.0f total points, %.0f completed",
				sm.SprintName, sm.CompletionPercentage, sm.TotalStoryPoints, sm.CompletedStoryPoints))
		}
		ictx, cancel := context.WithTimeout(ctx, s.cfg.OpenAITimeout)
		defer cancel()
		if msg, err := s.insight.Insight(ictx, summaries); err != nil {
			s.log.Error().Err(err).Msg("ai insight failed")
		} else if msg != "" {
			prompts = append(prompts, domain.RecommendationPrompt{
				ID:         analytics.PromptID(analytics.OverallSprint, analytics.RuleAIInsight),
				SprintName: analytics.OverallSprint,
				PromptType: domain.PromptInfo,
				Title:      "AI Insight",
				Message:    msg,
			})
		}
	}
	return prompts, nil
}

func (s *Service) LastUpload(ctx context.Context) (*repo.UploadRecord, error) {
	if s.audit == nil {
		return nil, domain.ErrNoDataset
	}
	return s.audit.LastUpload(ctx)
}

// ---- helpers ----

func countSprints(issues []domain.Issue) int {
	seen := map[string]struct{}{}
	for _, iss := range issues {
		if iss.SprintName != "" {
			seen[iss.SprintName] = struct{}{}
		}
	}
	return len(seen)
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}

func parseJiraTime(v any) *time.Time {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	layouts := []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.000-0700"}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			tt := t.UTC()
			return &tt
		}
	}
	return nil
}
