package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sprintsight/sprintsight/internal/config"
	"github.com/sprintsight/sprintsight/internal/domain"
	"github.com/sprintsight/sprintsight/internal/store"
)

const sampleUpload = `Issue key,Summary,Sprint,Assignee,Status,Story Points,Sprint Start Date,Sprint End Date
PROJ-1,Login page,Sprint 1,alice,Done,5,2026-08-10,2026-08-24
PROJ-2,Search api,Sprint 1,bob,In Progress,3,2026-08-10,2026-08-24
PROJ-3,Billing,Sprint 2,alice,To Do,8,2026-08-25,2026-09-08
PROJ-4,Flaky pipeline,Sprint 2,bob,Blocked,2,2026-08-25,2026-09-08
,missing id row,Sprint 2,bob,To Do,2,2026-08-25,2026-09-08
`

// fakeTracker serves a canned one-board, one-sprint Jira payload.
type fakeTracker struct {
	myselfErr error
	boardsErr error
	issues    []any
}

func (f *fakeTracker) Myself(ctx context.Context) error { return f.myselfErr }

func (f *fakeTracker) Boards(ctx context.Context, startAt, max int) (map[string]any, error) {
	if f.boardsErr != nil {
		return nil, f.boardsErr
	}
	return map[string]any{
		"values": []any{map[string]any{"id": float64(7), "name": "Board"}},
		"isLast": true,
	}, nil
}

func (f *fakeTracker) Sprints(ctx context.Context, boardID int64, startAt int) (map[string]any, error) {
	return map[string]any{
		"values": []any{map[string]any{
			"id":        float64(42),
			"name":      "Sprint 9",
			"startDate": "2026-08-17T09:00:00.000Z",
			"endDate":   "2026-08-31T17:00:00.000Z",
		}},
		"isLast": true,
	}, nil
}

func (f *fakeTracker) SprintIssues(ctx context.Context, sprintID int64, startAt, max int) (map[string]any, error) {
	return map[string]any{"issues": f.issues, "isLast": true}, nil
}

func jiraIssue(key, status, assignee string, points float64) map[string]any {
	return map[string]any{
		"key": key,
		"fields": map[string]any{
			"summary":           key + " work",
			"status":            map[string]any{"name": status},
			"assignee":          map[string]any{"displayName": assignee},
			"customfield_10016": points,
		},
	}
}

func testConfig() config.Config {
	return config.Config{
		JiraDomainSuffix: ".atlassian.net",
		JiraPageSize:     100,
		LookbackDays:     30,
		MaxTeamMembers:   10,
		OpenAITimeout:    5 * time.Second,
	}
}

func newTestService(tc TrackerClient) (*Service, *store.Store) {
	st := store.New()
	factory := func(baseURL, email, token string) TrackerClient { return tc }
	return New(testConfig(), zerolog.Nop(), st, nil, factory, nil), st
}

func validCreds() Credentials {
	return Credentials{JiraURL: "https://acme.atlassian.net", Email: "dev@acme.com", Token: "tok"}
}

func TestUploadFile_ReplacesDataset(t *testing.T) {
	svc, _ := newTestService(nil)

	sum, err := svc.UploadFile(context.Background(), "export.csv", []byte(sampleUpload))
	require.NoError(t, err)
	assert.Equal(t, 4, sum.TotalIssues)
	assert.Equal(t, 2, sum.TotalSprints)
	assert.Equal(t, 1, sum.SkippedRows)

	sprints, err := svc.Sprints()
	require.NoError(t, err)
	assert.Len(t, sprints, 2)

	dash, err := svc.Dashboard()
	require.NoError(t, err)
	assert.Equal(t, 4, dash.TotalIssues)
}

func TestUploadFile_UnsupportedFormat(t *testing.T) {
	svc, _ := newTestService(nil)
	_, err := svc.UploadFile(context.Background(), "export.pdf", []byte("%PDF"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestUploadFile_FailureKeepsPreviousDataset(t *testing.T) {
	svc, _ := newTestService(nil)
	_, err := svc.UploadFile(context.Background(), "good.csv", []byte(sampleUpload))
	require.NoError(t, err)

	allMalformed := "Issue key,Status\n,Done\n,To Do\n"
	_, err = svc.UploadFile(context.Background(), "bad.csv", []byte(allMalformed))
	assert.ErrorIs(t, err, domain.ErrEmptyDataset)

	// previous generation still serves queries
	sprints, err := svc.Sprints()
	require.NoError(t, err)
	assert.Len(t, sprints, 2)
}

func TestQueries_NoDataset(t *testing.T) {
	svc, _ := newTestService(nil)

	_, err := svc.Dashboard()
	assert.ErrorIs(t, err, domain.ErrNoDataset)
	_, err = svc.Sprints()
	assert.ErrorIs(t, err, domain.ErrNoDataset)
	_, err = svc.TeamPerformance()
	assert.ErrorIs(t, err, domain.ErrNoDataset)
	_, err = svc.Predictions()
	assert.ErrorIs(t, err, domain.ErrNoDataset)
	_, err = svc.Recommendations(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoDataset)
}

func TestValidateCredentials(t *testing.T) {
	svc, _ := newTestService(nil)

	assert.NoError(t, svc.ValidateCredentials(validCreds()))
	// trailing slash and case are tolerated
	assert.NoError(t, svc.ValidateCredentials(Credentials{
		JiraURL: "https://Acme.Atlassian.Net/", Email: "a@b.c", Token: "t",
	}))

	for name, c := range map[string]Credentials{
		"wrong host":  {JiraURL: "https://acme.example.com", Email: "a@b.c", Token: "t"},
		"empty url":   {Email: "a@b.c", Token: "t"},
		"empty email": {JiraURL: "https://acme.atlassian.net", Token: "t"},
		"empty token": {JiraURL: "https://acme.atlassian.net", Email: "a@b.c"},
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, svc.ValidateCredentials(c), domain.ErrInvalidCredentials)
		})
	}
}

func TestTestConnection(t *testing.T) {
	ok, msg := func() (bool, string) {
		svc, _ := newTestService(&fakeTracker{})
		return svc.TestConnection(context.Background(), validCreds())
	}()
	assert.True(t, ok)
	assert.NotEmpty(t, msg)

	svc, st := newTestService(&fakeTracker{myselfErr: domain.ErrTrackerAuth})
	ok, msg = svc.TestConnection(context.Background(), validCreds())
	assert.False(t, ok)
	assert.Contains(t, msg, "Connection failed")

	// a test never touches the dataset or the connection state
	_, err := st.Current()
	assert.ErrorIs(t, err, domain.ErrNoDataset)
	assert.False(t, svc.Status().Connected)
}

func TestConnect_FetchesAndStoresCredentials(t *testing.T) {
	ft := &fakeTracker{issues: []any{
		jiraIssue("JRA-1", "Done", "alice", 5),
		jiraIssue("JRA-2", "Blocked", "bob", 3),
	}}
	svc, st := newTestService(ft)

	sum, err := svc.Connect(context.Background(), validCreds())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.TotalIssues)
	assert.Equal(t, 1, sum.TotalSprints)

	snap, err := st.Current()
	require.NoError(t, err)
	assert.Equal(t, "jira:https://acme.atlassian.net", snap.Source)
	require.Len(t, snap.Issues, 2)
	assert.Equal(t, "Sprint 9", snap.Issues[0].SprintName)
	require.NotNil(t, snap.Issues[0].SprintStartDate)

	status := svc.Status()
	assert.True(t, status.Connected)
	assert.Equal(t, "dev@acme.com", status.Email)
}

func TestConnect_AuthFailureStoresNothing(t *testing.T) {
	svc, st := newTestService(&fakeTracker{myselfErr: domain.ErrTrackerAuth})

	_, err := svc.Connect(context.Background(), validCreds())
	assert.ErrorIs(t, err, domain.ErrTrackerAuth)
	assert.False(t, svc.Status().Connected)
	_, err = st.Current()
	assert.ErrorIs(t, err, domain.ErrNoDataset)
}

func TestConnect_EmptyProjectFails(t *testing.T) {
	svc, _ := newTestService(&fakeTracker{issues: []any{}})
	_, err := svc.Connect(context.Background(), validCreds())
	assert.ErrorIs(t, err, domain.ErrEmptyDataset)
}

func TestRefresh_RequiresConnection(t *testing.T) {
	svc, _ := newTestService(&fakeTracker{})
	_, err := svc.Refresh(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotConnected)
}

func TestRefresh_ReusesStoredCredentials(t *testing.T) {
	ft := &fakeTracker{issues: []any{jiraIssue("JRA-1", "To Do", "alice", 2)}}
	svc, st := newTestService(ft)

	_, err := svc.Connect(context.Background(), validCreds())
	require.NoError(t, err)

	ft.issues = append(ft.issues, jiraIssue("JRA-2", "Done", "bob", 4))
	sum, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.TotalIssues)

	snap, err := st.Current()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), snap.Generation)
}

func TestRefresh_FetchFailureKeepsDataset(t *testing.T) {
	ft := &fakeTracker{issues: []any{jiraIssue("JRA-1", "Done", "alice", 2)}}
	svc, st := newTestService(ft)
	_, err := svc.Connect(context.Background(), validCreds())
	require.NoError(t, err)

	ft.boardsErr = errors.New("boom")
	_, err = svc.Refresh(context.Background())
	require.Error(t, err)

	snap, err := st.Current()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), snap.Generation)
}

type fakeInsighter struct {
	msg string
	err error
}

func (f *fakeInsighter) Enabled() bool { return true }
func (f *fakeInsighter) Insight(ctx context.Context, summaries []string) (string, error) {
	return f.msg, f.err
}

func TestRecommendations_AppendsInsight(t *testing.T) {
	st := store.New()
	cfg := testConfig()
	svc := New(cfg, zerolog.Nop(), st, nil, nil, &fakeInsighter{msg: "Consider splitting Sprint 2."})

	_, err := svc.UploadFile(context.Background(), "export.csv", []byte(sampleUpload))
	require.NoError(t, err)

	prompts, err := svc.Recommendations(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, prompts)

	last := prompts[len(prompts)-1]
	assert.Equal(t, "AI Insight", last.Title)
	assert.Equal(t, domain.PromptInfo, last.PromptType)
	assert.Equal(t, "Consider splitting Sprint 2.", last.Message)
}

func TestRecommendations_InsightFailureIsSwallowed(t *testing.T) {
	st := store.New()
	svc := New(testConfig(), zerolog.Nop(), st, nil, nil, &fakeInsighter{err: errors.New("rate limited")})

	_, err := svc.UploadFile(context.Background(), "export.csv", []byte(sampleUpload))
	require.NoError(t, err)

	prompts, err := svc.Recommendations(context.Background())
	require.NoError(t, err)
	for _, p := range prompts {
		assert.NotEqual(t, "AI Insight", p.Title)
	}
}

func TestLastUpload_WithoutAudit(t *testing.T) {
	svc, _ := newTestService(nil)
	_, err := svc.LastUpload(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoDataset)
}
