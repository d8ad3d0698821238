package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusDistribution_MarshalsInWorkflowOrder(t *testing.T) {
	d := StatusDistribution{
		StatusDone:       4,
		StatusBlocked:    1,
		StatusToDo:       2,
		StatusInProgress: 3,
	}
	b, err := json.Marshal(d)
	require.NoError(t, err)

	// keys appear in workflow order, with absent statuses zero-filled,
	// not in Go's lexical map-key order
	assert.Equal(t,
		`{"To Do":2,"In Progress":3,"In Review":0,"Blocked":1,"Done":4,"Cancelled":0}`,
		string(b))

	var back map[Status]int
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, 4, back[StatusDone])
	assert.Equal(t, 0, back[StatusCancelled])
}

func TestSprintMetrics_DistributionOrderSurvivesEmbedding(t *testing.T) {
	m := SprintMetrics{
		SprintName:         "Sprint 7",
		StatusDistribution: StatusDistribution{StatusDone: 1, StatusBlocked: 2},
	}
	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(b),
		`"status_distribution":{"To Do":0,"In Progress":0,"In Review":0,"Blocked":2,"Done":1,"Cancelled":0}`)
}
