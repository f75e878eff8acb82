package dashboard_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/dashboard"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/domain"
)

func TestFeed_LatestValues(t *testing.T) {
	f := dashboard.NewFeed(0)

	f.SetMetric(domain.Metric{Name: "cpu", Value: 0.5})
	f.SetMetric(domain.Metric{Name: "active_users", Value: 3})
	f.SetMetric(domain.Metric{Name: "cpu", Value: 0.9})
	f.SetAgentStatus(domain.AgentStatus{AgentID: "grader", Status: "busy"})
	f.SetAgentStatus(domain.AgentStatus{AgentID: "grader", Status: "idle"})

	s := f.Snapshot()
	require.Len(t, s.Metrics, 2)
	assert.Equal(t, "active_users", s.Metrics[0].Name)
	assert.Equal(t, 0.9, s.Metrics[1].Value)
	require.Len(t, s.Agents, 1)
	assert.Equal(t, "idle", s.Agents[0].Status)
}

func TestFeed_Bounded(t *testing.T) {
	f := dashboard.NewFeed(3)

	for i := 0; i < 5; i++ {
		f.AddAlert(domain.Alert{ID: fmt.Sprint(i)})
		f.AddError(domain.LogEntry{Message: fmt.Sprint(i)})
	}
	f.AddSubmission(domain.ContentSubmission{ID: "s1"})
	f.AddActivity(domain.UserActivity{UserID: "alice", Action: "login"})

	s := f.Snapshot()
	require.Len(t, s.Alerts, 3)
	assert.Equal(t, "2", s.Alerts[0].ID, "oldest entries should be dropped first")
	assert.Equal(t, "4", s.Alerts[2].ID)
	assert.Len(t, s.Errors, 3)
	assert.Len(t, s.Submissions, 1)
	assert.Len(t, s.Activity, 1)
}

func TestFeed_EmptySnapshot(t *testing.T) {
	s := dashboard.NewFeed(0).Snapshot()

	assert.NotNil(t, s.Metrics)
	assert.NotNil(t, s.Alerts)
	assert.Empty(t, s.Alerts)
}
