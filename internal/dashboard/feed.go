// Package dashboard keeps the admin metric feed pushed on the room socket.
package dashboard

import (
	"sort"

	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/domain"
)

const DefaultLimit = 100

// Feed keeps the latest value of every metric, the latest status of every agent and the last
// entries of the log-like streams. It is read-only for the rest of the session.
type Feed struct {
	limit       int
	metrics     map[string]domain.Metric
	agents      map[string]domain.AgentStatus
	errors      []domain.LogEntry
	alerts      []domain.Alert
	submissions []domain.ContentSubmission
	activity    []domain.UserActivity
}

// Snapshot is a copy of the feed.
type Snapshot struct {
	Metrics     []domain.Metric            `json:"metrics"`
	Agents      []domain.AgentStatus       `json:"agents"`
	Errors      []domain.LogEntry          `json:"errors"`
	Alerts      []domain.Alert             `json:"alerts"`
	Submissions []domain.ContentSubmission `json:"submissions"`
	Activity    []domain.UserActivity      `json:"activity"`
}

func NewFeed(limit int) *Feed {
	if limit <= 0 {
		limit = DefaultLimit
	}

	return &Feed{
		limit:   limit,
		metrics: make(map[string]domain.Metric),
		agents:  make(map[string]domain.AgentStatus),
	}
}

func (f *Feed) SetMetric(m domain.Metric) { f.metrics[m.Name] = m }

func (f *Feed) SetAgentStatus(a domain.AgentStatus) { f.agents[a.AgentID] = a }

func (f *Feed) AddError(e domain.LogEntry) { f.errors = push(f.errors, e, f.limit) }

func (f *Feed) AddAlert(a domain.Alert) { f.alerts = push(f.alerts, a, f.limit) }

func (f *Feed) AddSubmission(s domain.ContentSubmission) {
	f.submissions = push(f.submissions, s, f.limit)
}

func (f *Feed) AddActivity(a domain.UserActivity) { f.activity = push(f.activity, a, f.limit) }

// push appends v and drops the oldest entries beyond limit.
func push[T any](s []T, v T, limit int) []T {
	s = append(s, v)
	if n := len(s) - limit; n > 0 {
		s = append(s[:0:0], s[n:]...)
	}
	return s
}

func (f *Feed) Snapshot() Snapshot {
	s := Snapshot{
		Metrics:     make([]domain.Metric, 0, len(f.metrics)),
		Agents:      make([]domain.AgentStatus, 0, len(f.agents)),
		Errors:      append([]domain.LogEntry{}, f.errors...),
		Alerts:      append([]domain.Alert{}, f.alerts...),
		Submissions: append([]domain.ContentSubmission{}, f.submissions...),
		Activity:    append([]domain.UserActivity{}, f.activity...),
	}

	for _, m := range f.metrics {
		s.Metrics = append(s.Metrics, m)
	}
	sort.Slice(s.Metrics, func(i, j int) bool { return s.Metrics[i].Name < s.Metrics[j].Name })

	for _, a := range f.agents {
		s.Agents = append(s.Agents, a)
	}
	sort.Slice(s.Agents, func(i, j int) bool { return s.Agents[i].AgentID < s.Agents[j].AgentID })

	return s
}
