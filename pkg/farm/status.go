package farm

import (
	"fmt"
	"sort"
	"time"

	"github.com/framewell/renderfarm/pkg/allocator"
	"github.com/framewell/renderfarm/pkg/metrics"
	"github.com/framewell/renderfarm/pkg/types"
)

// JobStatusInfo is the external view of one job.
type JobStatusInfo struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	ClientID       string            `json:"client_id"`
	Status         types.JobStatus   `json:"status"`
	Priority       types.JobPriority `json:"priority"`
	Progress       float64           `json:"progress"`
	ErrorCount     int               `json:"error_count"`
	AssignedNodeID string            `json:"assigned_node_id,omitempty"`
	Deadline       time.Time         `json:"deadline"`
	RemainingHours float64           `json:"remaining_hours"`

	// WillMeetDeadline compares remaining work against the time left; it
	// is advisory and recomputed on every read.
	WillMeetDeadline bool     `json:"will_meet_deadline"`
	Dependencies     []string `json:"dependencies,omitempty"`
}

// ClientStatusInfo summarizes one client's standing in the farm.
type ClientStatusInfo struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	SLATier             string `json:"sla_tier"`
	GuaranteedResources int    `json:"guaranteed_resources"`
	MaxResources        int    `json:"max_resources"`
	UnitsInUse          int    `json:"units_in_use"`
	ActiveJobs          int    `json:"active_jobs"`
	CompletedJobs       int    `json:"completed_jobs"`
}

// FarmStatusInfo is a whole-farm summary for dashboards.
type FarmStatusInfo struct {
	Time         time.Time      `json:"time"`
	TotalNodes   int            `json:"total_nodes"`
	OnlineNodes  int            `json:"online_nodes"`
	BusyNodes    int            `json:"busy_nodes"`
	TotalClients int            `json:"total_clients"`

	// Utilization is busy nodes over online nodes, 0 when none are online.
	Utilization  float64        `json:"utilization"`
	JobsByStatus map[string]int `json:"jobs_by_status"`
}

// JobStatusView returns the external view of a job.
func (m *Manager) JobStatusView(jobID string) (JobStatusInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return JobStatusInfo{}, fmt.Errorf("%w: %s", ErrUnknownJob, jobID)
	}
	return jobInfo(job), nil
}

// JobStatusViews returns the external view of every job, ordered by id
// for stable output.
func (m *Manager) JobStatusViews() []JobStatusInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]JobStatusInfo, 0, len(m.jobs))
	for _, job := range m.jobs {
		out = append(out, jobInfo(job))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ClientStatusView summarizes a client's resource usage and job counts.
func (m *Manager) ClientStatusView(clientID string) (ClientStatusInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	client, ok := m.clients[clientID]
	if !ok {
		return ClientStatusInfo{}, fmt.Errorf("%w: %s", ErrUnknownClient, clientID)
	}

	info := ClientStatusInfo{
		ID:                  client.ID,
		Name:                client.Name,
		SLATier:             client.SLATier,
		GuaranteedResources: client.GuaranteedResources,
		MaxResources:        client.MaxResources,
		UnitsInUse:          allocator.UnitsInUse(clientID, m.jobSlice()),
	}
	for _, job := range m.jobs {
		if job.ClientID != clientID {
			continue
		}
		switch job.Status {
		case types.JobStatusCompleted:
			info.CompletedJobs++
		case types.JobStatusPending, types.JobStatusQueued, types.JobStatusRunning:
			info.ActiveJobs++
		}
	}
	return info, nil
}

// FarmStatusView returns the whole-farm summary.
func (m *Manager) FarmStatusView() FarmStatusInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	info := FarmStatusInfo{
		Time:         time.Now(),
		TotalNodes:   len(m.nodes),
		TotalClients: len(m.clients),
		JobsByStatus: make(map[string]int),
	}
	for _, node := range m.nodes {
		if node.Status == types.NodeStatusOnline {
			info.OnlineNodes++
			if node.CurrentJobID != "" {
				info.BusyNodes++
			}
		}
	}
	for _, job := range m.jobs {
		info.JobsByStatus[string(job.Status)]++
	}
	if info.OnlineNodes > 0 {
		info.Utilization = float64(info.BusyNodes) / float64(info.OnlineNodes)
	}
	return info
}

// MetricsSnapshot implements metrics.Source for the gauge collector.
func (m *Manager) MetricsSnapshot() metrics.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := metrics.Snapshot{
		JobsByStatus:  make(map[string]int),
		NodesByStatus: make(map[string]int),
		UnitsByClient: make(map[string]int),
	}
	for _, job := range m.jobs {
		snap.JobsByStatus[string(job.Status)]++
		if job.Status == types.JobStatusRunning {
			snap.UnitsByClient[job.ClientID]++
		}
	}
	for _, node := range m.nodes {
		snap.NodesByStatus[string(node.Status)]++
	}
	return snap
}

func jobInfo(job *types.RenderJob) JobStatusInfo {
	remaining := job.RemainingHours()
	meets := job.Status == types.JobStatusCompleted ||
		remaining <= time.Until(job.Deadline).Hours()
	return JobStatusInfo{
		ID:               job.ID,
		Name:             job.Name,
		ClientID:         job.ClientID,
		Status:           job.Status,
		Priority:         job.Priority,
		Progress:         job.Progress,
		ErrorCount:       job.ErrorCount,
		AssignedNodeID:   job.AssignedNodeID,
		Deadline:         job.Deadline,
		RemainingHours:   remaining,
		WillMeetDeadline: meets,
		Dependencies:     job.Dependencies,
	}
}
