package scheduler

import (
	"testing"
	"time"

	"github.com/framewell/renderfarm/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func schedClient(id string, guaranteed, max int) *types.Client {
	return &types.Client{ID: id, GuaranteedResources: guaranteed, MaxResources: max}
}

func schedNode(id string, efficiency float64) *types.RenderNode {
	return &types.RenderNode{
		ID:     id,
		Status: types.NodeStatusOnline,
		Capabilities: types.NodeCapabilities{
			CPUCores: 32, MemoryGB: 128, GPUModel: "RTX 4090", GPUCount: 2,
		},
		PowerEfficiencyRating: efficiency,
	}
}

func schedJob(id, clientID string, priority types.JobPriority, submitted time.Time) *types.RenderJob {
	return &types.RenderJob{
		ID:                     id,
		ClientID:               clientID,
		Status:                 types.JobStatusPending,
		Priority:               priority,
		SubmissionTime:         submitted,
		Deadline:               submitted.Add(96 * time.Hour),
		EstimatedDurationHours: 4,
		RequiresGPU:            true,
		MemoryRequirementsGB:   32,
		CPURequirements:        8,
	}
}

func TestScheduleJobsPriorityThenFIFO(t *testing.T) {
	e := New(DefaultOptions())
	now := time.Now()
	clients := []*types.Client{schedClient("c", 4, 8)}
	jobs := []*types.RenderJob{
		schedJob("low-early", "c", types.JobPriorityLow, now.Add(-3*time.Hour)),
		schedJob("high-late", "c", types.JobPriorityHigh, now.Add(-1*time.Hour)),
		schedJob("high-early", "c", types.JobPriorityHigh, now.Add(-2*time.Hour)),
	}
	nodes := []*types.RenderNode{schedNode("n1", 50), schedNode("n2", 50)}

	assignments := e.ScheduleJobs(clients, jobs, nodes)
	require.Len(t, assignments, 2)
	assert.Equal(t, "high-early", assignments[0].JobID)
	assert.Equal(t, "high-late", assignments[1].JobID)
}

func TestScheduleJobsDistinctNodesPerCycle(t *testing.T) {
	e := New(DefaultOptions())
	now := time.Now()
	clients := []*types.Client{schedClient("c", 4, 8)}
	jobs := []*types.RenderJob{
		schedJob("j1", "c", types.JobPriorityHigh, now),
		schedJob("j2", "c", types.JobPriorityHigh, now),
	}
	// Both jobs would prefer the efficient node, only one can have it.
	nodes := []*types.RenderNode{schedNode("n1", 90), schedNode("n2", 40)}

	assignments := e.ScheduleJobs(clients, jobs, nodes)
	require.Len(t, assignments, 2)
	assert.NotEqual(t, assignments[0].NodeID, assignments[1].NodeID)
	assert.Equal(t, "n1", assignments[0].NodeID, "first pick is the efficient node")
}

func TestScheduleJobsInCycleUsageCounts(t *testing.T) {
	e := New(DefaultOptions())
	now := time.Now()
	// Max 1: the second job of the same client must not be placed in the
	// same cycle even though a node is free.
	clients := []*types.Client{schedClient("c", 1, 1)}
	jobs := []*types.RenderJob{
		schedJob("j1", "c", types.JobPriorityHigh, now),
		schedJob("j2", "c", types.JobPriorityHigh, now),
	}
	nodes := []*types.RenderNode{schedNode("n1", 50), schedNode("n2", 50)}

	assignments := e.ScheduleJobs(clients, jobs, nodes)
	require.Len(t, assignments, 1)
	assert.Equal(t, "j1", assignments[0].JobID)
}

func TestScheduleJobsSkipsRunningAndTerminal(t *testing.T) {
	e := New(DefaultOptions())
	now := time.Now()
	clients := []*types.Client{schedClient("c", 4, 8)}

	running := schedJob("running", "c", types.JobPriorityHigh, now)
	running.Status = types.JobStatusRunning
	done := schedJob("done", "c", types.JobPriorityHigh, now)
	done.Status = types.JobStatusCompleted
	queued := schedJob("queued", "c", types.JobPriorityLow, now)
	queued.Status = types.JobStatusQueued

	assignments := e.ScheduleJobs(clients, []*types.RenderJob{running, done, queued},
		[]*types.RenderNode{schedNode("n1", 50)})
	require.Len(t, assignments, 1)
	assert.Equal(t, "queued", assignments[0].JobID, "re-queued jobs are schedulable")
}

func TestScheduleJobsPreemption(t *testing.T) {
	opts := DefaultOptions()
	opts.EnablePreemption = true
	e := New(opts)
	now := time.Now()
	clients := []*types.Client{schedClient("c", 4, 8)}

	victim := schedJob("victim", "c", types.JobPriorityLow, now.Add(-time.Hour))
	victim.Status = types.JobStatusRunning
	victim.AssignedNodeID = "n1"
	victim.CanBePreempted = true

	urgent := schedJob("urgent", "c", types.JobPriorityCritical, now)

	node := schedNode("n1", 50)
	node.CurrentJobID = "victim"

	assignments := e.ScheduleJobs(clients, []*types.RenderJob{victim, urgent},
		[]*types.RenderNode{node})
	require.Len(t, assignments, 1)
	assert.Equal(t, "urgent", assignments[0].JobID)
	assert.Equal(t, "n1", assignments[0].NodeID)
	assert.Equal(t, "victim", assignments[0].PreemptedJobID)
}

func TestScheduleJobsPreemptionRespectsMaxResources(t *testing.T) {
	opts := DefaultOptions()
	opts.EnablePreemption = true
	e := New(opts)
	now := time.Now()

	clients := []*types.Client{
		schedClient("vip", 1, 1),
		schedClient("batch", 2, 4),
	}

	var jobs []*types.RenderJob
	var nodes []*types.RenderNode
	for _, id := range []string{"n1", "n2"} {
		victim := schedJob("victim-"+id, "batch", types.JobPriorityLow, now.Add(-time.Hour))
		victim.Status = types.JobStatusRunning
		victim.AssignedNodeID = id
		victim.CanBePreempted = true
		jobs = append(jobs, victim)

		node := schedNode(id, 50)
		node.CurrentJobID = victim.ID
		nodes = append(nodes, node)
	}
	jobs = append(jobs,
		schedJob("vip-1", "vip", types.JobPriorityCritical, now),
		schedJob("vip-2", "vip", types.JobPriorityCritical, now))

	assignments := e.ScheduleJobs(clients, jobs, nodes)

	// Only one unit fits under the vip ceiling; the second critical job
	// must wait even though another node could be preempted.
	require.Len(t, assignments, 1)
	assert.Equal(t, "vip-1", assignments[0].JobID)
	assert.NotEmpty(t, assignments[0].PreemptedJobID)
}

func TestScheduleJobsPreemptionFreesVictimUnit(t *testing.T) {
	opts := DefaultOptions()
	opts.EnablePreemption = true
	e := New(opts)
	now := time.Now()

	// batch is at its ceiling with one running job. Once that job is
	// preempted its unit is free again, so batch's own pending job is
	// admitted onto the idle node in the same cycle.
	clients := []*types.Client{
		schedClient("vip", 1, 1),
		schedClient("batch", 1, 1),
	}

	victim := schedJob("victim", "batch", types.JobPriorityLow, now.Add(-2*time.Hour))
	victim.Status = types.JobStatusRunning
	victim.AssignedNodeID = "n1"
	victim.CanBePreempted = true

	urgent := schedJob("urgent", "vip", types.JobPriorityCritical, now.Add(-time.Hour))
	waiting := schedJob("waiting", "batch", types.JobPriorityMedium, now)
	waiting.RequiresGPU = false

	busy := schedNode("n1", 50)
	busy.CurrentJobID = "victim"

	// The idle node has no GPU, so the critical job can only run by
	// preempting; the displaced client's pending work fits there.
	idle := schedNode("n2", 50)
	idle.Capabilities.GPUModel = ""
	idle.Capabilities.GPUCount = 0

	assignments := e.ScheduleJobs(clients, []*types.RenderJob{victim, urgent, waiting},
		[]*types.RenderNode{busy, idle})

	require.Len(t, assignments, 2)
	assert.Equal(t, "urgent", assignments[0].JobID)
	assert.Equal(t, "victim", assignments[0].PreemptedJobID)
	assert.Equal(t, "waiting", assignments[1].JobID)
	assert.Equal(t, "n2", assignments[1].NodeID)
}

func TestScheduleJobsNoPreemptionByDefault(t *testing.T) {
	e := New(DefaultOptions())
	now := time.Now()
	clients := []*types.Client{schedClient("c", 4, 8)}

	victim := schedJob("victim", "c", types.JobPriorityLow, now.Add(-time.Hour))
	victim.Status = types.JobStatusRunning
	victim.AssignedNodeID = "n1"
	victim.CanBePreempted = true

	urgent := schedJob("urgent", "c", types.JobPriorityCritical, now)

	node := schedNode("n1", 50)
	node.CurrentJobID = "victim"

	assignments := e.ScheduleJobs(clients, []*types.RenderJob{victim, urgent},
		[]*types.RenderNode{node})
	assert.Empty(t, assignments)
}

func TestShouldPreempt(t *testing.T) {
	e := New(DefaultOptions())
	now := time.Now()

	newJob := func(priority types.JobPriority, hoursToDeadline, estimated float64, preemptable bool) *types.RenderJob {
		return &types.RenderJob{
			Priority:               priority,
			Deadline:               now.Add(time.Duration(hoursToDeadline * float64(time.Hour))),
			EstimatedDurationHours: estimated,
			CanBePreempted:         preemptable,
		}
	}

	tests := []struct {
		name    string
		running *types.RenderJob
		pending *types.RenderJob
		want    bool
	}{
		{
			name:    "not preemptable",
			running: newJob(types.JobPriorityLow, 100, 4, false),
			pending: newJob(types.JobPriorityCritical, 1, 4, false),
			want:    false,
		},
		{
			name:    "critical displaces non-critical",
			running: newJob(types.JobPriorityHigh, 100, 4, true),
			pending: newJob(types.JobPriorityCritical, 100, 4, false),
			want:    true,
		},
		{
			name:    "critical does not displace critical",
			running: newJob(types.JobPriorityCritical, 100, 4, true),
			pending: newJob(types.JobPriorityCritical, 1, 4, false),
			want:    false,
		},
		{
			name:    "higher priority at deadline risk",
			running: newJob(types.JobPriorityLow, 100, 4, true),
			pending: newJob(types.JobPriorityHigh, 5, 4, false),
			want:    true,
		},
		{
			name:    "higher priority with comfortable deadline",
			running: newJob(types.JobPriorityLow, 100, 4, true),
			pending: newJob(types.JobPriorityHigh, 50, 4, false),
			want:    false,
		},
		{
			name:    "equal priority never preempts",
			running: newJob(types.JobPriorityHigh, 100, 4, true),
			pending: newJob(types.JobPriorityHigh, 1, 4, false),
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.ShouldPreempt(now, tt.running, tt.pending)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUpdatePriorities(t *testing.T) {
	e := New(DefaultOptions())
	now := time.Now()

	newJob := func(id string, priority types.JobPriority, hoursToDeadline, estimated float64) *types.RenderJob {
		return &types.RenderJob{
			ID:                     id,
			Status:                 types.JobStatusPending,
			Priority:               priority,
			Deadline:               now.Add(time.Duration(hoursToDeadline * float64(time.Hour))),
			EstimatedDurationHours: estimated,
		}
	}

	atRisk := newJob("at-risk", types.JobPriorityLow, 5, 4)        // needs 6h, has 5h
	soon := newJob("soon", types.JobPriorityMedium, 20, 2)         // <24h
	near := newJob("near", types.JobPriorityLow, 40, 2)            // <48h
	comfy := newJob("comfy", types.JobPriorityMedium, 90, 2)       // plenty of time
	highSoon := newJob("high-soon", types.JobPriorityHigh, 20, 2)  // high is not bumped by proximity
	done := newJob("done", types.JobPriorityLow, 1, 4)
	done.Status = types.JobStatusCompleted

	escalated := e.UpdatePriorities(now, []*types.RenderJob{atRisk, soon, near, comfy, highSoon, done})

	assert.Equal(t, types.JobPriorityMedium, atRisk.Priority)
	assert.Equal(t, types.JobPriorityHigh, soon.Priority)
	assert.Equal(t, types.JobPriorityMedium, near.Priority)
	assert.Equal(t, types.JobPriorityMedium, comfy.Priority)
	assert.Equal(t, types.JobPriorityHigh, highSoon.Priority)
	assert.Equal(t, types.JobPriorityLow, done.Priority, "terminal jobs are never touched")

	ids := make([]string, 0, len(escalated))
	for _, job := range escalated {
		ids = append(ids, job.ID)
	}
	assert.ElementsMatch(t, []string{"at-risk", "soon", "near"}, ids)
}

func TestUpdatePrioritiesCriticalStaysCritical(t *testing.T) {
	e := New(DefaultOptions())
	now := time.Now()

	job := &types.RenderJob{
		ID:                     "crit",
		Status:                 types.JobStatusRunning,
		Priority:               types.JobPriorityCritical,
		Deadline:               now.Add(time.Hour),
		EstimatedDurationHours: 10,
	}

	escalated := e.UpdatePriorities(now, []*types.RenderJob{job})
	assert.Empty(t, escalated)
	assert.Equal(t, types.JobPriorityCritical, job.Priority)
}
