package scheduler

import (
	"sort"
	"time"

	"github.com/framewell/renderfarm/pkg/allocator"
	"github.com/framewell/renderfarm/pkg/depgraph"
	"github.com/framewell/renderfarm/pkg/types"
)

// Options tunes scheduling behavior.
type Options struct {
	// SafetyMarginHours pads a job's estimated remaining duration when
	// judging whether it can still meet its deadline.
	SafetyMarginHours float64

	// EnablePreemption lets critical work displace running jobs that
	// opted in via CanBePreempted. Off by default: a preempted job is
	// re-queued without counting against its retry budget.
	EnablePreemption bool
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{SafetyMarginHours: 2.0}
}

// Assignment is one scheduling decision: place JobID on NodeID. When the
// decision displaces a running job, PreemptedJobID names it.
type Assignment struct {
	JobID          string
	NodeID         string
	PreemptedJobID string
}

// Engine computes scheduling decisions over a snapshot of farm state.
// It mutates nothing except job priorities (UpdatePriorities); the farm
// manager applies the returned assignments.
type Engine struct {
	opts Options
}

// New creates an engine with the given options.
func New(opts Options) *Engine {
	return &Engine{opts: opts}
}

// ScheduleJobs selects pending and re-queued jobs in priority order and
// pairs each with an eligible node, subject to dependency completion and
// the per-client admission policy. Jobs that cannot be placed are simply
// skipped; they stay schedulable for the next cycle.
func (e *Engine) ScheduleJobs(clients []*types.Client, jobs []*types.RenderJob, nodes []*types.RenderNode) []Assignment {
	jobsByID := make(map[string]*types.RenderJob, len(jobs))
	for _, job := range jobs {
		jobsByID[job.ID] = job
	}
	clientsByID := make(map[string]*types.Client, len(clients))
	for _, client := range clients {
		clientsByID[client.ID] = client
	}

	candidates := make([]*types.RenderJob, 0, len(jobs))
	for _, job := range jobs {
		if job.Status == types.JobStatusPending || job.Status == types.JobStatusQueued {
			candidates = append(candidates, job)
		}
	}

	// Priority bands first, FIFO by submission time inside a band.
	sort.SliceStable(candidates, func(i, j int) bool {
		pi, pj := candidates[i].Priority.Value(), candidates[j].Priority.Value()
		if pi != pj {
			return pi > pj
		}
		return candidates[i].SubmissionTime.Before(candidates[j].SubmissionTime)
	})

	usage := allocator.UsageFromJobs(jobs)
	capacity := allocator.Capacity(nodes)

	// Nodes taken by earlier decisions in this same cycle.
	taken := make(map[string]bool)

	var assignments []Assignment
	for _, job := range candidates {
		if !depgraph.DependenciesSatisfied(job, jobsByID) {
			continue
		}

		client, ok := clientsByID[job.ClientID]
		if !ok {
			continue
		}
		if !allocator.CanAssign(client, clients, usage, capacity) {
			continue
		}

		if node := e.findFreeNode(job, nodes, taken); node != nil {
			assignments = append(assignments, Assignment{JobID: job.ID, NodeID: node.ID})
			taken[node.ID] = true
			usage.Claim(job.ClientID)
			continue
		}

		if e.opts.EnablePreemption {
			if a, ok := e.tryPreempt(job, jobs, jobsByID, nodes, taken); ok {
				assignments = append(assignments, a)
				taken[a.NodeID] = true
				// The displaced job stops running, the preemptor starts:
				// both sides of the swap must be visible to later
				// admission checks in this cycle.
				if victim, ok := jobsByID[a.PreemptedJobID]; ok {
					usage.Release(victim.ClientID)
				}
				usage.Claim(job.ClientID)
				continue
			}
		}
	}

	return assignments
}

func (e *Engine) findFreeNode(job *types.RenderJob, nodes []*types.RenderNode, taken map[string]bool) *types.RenderNode {
	var best *types.RenderNode
	for _, node := range nodes {
		if taken[node.ID] {
			continue
		}
		if node.Status != types.NodeStatusOnline || node.CurrentJobID != "" {
			continue
		}
		if !allocator.Fits(job, node) {
			continue
		}
		if allocator.Prefer(job, node, best) {
			best = node
		}
	}
	return best
}

func (e *Engine) tryPreempt(job *types.RenderJob, jobs []*types.RenderJob, jobsByID map[string]*types.RenderJob, nodes []*types.RenderNode, taken map[string]bool) (Assignment, bool) {
	now := time.Now()
	for _, node := range nodes {
		if taken[node.ID] || node.Status != types.NodeStatusOnline || node.CurrentJobID == "" {
			continue
		}
		if !allocator.Fits(job, node) {
			continue
		}
		running, ok := jobsByID[node.CurrentJobID]
		if !ok {
			continue
		}
		if e.ShouldPreempt(now, running, job) {
			return Assignment{JobID: job.ID, NodeID: node.ID, PreemptedJobID: running.ID}, true
		}
	}
	return Assignment{}, false
}

// ShouldPreempt decides whether a pending job may displace a running one.
// The running job must allow preemption; the pending job must either be
// critical while the running one is not, or outrank it while being at
// risk of missing its deadline.
func (e *Engine) ShouldPreempt(now time.Time, running, pending *types.RenderJob) bool {
	if !running.CanBePreempted {
		return false
	}

	if pending.Priority == types.JobPriorityCritical && running.Priority != types.JobPriorityCritical {
		return true
	}

	hoursUntilDeadline := pending.Deadline.Sub(now).Hours()
	pendingWillMiss := pending.RemainingHours()+e.opts.SafetyMarginHours > hoursUntilDeadline

	return pending.Priority.Value() > running.Priority.Value() && pendingWillMiss
}

// UpdatePriorities escalates non-terminal jobs whose deadlines are at
// risk: a job that cannot finish in time (remaining work plus safety
// margin) moves up one band, and deadline proximity below 24h/48h bumps
// medium/low work. Escalation never demotes and never touches terminal
// jobs. It returns the jobs whose priority changed.
func (e *Engine) UpdatePriorities(now time.Time, jobs []*types.RenderJob) []*types.RenderJob {
	var escalated []*types.RenderJob
	for _, job := range jobs {
		if job.Status.Terminal() {
			continue
		}

		hoursUntilDeadline := job.Deadline.Sub(now).Hours()
		hoursNeeded := job.RemainingHours() + e.opts.SafetyMarginHours
		before := job.Priority

		switch {
		case hoursNeeded >= hoursUntilDeadline:
			job.Priority = job.Priority.Escalate()
		case hoursUntilDeadline < 24:
			if job.Priority == types.JobPriorityMedium || job.Priority == types.JobPriorityLow {
				job.Priority = job.Priority.Escalate()
			}
		case hoursUntilDeadline < 48:
			if job.Priority == types.JobPriorityLow {
				job.Priority = job.Priority.Escalate()
			}
		}

		if job.Priority != before {
			escalated = append(escalated, job)
		}
	}
	return escalated
}
