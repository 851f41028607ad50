package farm

import (
	"fmt"
	"time"

	"github.com/framewell/renderfarm/pkg/audit"
	"github.com/framewell/renderfarm/pkg/events"
	"github.com/framewell/renderfarm/pkg/metrics"
	"github.com/framewell/renderfarm/pkg/types"
)

// RunSchedulingCycle performs one pass over the farm: deadline-driven
// priority escalation, then assignment of eligible pending and queued
// jobs to free nodes. The whole cycle runs under the farm lock so the
// decisions are applied against the exact state they were computed from.
func (m *Manager) RunSchedulingCycle() error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.SchedulingLatency)
	metrics.SchedulingCyclesTotal.Inc()

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	escalated := m.engine.UpdatePriorities(now, m.jobSlice())
	for _, job := range escalated {
		m.logger.Info().Str("job_id", job.ID).Str("priority", string(job.Priority)).
			Msg("job priority escalated for deadline")
		m.record(audit.Entry{
			Event:   "priority_escalated",
			Message: fmt.Sprintf("job %s escalated to %s priority to meet its deadline", job.ID, job.Priority),
			JobID:   job.ID,
		})
	}

	assignments := m.engine.ScheduleJobs(m.clientSlice(), m.jobSlice(), m.nodeSlice())
	for _, a := range assignments {
		if a.PreemptedJobID != "" {
			m.requeuePreempted(a.PreemptedJobID)
		}
		m.applyAssignment(a.JobID, a.NodeID)
	}

	if len(assignments) > 0 {
		m.logger.Info().Int("assigned", len(assignments)).Msg("scheduling cycle complete")
	}
	return nil
}

// applyAssignment moves a job to running on a node. Caller holds m.mu.
func (m *Manager) applyAssignment(jobID, nodeID string) {
	job, ok := m.jobs[jobID]
	if !ok {
		return
	}
	node, ok := m.nodes[nodeID]
	if !ok {
		return
	}

	job.Status = types.JobStatusRunning
	job.AssignedNodeID = nodeID
	node.CurrentJobID = jobID

	metrics.JobsScheduled.Inc()
	m.logger.Info().Str("job_id", jobID).Str("node_id", nodeID).Msg("job scheduled")
	m.publish(&events.Event{
		Type:     events.EventJobScheduled,
		JobID:    jobID,
		NodeID:   nodeID,
		ClientID: job.ClientID,
		Message:  fmt.Sprintf("job %s scheduled on node %s", jobID, nodeID),
	})
	m.record(audit.Entry{
		Event:    "job_scheduled",
		Message:  fmt.Sprintf("job %s assigned to node %s", jobID, nodeID),
		JobID:    jobID,
		NodeID:   nodeID,
		ClientID: job.ClientID,
	})
}

// requeuePreempted moves a running job back to the queue so a more
// urgent one can take its node. Progress is kept; the error count is
// not touched because preemption is not a job fault. Caller holds m.mu.
func (m *Manager) requeuePreempted(jobID string) {
	job, ok := m.jobs[jobID]
	if !ok || job.Status != types.JobStatusRunning {
		return
	}

	nodeID := job.AssignedNodeID
	if node, ok := m.nodes[nodeID]; ok && node.CurrentJobID == jobID {
		node.CurrentJobID = ""
	}
	job.Status = types.JobStatusQueued
	job.AssignedNodeID = ""

	metrics.JobsPreempted.Inc()
	m.logger.Info().Str("job_id", jobID).Str("node_id", nodeID).Msg("job preempted")
	m.publish(&events.Event{
		Type:     events.EventJobPreempted,
		JobID:    jobID,
		NodeID:   nodeID,
		ClientID: job.ClientID,
		Message:  fmt.Sprintf("job %s preempted from node %s", jobID, nodeID),
	})
	m.record(audit.Entry{
		Event:    "job_preempted",
		Message:  fmt.Sprintf("job %s preempted from node %s at %.1f%% progress", jobID, nodeID, job.Progress),
		JobID:    jobID,
		NodeID:   nodeID,
		ClientID: job.ClientID,
	})
}
