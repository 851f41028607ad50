package farm

import (
	"fmt"

	"github.com/framewell/renderfarm/pkg/audit"
	"github.com/framewell/renderfarm/pkg/events"
	"github.com/framewell/renderfarm/pkg/metrics"
	"github.com/framewell/renderfarm/pkg/types"
)

// HandleNodeFailure records a node failure and recovers the job that was
// running on it. The job keeps its progress and checkpoint state so a
// checkpoint-capable job resumes where it left off; its error count is
// incremented and, past the retry budget, the job is failed for good.
// Reporting a failure for a node that is already in the error state with
// no job attached changes nothing.
func (m *Manager) HandleNodeFailure(nodeID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, ok := m.nodes[nodeID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, nodeID)
	}

	jobID := node.CurrentJobID
	alreadyFailed := node.Status == types.NodeStatusError && jobID == ""

	node.Status = types.NodeStatusError
	node.LastError = reason
	node.CurrentJobID = ""

	if alreadyFailed {
		return nil
	}

	metrics.NodeFailures.Inc()
	m.logger.Warn().Str("node_id", nodeID).Str("reason", reason).Msg("node failure")
	m.publish(&events.Event{
		Type:    events.EventNodeFailure,
		NodeID:  nodeID,
		JobID:   jobID,
		Message: fmt.Sprintf("node %s failed: %s", nodeID, reason),
	})
	m.record(audit.Entry{
		Event:   "node_failure",
		Message: fmt.Sprintf("node %s failed: %s", nodeID, reason),
		NodeID:  nodeID,
		JobID:   jobID,
	})

	if jobID == "" {
		return nil
	}
	job, ok := m.jobs[jobID]
	if !ok || job.Status != types.JobStatusRunning {
		return nil
	}

	job.AssignedNodeID = ""
	job.ErrorCount++

	if job.ErrorCount > maxJobErrors {
		job.Status = types.JobStatusFailed
		metrics.JobsFailed.Inc()

		m.logger.Error().Str("job_id", jobID).Int("error_count", job.ErrorCount).
			Msg("job failed: error threshold exceeded")
		m.publish(&events.Event{
			Type:     events.EventJobFailed,
			JobID:    jobID,
			NodeID:   nodeID,
			ClientID: job.ClientID,
			Message:  fmt.Sprintf("job %s failed after %d errors", jobID, job.ErrorCount),
		})
		m.record(audit.Entry{
			Event:    "job_failed",
			Message:  fmt.Sprintf("job %s exceeded the error threshold after node %s failed", jobID, nodeID),
			JobID:    jobID,
			NodeID:   nodeID,
			ClientID: job.ClientID,
		})
		return nil
	}

	job.Status = types.JobStatusQueued

	resume := "from the beginning"
	if job.SupportsCheckpoint && job.LastCheckpointTime != nil {
		resume = fmt.Sprintf("from checkpoint at %.1f%% progress", job.Progress)
	}
	m.logger.Info().Str("job_id", jobID).Int("error_count", job.ErrorCount).
		Msg("job re-queued after node failure")
	m.publish(&events.Event{
		Type:     events.EventJobRequeued,
		JobID:    jobID,
		NodeID:   nodeID,
		ClientID: job.ClientID,
		Message:  fmt.Sprintf("job %s re-queued, will resume %s", jobID, resume),
	})
	m.record(audit.Entry{
		Event:    "job_requeued",
		Message:  fmt.Sprintf("job %s re-queued after node %s failure, will resume %s", jobID, nodeID, resume),
		JobID:    jobID,
		NodeID:   nodeID,
		ClientID: job.ClientID,
	})
	return nil
}

// SetNodeOnline brings a node back into service after failure or
// maintenance and clears its last error. If a job was somehow still
// attached it is re-queued without touching its error count, since the
// node going away is not the job's fault.
func (m *Manager) SetNodeOnline(nodeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, ok := m.nodes[nodeID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, nodeID)
	}

	node.Status = types.NodeStatusOnline
	node.LastError = ""

	m.logger.Info().Str("node_id", nodeID).Msg("node online")
	m.publish(&events.Event{
		Type:    events.EventNodeOnline,
		NodeID:  nodeID,
		Message: fmt.Sprintf("node %s is online", nodeID),
	})
	m.record(audit.Entry{
		Event:   "node_online",
		Message: fmt.Sprintf("node %s brought online", nodeID),
		NodeID:  nodeID,
	})
	return nil
}

// SetNodeOffline takes a node out of service, e.g. for maintenance. A
// running job is re-queued without an error count increment.
func (m *Manager) SetNodeOffline(nodeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, ok := m.nodes[nodeID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, nodeID)
	}

	jobID := node.CurrentJobID
	node.Status = types.NodeStatusOffline
	node.CurrentJobID = ""

	if job, ok := m.jobs[jobID]; ok && job.Status == types.JobStatusRunning {
		job.Status = types.JobStatusQueued
		job.AssignedNodeID = ""

		m.logger.Info().Str("job_id", jobID).Str("node_id", nodeID).
			Msg("job re-queued: node taken offline")
		m.publish(&events.Event{
			Type:     events.EventJobRequeued,
			JobID:    jobID,
			NodeID:   nodeID,
			ClientID: job.ClientID,
			Message:  fmt.Sprintf("job %s re-queued, node %s taken offline", jobID, nodeID),
		})
		m.record(audit.Entry{
			Event:    "job_requeued",
			Message:  fmt.Sprintf("job %s re-queued because node %s was taken offline", jobID, nodeID),
			JobID:    jobID,
			NodeID:   nodeID,
			ClientID: job.ClientID,
		})
	}

	m.publish(&events.Event{
		Type:    events.EventNodeOffline,
		NodeID:  nodeID,
		Message: fmt.Sprintf("node %s is offline", nodeID),
	})
	m.record(audit.Entry{
		Event:   "node_offline",
		Message: fmt.Sprintf("node %s taken offline", nodeID),
		NodeID:  nodeID,
	})
	return nil
}
