package farm

import (
	"fmt"
	"time"

	"github.com/framewell/renderfarm/pkg/audit"
	"github.com/framewell/renderfarm/pkg/events"
	"github.com/framewell/renderfarm/pkg/types"
)

// CompleteJob marks a job completed and frees its node. Completing a job
// that is already terminal is a no-op, so retried completion reports from
// workers are harmless.
func (m *Manager) CompleteJob(jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, jobID)
	}
	if job.Status.Terminal() {
		return nil
	}

	m.releaseNode(job)
	job.Status = types.JobStatusCompleted
	job.Progress = 100

	m.logger.Info().Str("job_id", jobID).Msg("job completed")
	m.publish(&events.Event{
		Type:     events.EventJobCompleted,
		JobID:    jobID,
		ClientID: job.ClientID,
		Message:  fmt.Sprintf("job %s completed", jobID),
	})
	m.record(audit.Entry{
		Event:    "job_completed",
		Message:  fmt.Sprintf("job %s (%s) completed", jobID, job.Name),
		JobID:    jobID,
		ClientID: job.ClientID,
	})
	return nil
}

// UpdateJobProgress records render progress for a job. Progress is
// clamped to [0,100] and never changes the job's status; completion is
// an explicit CompleteJob call. Checkpoint-capable jobs get their
// checkpoint timestamp refreshed, which is what failure recovery resumes
// from.
func (m *Manager) UpdateJobProgress(jobID string, progress float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, jobID)
	}
	if job.Status.Terminal() {
		return nil
	}

	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	job.Progress = progress

	if job.SupportsCheckpoint {
		now := time.Now()
		job.LastCheckpointTime = &now
	}
	if job.SupportsProgressiveOutput {
		now := time.Now()
		job.LastProgressiveOutputTime = &now
	}

	m.logger.Debug().Str("job_id", jobID).Float64("progress", progress).Msg("job progress updated")
	return nil
}

// CancelJob cancels a job. Running jobs release their node. Cancelling a
// terminal job is a no-op.
func (m *Manager) CancelJob(jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, jobID)
	}
	if job.Status.Terminal() {
		return nil
	}

	m.releaseNode(job)
	job.Status = types.JobStatusCancelled

	m.logger.Info().Str("job_id", jobID).Msg("job cancelled")
	m.publish(&events.Event{
		Type:     events.EventJobCancelled,
		JobID:    jobID,
		ClientID: job.ClientID,
		Message:  fmt.Sprintf("job %s cancelled", jobID),
	})
	m.record(audit.Entry{
		Event:    "job_cancelled",
		Message:  fmt.Sprintf("job %s (%s) cancelled", jobID, job.Name),
		JobID:    jobID,
		ClientID: job.ClientID,
	})
	return nil
}

// UpdateJobPriority overrides a job's priority. Terminal jobs are left
// alone. The scheduler may still escalate the job later if its deadline
// comes under pressure.
func (m *Manager) UpdateJobPriority(jobID string, priority types.JobPriority) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, jobID)
	}
	if job.Status.Terminal() {
		return nil
	}

	old := job.Priority
	job.Priority = priority

	m.logger.Info().Str("job_id", jobID).Str("from", string(old)).
		Str("to", string(priority)).Msg("job priority updated")
	m.record(audit.Entry{
		Event:   "priority_updated",
		Message: fmt.Sprintf("job %s priority changed from %s to %s", jobID, old, priority),
		JobID:   jobID,
	})
	return nil
}

// releaseNode detaches a job from its node, if any. Caller holds m.mu.
func (m *Manager) releaseNode(job *types.RenderJob) {
	if job.AssignedNodeID == "" {
		return
	}
	if node, ok := m.nodes[job.AssignedNodeID]; ok && node.CurrentJobID == job.ID {
		node.CurrentJobID = ""
	}
	job.AssignedNodeID = ""
}
