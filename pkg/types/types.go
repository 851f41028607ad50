package types

import (
	"time"
)

// Client represents a studio or production that submits render jobs
type Client struct {
	ID      string
	Name    string
	SLATier string // e.g. "premium", "standard"

	// GuaranteedResources is the minimum number of node-equivalents the
	// client can always claim when demanded. Must not exceed MaxResources.
	GuaranteedResources int

	// MaxResources is the hard ceiling on simultaneous node-equivalents.
	MaxResources int
}

// NodeCapabilities describes the hardware of a render node
type NodeCapabilities struct {
	CPUCores             int
	MemoryGB             int
	GPUModel             string
	GPUCount             int
	GPUMemoryGB          int
	GPUComputeCapability float64
	StorageGB            int
	SpecializedFor       []string // e.g. "gpu_rendering", "simulation"
}

// NodeStatus represents the current state of a render node
type NodeStatus string

const (
	NodeStatusOnline  NodeStatus = "online"
	NodeStatusOffline NodeStatus = "offline"
	NodeStatusError   NodeStatus = "error"
)

// RenderNode represents a single compute node in the farm
type RenderNode struct {
	ID           string
	Name         string
	Status       NodeStatus
	Capabilities NodeCapabilities

	// PowerEfficiencyRating breaks ties between otherwise equivalent
	// nodes: higher is preferred.
	PowerEfficiencyRating float64

	// CurrentJobID is the id of the job running on this node, or empty.
	// Mutated only by the scheduling cycle and the failure handler.
	CurrentJobID string

	LastError string
	CreatedAt time.Time
}

// JobStatus represents the lifecycle state of a render job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusQueued    JobStatus = "queued" // interrupted, awaiting reassignment
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether the status is an end state. Terminal jobs are
// retained for audit and never transition again.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// JobPriority represents the scheduling priority of a job
type JobPriority string

const (
	JobPriorityLow      JobPriority = "low"
	JobPriorityMedium   JobPriority = "medium"
	JobPriorityHigh     JobPriority = "high"
	JobPriorityCritical JobPriority = "critical"
)

// Value returns a numeric rank for sorting; higher is more urgent.
func (p JobPriority) Value() int {
	switch p {
	case JobPriorityCritical:
		return 4
	case JobPriorityHigh:
		return 3
	case JobPriorityMedium:
		return 2
	case JobPriorityLow:
		return 1
	}
	return 0
}

// Escalate returns the next priority level up. Critical stays critical.
func (p JobPriority) Escalate() JobPriority {
	switch p {
	case JobPriorityHigh:
		return JobPriorityCritical
	case JobPriorityMedium:
		return JobPriorityHigh
	case JobPriorityLow:
		return JobPriorityMedium
	}
	return p
}

// RenderJob represents a unit of render work submitted by a client.
//
// Jobs reference clients, dependencies and nodes by id only; the farm
// manager's maps resolve them on demand. A job is never destroyed:
// completed, failed and cancelled jobs are retained for audit.
type RenderJob struct {
	ID       string
	ClientID string
	Name     string
	Status   JobStatus
	JobType  string // e.g. "animation", "vfx", "lighting"
	Priority JobPriority

	SubmissionTime         time.Time
	Deadline               time.Time
	EstimatedDurationHours float64

	// Progress is the externally reported completion percentage (0-100).
	// The scheduler never resets it; recovery resumes from here.
	Progress float64

	RequiresGPU          bool
	MemoryRequirementsGB int
	CPURequirements      int
	SceneComplexity      int

	// Dependencies holds ids of jobs that must complete before this one
	// becomes schedulable. Ids, not live references, so the dependency
	// graph can be validated without object ownership cycles.
	Dependencies []string

	// AssignedNodeID is set if and only if Status is running.
	AssignedNodeID string

	OutputPath string
	ErrorCount int

	CanBePreempted            bool
	SupportsCheckpoint        bool
	SupportsProgressiveOutput bool

	LastCheckpointTime        *time.Time
	LastProgressiveOutputTime *time.Time

	EnergyIntensive bool
}

// RemainingHours estimates the render time left based on reported progress.
func (j *RenderJob) RemainingHours() float64 {
	return j.EstimatedDurationHours * (1 - j.Progress/100)
}
