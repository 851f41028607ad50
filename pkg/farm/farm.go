package farm

import (
	"fmt"
	"sync"
	"time"

	"github.com/framewell/renderfarm/pkg/audit"
	"github.com/framewell/renderfarm/pkg/depgraph"
	"github.com/framewell/renderfarm/pkg/events"
	"github.com/framewell/renderfarm/pkg/log"
	"github.com/framewell/renderfarm/pkg/scheduler"
	"github.com/framewell/renderfarm/pkg/types"
	"github.com/rs/zerolog"
)

// maxJobErrors is the retry budget: failures 1..maxJobErrors re-queue the
// job, the next one is fatal.
const maxJobErrors = 3

// Config holds configuration for creating a Manager.
type Config struct {
	Scheduler scheduler.Options

	// Events and Audit are optional; nil disables the concern.
	Events *events.Broker
	Audit  *audit.Log
}

// Manager is the farm façade. It exclusively owns the client, node and
// job collections and serializes every entry point behind one mutex, so
// each call observes and produces a consistent whole-farm state.
type Manager struct {
	mu sync.Mutex

	clients map[string]*types.Client
	nodes   map[string]*types.RenderNode
	jobs    map[string]*types.RenderJob

	engine *scheduler.Engine
	broker *events.Broker
	audit  *audit.Log
	logger zerolog.Logger
}

// New creates an empty farm manager.
func New(cfg Config) *Manager {
	return &Manager{
		clients: make(map[string]*types.Client),
		nodes:   make(map[string]*types.RenderNode),
		jobs:    make(map[string]*types.RenderJob),
		engine:  scheduler.New(cfg.Scheduler),
		broker:  cfg.Events,
		audit:   cfg.Audit,
		logger:  log.WithComponent("farm"),
	}
}

// AddClient registers a client.
func (m *Manager) AddClient(client *types.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.clients[client.ID]; ok {
		return fmt.Errorf("%w: client %s", ErrDuplicateID, client.ID)
	}
	if client.GuaranteedResources > client.MaxResources {
		return fmt.Errorf("client %s: guaranteed resources %d exceed max %d",
			client.ID, client.GuaranteedResources, client.MaxResources)
	}

	m.clients[client.ID] = client

	m.publish(&events.Event{
		Type:     events.EventClientAdded,
		ClientID: client.ID,
		Message:  fmt.Sprintf("client %s (%s) added", client.ID, client.Name),
	})
	m.record(audit.Entry{
		Event:    "client_added",
		Message:  fmt.Sprintf("client %s (%s) added, tier %s", client.ID, client.Name, client.SLATier),
		ClientID: client.ID,
	})
	return nil
}

// AddNode registers a render node. Nodes join with status online unless
// one was set by the caller.
func (m *Manager) AddNode(node *types.RenderNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.nodes[node.ID]; ok {
		return fmt.Errorf("%w: node %s", ErrDuplicateID, node.ID)
	}

	if node.Status == "" {
		node.Status = types.NodeStatusOnline
	}
	if node.CreatedAt.IsZero() {
		node.CreatedAt = time.Now()
	}
	m.nodes[node.ID] = node

	m.publish(&events.Event{
		Type:    events.EventNodeAdded,
		NodeID:  node.ID,
		Message: fmt.Sprintf("node %s (%s) added", node.ID, node.Name),
	})
	m.record(audit.Entry{
		Event:   "node_added",
		Message: fmt.Sprintf("node %s (%s) added with status %s", node.ID, node.Name, node.Status),
		NodeID:  node.ID,
	})
	return nil
}

// SubmitJob validates and stores a job. A job whose dependencies would
// form a cycle is stored with status failed rather than rejected with an
// error, so dependents and monitoring can still inspect it; every other
// job on the cycle is failed as well. Valid jobs are stored pending.
func (m *Manager) SubmitJob(job *types.RenderJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[job.ID]; ok {
		return fmt.Errorf("%w: job %s", ErrDuplicateID, job.ID)
	}
	if _, ok := m.clients[job.ClientID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownClient, job.ClientID)
	}

	if job.SubmissionTime.IsZero() {
		job.SubmissionTime = time.Now()
	}

	if depgraph.WouldCreateCycle(job.ID, job.Dependencies, m.jobs) {
		job.Status = types.JobStatusFailed
		m.jobs[job.ID] = job

		cycle := depgraph.FindCyclePath(job.ID, job.Dependencies, m.jobs)
		for _, id := range cycle {
			if id == job.ID {
				continue
			}
			if member, ok := m.jobs[id]; ok && !member.Status.Terminal() {
				member.Status = types.JobStatusFailed
				m.record(audit.Entry{
					Event:   "job_circular_dependency",
					Message: fmt.Sprintf("job %s is part of a dependency cycle, marked failed", id),
					JobID:   id,
				})
			}
		}

		m.logger.Error().Str("job_id", job.ID).Strs("cycle", cycle).
			Msg("job rejected: circular dependency")
		m.publish(&events.Event{
			Type:     events.EventJobRejected,
			JobID:    job.ID,
			ClientID: job.ClientID,
			Message:  fmt.Sprintf("job %s has circular dependencies", job.ID),
		})
		m.record(audit.Entry{
			Event:    "job_circular_dependency",
			Message:  fmt.Sprintf("job %s has circular dependencies and cannot be scheduled", job.ID),
			JobID:    job.ID,
			ClientID: job.ClientID,
		})
		return nil
	}

	job.Status = types.JobStatusPending
	m.jobs[job.ID] = job

	m.logger.Info().Str("job_id", job.ID).Str("client_id", job.ClientID).
		Str("priority", string(job.Priority)).Msg("job submitted")
	m.publish(&events.Event{
		Type:     events.EventJobSubmitted,
		JobID:    job.ID,
		ClientID: job.ClientID,
		Message:  fmt.Sprintf("job %s (%s) submitted", job.ID, job.Name),
	})
	m.record(audit.Entry{
		Event:    "job_submitted",
		Message:  fmt.Sprintf("job %s (%s) submitted by client %s", job.ID, job.Name, job.ClientID),
		JobID:    job.ID,
		ClientID: job.ClientID,
	})
	return nil
}

// Job returns the job with the given id.
func (m *Manager) Job(id string) (*types.RenderJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, id)
	}
	return job, nil
}

// Node returns the node with the given id.
func (m *Manager) Node(id string) (*types.RenderNode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, ok := m.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	return node, nil
}

// Client returns the client with the given id.
func (m *Manager) Client(id string) (*types.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	client, ok := m.clients[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClient, id)
	}
	return client, nil
}

// Jobs returns a snapshot of the job map keyed by id.
func (m *Manager) Jobs() map[string]*types.RenderJob {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]*types.RenderJob, len(m.jobs))
	for id, job := range m.jobs {
		out[id] = job
	}
	return out
}

// Nodes returns a snapshot of the node map keyed by id.
func (m *Manager) Nodes() map[string]*types.RenderNode {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]*types.RenderNode, len(m.nodes))
	for id, node := range m.nodes {
		out[id] = node
	}
	return out
}

// Clients returns a snapshot of the client map keyed by id.
func (m *Manager) Clients() map[string]*types.Client {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]*types.Client, len(m.clients))
	for id, client := range m.clients {
		out[id] = client
	}
	return out
}

func (m *Manager) publish(e *events.Event) {
	if m.broker != nil {
		m.broker.Publish(e)
	}
}

func (m *Manager) record(e audit.Entry) {
	if m.audit != nil {
		m.audit.Record(e)
	}
}

// jobSlice and friends materialize the maps for the scheduler engine,
// which operates on slices. Callers hold m.mu.
func (m *Manager) jobSlice() []*types.RenderJob {
	out := make([]*types.RenderJob, 0, len(m.jobs))
	for _, job := range m.jobs {
		out = append(out, job)
	}
	return out
}

func (m *Manager) nodeSlice() []*types.RenderNode {
	out := make([]*types.RenderNode, 0, len(m.nodes))
	for _, node := range m.nodes {
		out = append(out, node)
	}
	return out
}

func (m *Manager) clientSlice() []*types.Client {
	out := make([]*types.Client, 0, len(m.clients))
	for _, client := range m.clients {
		out = append(out, client)
	}
	return out
}
