package allocator

import (
	"github.com/framewell/renderfarm/pkg/types"
)

// Usage summarizes farm-wide running units at a point in time.
type Usage struct {
	PerClient map[string]int
	Total     int
}

// UsageFromJobs counts the running node-equivalents per client.
func UsageFromJobs(jobs []*types.RenderJob) Usage {
	u := Usage{PerClient: make(map[string]int)}
	for _, job := range jobs {
		if job.Status == types.JobStatusRunning {
			u.PerClient[job.ClientID]++
			u.Total++
		}
	}
	return u
}

// Claim records one additional unit for the client. The scheduling cycle
// calls this after each in-cycle assignment so later admission checks in
// the same cycle see a consistent snapshot.
func (u *Usage) Claim(clientID string) {
	u.PerClient[clientID]++
	u.Total++
}

// Release returns one unit for the client, used when a running job is
// displaced within a cycle.
func (u *Usage) Release(clientID string) {
	if u.PerClient[clientID] > 0 {
		u.PerClient[clientID]--
		u.Total--
	}
}

// UnitsInUse returns the number of running jobs for the given client.
func UnitsInUse(clientID string, jobs []*types.RenderJob) int {
	n := 0
	for _, job := range jobs {
		if job.ClientID == clientID && job.Status == types.JobStatusRunning {
			n++
		}
	}
	return n
}

// Capacity returns the number of node-equivalents the farm can run right
// now: one per online node.
func Capacity(nodes []*types.RenderNode) int {
	n := 0
	for _, node := range nodes {
		if node.Status == types.NodeStatusOnline {
			n++
		}
	}
	return n
}

// CanAssign decides whether the client may claim one more unit.
//
// Two tiers: up to GuaranteedResources the claim is always admissible
// (the guarantee is a reservation, not a soft target). Between guaranteed
// and max the claim is admissible only if spare capacity remains after
// honoring every other client's unclaimed guarantee, so a bursty client
// can never eat into another client's floor.
func CanAssign(client *types.Client, clients []*types.Client, u Usage, capacity int) bool {
	used := u.PerClient[client.ID]

	if used >= client.MaxResources {
		return false
	}
	if used < client.GuaranteedResources {
		return true
	}

	free := capacity - u.Total
	if free <= 0 {
		return false
	}

	reserved := 0
	for _, other := range clients {
		if other.ID == client.ID {
			continue
		}
		if headroom := other.GuaranteedResources - u.PerClient[other.ID]; headroom > 0 {
			reserved += headroom
		}
	}

	return free > reserved
}

// Fits reports whether the node's hardware satisfies the job's
// requirements: GPU presence, memory and CPU minimums.
func Fits(job *types.RenderJob, node *types.RenderNode) bool {
	if job.RequiresGPU && (node.Capabilities.GPUCount == 0 || node.Capabilities.GPUModel == "") {
		return false
	}
	if job.MemoryRequirementsGB > node.Capabilities.MemoryGB {
		return false
	}
	if job.CPURequirements > node.Capabilities.CPUCores {
		return false
	}
	return true
}

// Specialized reports whether the node advertises a specialization tag
// matching the job's type.
func Specialized(job *types.RenderJob, node *types.RenderNode) bool {
	for _, tag := range node.Capabilities.SpecializedFor {
		if tag == job.JobType {
			return true
		}
	}
	return false
}

// Prefer reports whether candidate is a better pick than current for the
// job. Specialized nodes win, ties break on PowerEfficiencyRating.
// Energy-intensive jobs invert the order: watts dominate specialization
// so the heaviest renders land on the most efficient hardware.
func Prefer(job *types.RenderJob, candidate, current *types.RenderNode) bool {
	if current == nil {
		return true
	}
	if job.EnergyIntensive {
		return candidate.PowerEfficiencyRating > current.PowerEfficiencyRating
	}
	cs, ps := Specialized(job, candidate), Specialized(job, current)
	if cs != ps {
		return cs
	}
	return candidate.PowerEfficiencyRating > current.PowerEfficiencyRating
}

// FindNode selects the best node for the job among online, idle nodes
// whose hardware fits, ranked by Prefer. Returns nil when no node
// qualifies.
func FindNode(job *types.RenderJob, nodes []*types.RenderNode) *types.RenderNode {
	var best *types.RenderNode
	for _, node := range nodes {
		if node.Status != types.NodeStatusOnline || node.CurrentJobID != "" {
			continue
		}
		if !Fits(job, node) {
			continue
		}
		if Prefer(job, node, best) {
			best = node
		}
	}
	return best
}
