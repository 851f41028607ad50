package allocator

import (
	"testing"

	"github.com/framewell/renderfarm/pkg/types"
	"github.com/stretchr/testify/assert"
)

func runningJob(id, clientID string) *types.RenderJob {
	return &types.RenderJob{ID: id, ClientID: clientID, Status: types.JobStatusRunning}
}

func onlineNode(id string, efficiency float64) *types.RenderNode {
	return &types.RenderNode{
		ID:     id,
		Status: types.NodeStatusOnline,
		Capabilities: types.NodeCapabilities{
			CPUCores: 16, MemoryGB: 64, GPUModel: "RTX 4090", GPUCount: 1,
		},
		PowerEfficiencyRating: efficiency,
	}
}

func TestUsageFromJobs(t *testing.T) {
	jobs := []*types.RenderJob{
		runningJob("j1", "a"),
		runningJob("j2", "a"),
		runningJob("j3", "b"),
		{ID: "j4", ClientID: "a", Status: types.JobStatusPending},
		{ID: "j5", ClientID: "b", Status: types.JobStatusCompleted},
	}

	u := UsageFromJobs(jobs)
	assert.Equal(t, 3, u.Total)
	assert.Equal(t, 2, u.PerClient["a"])
	assert.Equal(t, 1, u.PerClient["b"])

	u.Claim("b")
	assert.Equal(t, 4, u.Total)
	assert.Equal(t, 2, u.PerClient["b"])

	u.Release("b")
	assert.Equal(t, 3, u.Total)
	assert.Equal(t, 1, u.PerClient["b"])

	// Releasing below zero is a no-op.
	u.Release("unknown")
	assert.Equal(t, 3, u.Total)
}

func TestCapacity(t *testing.T) {
	nodes := []*types.RenderNode{
		onlineNode("n1", 50),
		{ID: "n2", Status: types.NodeStatusOffline},
		{ID: "n3", Status: types.NodeStatusError},
		onlineNode("n4", 60),
	}
	assert.Equal(t, 2, Capacity(nodes))
}

func TestCanAssign(t *testing.T) {
	a := &types.Client{ID: "a", GuaranteedResources: 2, MaxResources: 4}
	b := &types.Client{ID: "b", GuaranteedResources: 1, MaxResources: 3}
	clients := []*types.Client{a, b}

	tests := []struct {
		name     string
		client   *types.Client
		usage    Usage
		capacity int
		want     bool
	}{
		{
			name:     "within guarantee always admissible",
			client:   a,
			usage:    Usage{PerClient: map[string]int{"a": 1}, Total: 4},
			capacity: 4,
			want:     true,
		},
		{
			name:     "at max denied",
			client:   a,
			usage:    Usage{PerClient: map[string]int{"a": 4}, Total: 4},
			capacity: 8,
			want:     false,
		},
		{
			name:     "burst allowed with spare capacity",
			client:   a,
			usage:    Usage{PerClient: map[string]int{"a": 2, "b": 1}, Total: 3},
			capacity: 6,
			want:     true,
		},
		{
			name:     "burst denied when it would eat another guarantee",
			client:   a,
			usage:    Usage{PerClient: map[string]int{"a": 2}, Total: 2},
			capacity: 3,
			want:     false,
		},
		{
			name:     "no free capacity",
			client:   a,
			usage:    Usage{PerClient: map[string]int{"a": 2, "b": 2}, Total: 4},
			capacity: 4,
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanAssign(tt.client, clients, tt.usage, tt.capacity)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFits(t *testing.T) {
	node := onlineNode("n1", 50)

	gpuJob := &types.RenderJob{RequiresGPU: true, MemoryRequirementsGB: 32, CPURequirements: 8}
	assert.True(t, Fits(gpuJob, node))

	noGPU := onlineNode("n2", 50)
	noGPU.Capabilities.GPUCount = 0
	noGPU.Capabilities.GPUModel = ""
	assert.False(t, Fits(gpuJob, noGPU))

	cpuJob := &types.RenderJob{MemoryRequirementsGB: 32, CPURequirements: 8}
	assert.True(t, Fits(cpuJob, noGPU))

	hungry := &types.RenderJob{MemoryRequirementsGB: 128}
	assert.False(t, Fits(hungry, node))

	wide := &types.RenderJob{CPURequirements: 64}
	assert.False(t, Fits(wide, node))
}

func TestFindNodePrefersEfficiency(t *testing.T) {
	nodes := []*types.RenderNode{
		onlineNode("slow", 40),
		onlineNode("efficient", 90),
		onlineNode("middling", 70),
	}
	job := &types.RenderJob{RequiresGPU: true, MemoryRequirementsGB: 16, CPURequirements: 4}

	best := FindNode(job, nodes)
	assert.NotNil(t, best)
	assert.Equal(t, "efficient", best.ID)
}

func TestFindNodeSkipsBusyAndOffline(t *testing.T) {
	busy := onlineNode("busy", 99)
	busy.CurrentJobID = "other"
	offline := onlineNode("offline", 98)
	offline.Status = types.NodeStatusOffline
	free := onlineNode("free", 10)

	job := &types.RenderJob{CPURequirements: 4}
	best := FindNode(job, []*types.RenderNode{busy, offline, free})
	assert.NotNil(t, best)
	assert.Equal(t, "free", best.ID)
}

func TestFindNodePrefersSpecialization(t *testing.T) {
	specialized := onlineNode("specialized", 40)
	specialized.Capabilities.SpecializedFor = []string{"simulation", "vfx"}
	generic := onlineNode("generic", 90)

	job := &types.RenderJob{JobType: "vfx", CPURequirements: 4}
	best := FindNode(job, []*types.RenderNode{generic, specialized})
	assert.Equal(t, "specialized", best.ID, "a matching specialization outranks raw efficiency")

	// No tag matches: efficiency decides again.
	other := &types.RenderJob{JobType: "animation", CPURequirements: 4}
	best = FindNode(other, []*types.RenderNode{generic, specialized})
	assert.Equal(t, "generic", best.ID)
}

func TestFindNodeEnergyIntensiveChasesEfficiency(t *testing.T) {
	specialized := onlineNode("specialized", 40)
	specialized.Capabilities.SpecializedFor = []string{"vfx"}
	efficient := onlineNode("efficient", 90)

	job := &types.RenderJob{JobType: "vfx", CPURequirements: 4, EnergyIntensive: true}
	best := FindNode(job, []*types.RenderNode{specialized, efficient})
	assert.Equal(t, "efficient", best.ID, "energy-intensive work lands on the most efficient node")
}

func TestFindNodeNoneQualify(t *testing.T) {
	job := &types.RenderJob{MemoryRequirementsGB: 1024}
	assert.Nil(t, FindNode(job, []*types.RenderNode{onlineNode("n1", 50)}))
}
