package depgraph

import (
	"testing"

	"github.com/framewell/renderfarm/pkg/types"
	"github.com/stretchr/testify/assert"
)

func jobWithDeps(id string, deps ...string) *types.RenderJob {
	return &types.RenderJob{ID: id, Dependencies: deps}
}

func jobMap(jobs ...*types.RenderJob) map[string]*types.RenderJob {
	m := make(map[string]*types.RenderJob, len(jobs))
	for _, j := range jobs {
		m[j.ID] = j
	}
	return m
}

func TestWouldCreateCycle(t *testing.T) {
	tests := []struct {
		name string
		jobs map[string]*types.RenderJob
		id   string
		deps []string
		want bool
	}{
		{
			name: "no dependencies",
			jobs: jobMap(),
			id:   "a",
			want: false,
		},
		{
			name: "self dependency",
			jobs: jobMap(),
			id:   "a",
			deps: []string{"a"},
			want: true,
		},
		{
			name: "two node cycle",
			jobs: jobMap(jobWithDeps("a", "b")),
			id:   "b",
			deps: []string{"a"},
			want: true,
		},
		{
			name: "three node cycle",
			jobs: jobMap(jobWithDeps("a", "c"), jobWithDeps("b", "a")),
			id:   "c",
			deps: []string{"b"},
			want: true,
		},
		{
			name: "chain is not a cycle",
			jobs: jobMap(jobWithDeps("a"), jobWithDeps("b", "a")),
			id:   "c",
			deps: []string{"b"},
			want: false,
		},
		{
			name: "diamond is not a cycle",
			jobs: jobMap(jobWithDeps("root"), jobWithDeps("left", "root"), jobWithDeps("right", "root")),
			id:   "merge",
			deps: []string{"left", "right"},
			want: false,
		},
		{
			name: "unknown dependency is not a cycle",
			jobs: jobMap(),
			id:   "a",
			deps: []string{"not-yet-submitted"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WouldCreateCycle(tt.id, tt.deps, tt.jobs)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindCyclePath(t *testing.T) {
	jobs := jobMap(jobWithDeps("a", "c"), jobWithDeps("b", "a"))

	cycle := FindCyclePath("c", []string{"b"}, jobs)
	assert.NotEmpty(t, cycle)
	// Closing id repeats at the end.
	assert.Equal(t, cycle[0], cycle[len(cycle)-1])
	assert.ElementsMatch(t, []string{"a", "b", "c"}, cycle[:len(cycle)-1])
}

func TestFindCyclePathNone(t *testing.T) {
	jobs := jobMap(jobWithDeps("a"), jobWithDeps("b", "a"))
	assert.Nil(t, FindCyclePath("c", []string{"b"}, jobs))
}

func TestDependenciesSatisfied(t *testing.T) {
	completed := &types.RenderJob{ID: "done", Status: types.JobStatusCompleted}
	running := &types.RenderJob{ID: "busy", Status: types.JobStatusRunning}
	almostDone := &types.RenderJob{ID: "almost", Status: types.JobStatusRunning, Progress: 95}
	jobs := jobMap(completed, running, almostDone)

	assert.True(t, DependenciesSatisfied(jobWithDeps("x"), jobs))
	assert.True(t, DependenciesSatisfied(jobWithDeps("x", "done"), jobs))
	assert.False(t, DependenciesSatisfied(jobWithDeps("x", "busy"), jobs))
	assert.False(t, DependenciesSatisfied(jobWithDeps("x", "done", "busy"), jobs))
	assert.False(t, DependenciesSatisfied(jobWithDeps("x", "missing"), jobs))

	// High progress is not completion.
	assert.False(t, DependenciesSatisfied(jobWithDeps("x", "almost"), jobs))
}
