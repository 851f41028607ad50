package depgraph

import (
	"github.com/framewell/renderfarm/pkg/types"
)

// WouldCreateCycle reports whether registering newJobID with the given
// dependency ids would introduce a cycle in the job dependency graph.
//
// The walk follows the dependencies of already-known jobs depth-first,
// starting from each declared dependency; reaching newJobID again means a
// cycle. A dependency on an unknown id is not a cycle: the job may simply
// not have been submitted yet. A self-dependency is the degenerate
// one-node cycle and is reported as such.
//
// Runs in O(V+E) and is intended to be called once at submission time.
func WouldCreateCycle(newJobID string, dependencies []string, jobs map[string]*types.RenderJob) bool {
	visited := make(map[string]bool, len(jobs))
	stack := make([]string, 0, len(dependencies))
	stack = append(stack, dependencies...)

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if id == newJobID {
			return true
		}
		if visited[id] {
			continue
		}
		visited[id] = true

		job, ok := jobs[id]
		if !ok {
			continue
		}
		stack = append(stack, job.Dependencies...)
	}

	return false
}

// FindCyclePath returns the ids forming a dependency cycle reachable from
// startID, or nil if none exists. The candidate job's own dependencies are
// supplied separately since it may not be stored yet. The returned path
// lists each member once, with the closing id repeated at the end.
func FindCyclePath(startID string, dependencies []string, jobs map[string]*types.RenderJob) []string {
	graph := make(map[string][]string, len(jobs)+1)
	for id, job := range jobs {
		if len(job.Dependencies) > 0 {
			graph[id] = job.Dependencies
		}
	}
	graph[startID] = dependencies

	visited := make(map[string]bool)
	var path []string

	var walk func(id string) []string
	walk = func(id string) []string {
		for i, p := range path {
			if p == id {
				cycle := make([]string, 0, len(path)-i+1)
				cycle = append(cycle, path[i:]...)
				return append(cycle, id)
			}
		}
		if visited[id] {
			return nil
		}
		visited[id] = true
		path = append(path, id)

		for _, dep := range graph[id] {
			if _, ok := graph[dep]; !ok {
				continue
			}
			if cycle := walk(dep); cycle != nil {
				return cycle
			}
		}

		path = path[:len(path)-1]
		return nil
	}

	return walk(startID)
}

// DependenciesSatisfied reports whether every dependency of the job
// resolves to a known job with status completed. A missing dependency is
// not satisfied: the scheduler cannot distinguish "not yet submitted"
// from "never will be", so the job stays pending until the id appears.
func DependenciesSatisfied(job *types.RenderJob, jobs map[string]*types.RenderJob) bool {
	for _, depID := range job.Dependencies {
		dep, ok := jobs[depID]
		if !ok {
			return false
		}
		if dep.Status != types.JobStatusCompleted {
			return false
		}
	}
	return true
}
