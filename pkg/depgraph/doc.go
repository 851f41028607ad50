/*
Package depgraph validates the render job dependency graph.

It detects cycles at submission time (WouldCreateCycle, FindCyclePath) and
answers whether a job's dependencies are all completed and it is therefore
schedulable (DependenciesSatisfied). The graph is expressed as job ids
resolved through the farm manager's job map; this package never mutates
job state.
*/
package depgraph
