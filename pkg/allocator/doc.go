/*
Package allocator implements per-client resource admission and node
selection for the render farm.

Resources are counted in node-equivalents: one online node runs one job.
Each client carries a guaranteed floor and a hard ceiling; CanAssign
enforces the two-tier policy (guarantee always honored, burst above it
only out of genuinely spare capacity). FindNode matches a job's hardware
requirements against idle online nodes and ranks the fits: nodes
specialized for the job's type first, power efficiency as the tie-break,
with energy-intensive jobs chasing efficiency outright.

All functions are pure over the slices they receive; the farm manager
provides a consistent snapshot under its lock.
*/
package allocator
