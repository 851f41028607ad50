/*
Package types defines the core data structures of the render farm.

This package contains the domain model shared by every other package:
clients with resource guarantees, render nodes with hardware capabilities,
render jobs with dependencies and deadlines, and the typed enums for job
and node lifecycle states.

# Entity relationships

Entities refer to each other by id only:

	RenderJob.ClientID       -> Client.ID
	RenderJob.Dependencies   -> other RenderJob.IDs
	RenderJob.AssignedNodeID -> RenderNode.ID
	RenderNode.CurrentJobID  -> RenderJob.ID

The farm manager (pkg/farm) owns the id-keyed maps and resolves these
references on demand. No entity embeds a live pointer to another, so the
job dependency graph can contain cycles among ids (which submission
validation rejects) without creating ownership cycles in memory.

# Job state machine

	pending → running → completed
	            │
	            ├──→ queued → running   (node failure, retry budget left)
	            └──→ failed             (retry budget exhausted)

	pending → failed     (circular dependency detected at submission)
	any non-terminal → cancelled

Completed, failed and cancelled are terminal; terminal jobs are retained
for audit and never mutated again.

# Invariants

  - Client.GuaranteedResources <= Client.MaxResources
  - RenderJob.AssignedNodeID is non-empty iff Status == running
  - A node's CurrentJobID and its job's AssignedNodeID always agree

All types are plain structs with no internal locking; the farm manager
serializes access behind a single mutex.
*/
package types
