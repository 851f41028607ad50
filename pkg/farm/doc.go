/*
Package farm is the coordination façade for the render farm.

The Manager owns the client, node and job collections and is the single
writer for all of them. Every public method takes the farm lock, so the
scheduling cycle, lifecycle transitions and failure handling each see
and produce a consistent whole-farm state. Scheduling decisions are
computed by pkg/scheduler over a snapshot of that state and applied
here.

Validation failures (unknown ids, duplicates) are returned as errors
wrapping the package sentinels. Domain outcomes such as a circular
dependency at submission are not errors: the job is stored failed and
the outcome is visible through its status, events and the audit trail.
*/
package farm
