/*
Package scheduler computes job-to-node assignments for the render farm.

The Engine is a pure decision function over a snapshot of clients, jobs
and nodes. Each cycle it:

 1. Selects jobs with status pending or queued, ordered by priority
    (critical > high > medium > low), FIFO by submission time within a
    band.
 2. Skips any job whose dependencies are not all completed.
 3. Consults the allocator for the job's client; denied claims are
    skipped, not blocked on.
 4. Picks the most power-efficient idle online node whose hardware fits.
 5. Emits an Assignment; jobs with no eligible node stay schedulable for
    the next cycle.

The engine returns decisions instead of mutating farm state, so the farm
manager can apply them atomically under its own lock. A node is never
handed to two jobs within a cycle, and per-client usage accounting is
advanced as decisions are made, keeping the admission policy consistent
for later candidates in the same cycle.

Deadline pressure is handled by UpdatePriorities, which escalates at-risk
jobs one band before selection, and optionally by preemption
(Options.EnablePreemption) for critical work.

The Loop drives cycles on a fixed interval in the background:

	loop := scheduler.NewLoop(mgr, 5*time.Second)
	loop.Start()
	defer loop.Stop()

The engine holds no state between cycles beyond its options, so a restart
loses nothing.
*/
package scheduler
