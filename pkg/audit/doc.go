/*
Package audit records the farm's state transition trail.

Every job and node transition the farm manager performs produces an
Entry. The Log keeps a bounded in-memory window for inspection and can
mirror entries to a BoltDB-backed store for retention across restarts.
*/
package audit
