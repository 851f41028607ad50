/*
Package api exposes the farm manager over HTTP.

Job submission and lifecycle, node failure reporting and status views
are available under /v1. /healthz and Prometheus /metrics live at the
root. Farm sentinel errors map to 404 (unknown id) and 409 (duplicate);
a job rejected for circular dependencies is still a 201, its failed
status tells the story.
*/
package api
