/*
Package events provides a pub/sub broker for farm lifecycle events.

The farm manager publishes an event for every job and node transition;
monitoring and the API layer subscribe. Delivery is best-effort: a slow
subscriber's buffer overflowing drops events for that subscriber only.
*/
package events
