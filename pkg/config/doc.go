/*
Package config loads the farmd YAML configuration.

The file carries daemon settings (logging, scheduler cadence, API
listener, audit retention) plus the initial fleet: the clients and
render nodes registered when the daemon starts. Everything is optional;
unset fields take the Default values.
*/
package config
