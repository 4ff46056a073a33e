// Package component defines the lifecycle contract shared by long-lived
// parts of a querykit session (the HTTP adapter, the query cache, the Redis
// client) and a registry that starts them in order and stops them in
// reverse.
package component
