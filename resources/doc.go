// Package resources binds the users and posts clients to the query cache.
// It owns the cache keys of each resource and the invalidation rules each
// mutation applies, so callers only ask for data or submit changes.
package resources
