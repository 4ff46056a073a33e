// Package api holds the resource entities of the upstream REST server and a
// thin client per resource. Clients are stateless: no caching and no retry,
// both of which belong to the query cache.
package api
