// Package query is the client-side cache coordinator. It owns every cached
// server value, keyed by a hierarchical Key, and decides when to serve from
// cache, when to fetch, and how mutations update the cache.
//
// Reads go through Fetch. Fresh data is returned immediately; stale data is
// returned immediately and refreshed once in the background; missing data is
// fetched while the caller waits. Concurrent reads of one key share a single
// in-flight fetch.
//
//	users, err := query.Fetch(ctx, qc, query.Key{"users", "list"}, api.List)
//
// Writes go through Mutate. Provisional writes made in OnMutate are
// snapshotted and rolled back if the mutation fails; invalidations requested
// by the lifecycle callbacks are applied after the mutation settles.
//
//	res := query.Mutate(ctx, qc, query.Mutation[api.CreatePostRequest, api.Post]{
//	    Fn: posts.Create,
//	    OnSuccess: func(tx *query.Tx, p api.Post, _ api.CreatePostRequest) {
//	        tx.Set(query.Key{"posts", "detail", p.ID}, p)
//	        tx.Invalidate(query.Key{"posts", "list"})
//	    },
//	}, input)
//
// Failed fetches are retried per a resilience.Policy: transient errors only
// (network failures and 5xx responses), with capped exponential backoff.
package query
