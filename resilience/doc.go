// Package resilience provides the retry policy shared by every layer that
// retries: query fetches and mutations use the same Policy type, differing
// only in their parameters.
//
//	res, err := resilience.Retry(ctx, resilience.QueryPolicy(), func(attempt int) (User, error) {
//	    return users.Get(ctx, id)
//	})
//
// Delays grow as min(BaseDelay * Factor^n, CapDelay) where n is the zero-based
// retry index. Only errors accepted by RetryIf are retried.
package resilience
