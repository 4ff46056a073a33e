// Package httpclient is the single HTTP adapter every resource call goes
// through.
//
// An Adapter owns the base URL, timeout and default JSON headers, runs an
// ordered chain of request interceptors before each call (request id,
// bearer token, debug logging) and normalizes every failure into an
// *errors.Error exactly once:
//
//   - the server answered with a non-2xx status: message and code come from
//     the JSON body when present;
//   - the request was sent but no response arrived (connection failure,
//     timeout): status 0 and the generic network message;
//   - the request could not be built or an interceptor failed: a request
//     setup error.
//
// A 401 clears the stored token and notifies the Redirector once. The
// adapter never retries; retry belongs to the query cache.
//
//	a, err := httpclient.New(httpclient.Config{BaseURL: "https://jsonplaceholder.typicode.com"},
//	    httpclient.WithTokenStore(tokenstore.NewMemoryStore()),
//	    httpclient.WithRedirector(httpclient.RedirectFunc(func(ctx context.Context, path string) {
//	        fmt.Println("please log in:", path)
//	    })))
//
//	resp, err := a.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/users"})
package httpclient
