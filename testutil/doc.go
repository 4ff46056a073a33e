// Package testutil provides an in-memory stand-in for the upstream resource
// server, for tests that exercise the adapter, the resource clients and the
// query cache end to end.
//
//	srv := testutil.NewServer(t)
//	adapter, _ := httpclient.New(httpclient.Config{BaseURL: srv.URL()})
//	srv.FailNext("GET /users/1", http.StatusInternalServerError, 2)
//	...
//	if srv.Calls("GET /users/1") != 3 { ... }
package testutil
