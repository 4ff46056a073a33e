// Package rest binds the HTTP adapter to a resource base path and decodes
// JSON responses into typed values:
//
//	users := rest.NewService(adapter, "/users")
//	list, err := rest.Get[[]User](ctx, users, "", nil)
//	one, err := rest.Get[User](ctx, users, "/1", nil)
//	created, err := rest.Post[User](ctx, users, "", input)
//
// Errors from the adapter are returned unchanged.
package rest
