// Package redis wraps a go-redis client with querykit logging and component
// lifecycle, and provides a Redis-backed tokenstore.Store so a bearer token
// can be shared by several sessions.
package redis
