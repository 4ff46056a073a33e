// Package util provides small helpers shared by the CLI renderers: slice
// helpers and display formatting for names, text and secrets.
package util
