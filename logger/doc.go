// Package logger provides structured logging built on zerolog.
//
// Loggers are tagged with a component name so that output from the HTTP
// adapter, the query cache and the CLI can be told apart:
//
//	log := logger.New(&logger.Config{Level: "debug", Format: "console"}, "querykit")
//	qlog := log.WithComponent("query")
//	qlog.Debug("cache hit", logger.Fields("key", key.String()))
package logger
