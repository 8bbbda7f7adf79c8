// Package logger provides structured logging for execkit using zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//	  output: "stderr"
//
// # Usage
//
//	log := logger.WithComponent("process")
//	log.Warn("sink rejected output", logger.Fields("sink", 1))
package logger
