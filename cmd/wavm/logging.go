package main

import "go.uber.org/zap"

// loggerFields builds the common (path, error?) field pair used across the
// subcommands, omitting the error field entirely on success so a clean run
// doesn't log a stray "error": null.
func loggerFields(path string, err error) []zap.Field {
	fields := []zap.Field{zap.String("path", path)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	return fields
}
