// Copyright © 2024 Jeff Berkowitz (pdxjjb@gmail.com)
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.

// Package logging builds the process-wide zerolog.Logger from a
// config.LoggingConfig, the way the framework this tooling is modelled
// on turns a LogLevel/LogFormat pair into a configured zerolog.Logger.
package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kartoffels-sim/kartoffels/internal/config"
)

// Writer wraps w in a human-readable console formatter when format is
// "text", and returns w unchanged (for JSON lines) otherwise. Callers
// that need several loggers sharing one process's output (the root
// logger plus one per world) build the writer once and pass it to New
// for each.
func Writer(w io.Writer, format string) io.Writer {
	if strings.EqualFold(format, "text") {
		return zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return w
}

// New builds a zerolog.Logger writing to w according to cfg. An unknown
// Level falls back to info; an unknown Format falls back to JSON.
func New(w io.Writer, cfg config.LoggingConfig) zerolog.Logger {
	logger := zerolog.New(Writer(w, cfg.Format)).With().Timestamp().Logger()

	switch strings.ToLower(cfg.Level) {
	case "debug":
		logger = logger.Level(zerolog.DebugLevel)
	case "warn":
		logger = logger.Level(zerolog.WarnLevel)
	case "error":
		logger = logger.Level(zerolog.ErrorLevel)
	default:
		logger = logger.Level(zerolog.InfoLevel)
	}

	return logger
}
