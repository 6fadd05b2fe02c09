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

package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/kartoffels-sim/kartoffels/internal/config"
)

func TestWriterPassesThroughForJson(t *testing.T) {
	var buf bytes.Buffer
	w := Writer(&buf, "json")
	require.Same(t, &buf, w)
}

func TestWriterWrapsConsoleWriterForText(t *testing.T) {
	var buf bytes.Buffer
	w := Writer(&buf, "text")

	_, ok := w.(zerolog.ConsoleWriter)
	require.True(t, ok)
}

func TestWriterTextIsCaseInsensitive(t *testing.T) {
	var buf bytes.Buffer
	w := Writer(&buf, "TEXT")

	_, ok := w.(zerolog.ConsoleWriter)
	require.True(t, ok)
}

func TestNewEmitsJsonAtConfiguredLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, config.LoggingConfig{Level: "warn", Format: "json"})

	logger.Info().Msg("should be filtered out")
	require.Empty(t, buf.String())

	logger.Warn().Msg("should appear")
	require.Contains(t, buf.String(), "should appear")
	require.True(t, strings.Contains(buf.String(), `"level":"warn"`))
}

func TestNewDefaultsToInfoForUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, config.LoggingConfig{Level: "bogus", Format: "json"})

	logger.Debug().Msg("filtered")
	require.Empty(t, buf.String())

	logger.Info().Msg("kept")
	require.Contains(t, buf.String(), "kept")
}

func TestNewLevelIsCaseInsensitive(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, config.LoggingConfig{Level: "DEBUG", Format: "json"})

	logger.Debug().Msg("shows up")
	require.Contains(t, buf.String(), "shows up")
}
