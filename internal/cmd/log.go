// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"io"
	"log/slog"
	"os"
	"strconv"
)

// Environment variable enabling debug logging in the child.
const debugEnv = "VIRTSUP_DEBUG"

func setupLogging(writer io.Writer, level slog.Level) {
	slog.SetDefault(slog.New(slog.NewTextHandler(
		writer,
		&slog.HandlerOptions{
			Level: level,
		},
	)))
}

func logLevel(debug bool) slog.Level {
	if debug {
		return slog.LevelDebug
	}

	return slog.LevelWarn
}

// childLogLevel is at least info, so stop requests are always logged.
func childLogLevel() slog.Level {
	debug, _ := strconv.ParseBool(os.Getenv(debugEnv))
	if debug {
		return slog.LevelDebug
	}

	return slog.LevelInfo
}
