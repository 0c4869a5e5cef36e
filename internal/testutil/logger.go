// Package testutil provides shared helpers for tests.
package testutil

import (
	"bytes"
	"log/slog"
)

// CaptureLogger returns a text logger writing into the returned buffer.
// Tests assert on diagnostic output by inspecting the buffer.
func CaptureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
