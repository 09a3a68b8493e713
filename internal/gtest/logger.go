package gtest

import (
	"log/slog"
	"testing"

	"github.com/neilotoole/slogt"
)

// NewLogger returns a logger whose output is routed through t.Log,
// so that log lines are only shown for failing or verbose tests.
func NewLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slogt.New(t)
}
