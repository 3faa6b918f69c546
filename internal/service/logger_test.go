package service

import (
	"log/slog"
	"testing"

	"github.com/neilotoole/slogt"
)

func testLogger(t *testing.T) *slog.Logger {
	return slogt.New(t)
}
