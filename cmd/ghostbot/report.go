package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/ghostbot/internal/adapters/notify"
	"github.com/alejandrodnm/ghostbot/internal/adapters/storage"
)

// printReport imprime el resumen de una sesión. "latest" o vacío = la última.
func printReport(ctx context.Context, store *storage.SQLiteStorage, notifier *notify.Console, runID string) error {
	if runID == "latest" {
		runID = ""
	}

	report, err := store.SessionReport(ctx, runID)
	if errors.Is(err, storage.ErrNoSession) {
		slog.Warn("no session to report", "run_id", runID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("printReport: %w", err)
	}
	return notifier.NotifyReport(ctx, report)
}
