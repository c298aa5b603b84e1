package ports

import (
	"context"

	"github.com/alejandrodnm/ghostbot/internal/domain"
)

// Notifier presenta al operador los eventos terminales de una sesión.
type Notifier interface {
	// NotifyStop se llama una vez por sesión cuando el bot se detiene.
	NotifyStop(ctx context.Context, reason domain.StopReason, state domain.MoneyState) error

	// NotifyReport imprime el resumen de una sesión.
	NotifyReport(ctx context.Context, report domain.SessionReport) error
}
