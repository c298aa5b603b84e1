package ports

import (
	"context"

	"github.com/alejandrodnm/ghostbot/internal/domain"
)

// Journal persiste sesiones, trades liquidados y resultados virtuales.
// No almacena datos de mercado.
type Journal interface {
	StartSession(ctx context.Context, s domain.Session) error
	EndSession(ctx context.Context, s domain.Session) error
	SaveTrade(ctx context.Context, t domain.TradeRecord) error
	SaveVirtualResult(ctx context.Context, runID string, r domain.VirtualResult) error

	// SessionReport agrega una sesión. runID vacío = la última sesión.
	SessionReport(ctx context.Context, runID string) (domain.SessionReport, error)

	Close() error
}
