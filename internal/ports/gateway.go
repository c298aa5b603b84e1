package ports

import (
	"context"

	"github.com/alejandrodnm/ghostbot/internal/domain"
)

// Gateway envía órdenes al broker. Es fire-and-forget: el resultado llega
// después como OrderAccepted u OrderRejected, y luego como Settlement, a
// través del EventSink. Esos eventos pueden repetirse, llegar desordenados
// o no llegar nunca.
type Gateway interface {
	// PlaceOrder no debe bloquear esperando la respuesta del broker.
	// Un error aquí equivale a un rechazo inmediato.
	PlaceOrder(ctx context.Context, req domain.OrderRequest) error
}
