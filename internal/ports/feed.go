package ports

import (
	"context"

	"github.com/alejandrodnm/ghostbot/internal/domain"
)

// EventSink recibe los eventos entrantes del engine (ticks, aceptaciones,
// rechazos y liquidaciones). Lo implementa el inbox del engine.
type EventSink interface {
	// Publish encola un evento. Bloquea si la cola está llena hasta que
	// ctx termine.
	Publish(ctx context.Context, ev domain.Event) error
}

// TickFeed empuja ticks de mercado a un EventSink hasta que ctx termine.
type TickFeed interface {
	Run(ctx context.Context, sink EventSink) error
}

// HistoryProvider devuelve dígitos históricos de un símbolo para precalentar
// las ventanas de estadísticas al arrancar.
type HistoryProvider interface {
	// LoadDigits devuelve los dígitos ordenados del más viejo al más nuevo.
	// Un símbolo sin historial devuelve un slice vacío sin error.
	LoadDigits(ctx context.Context, symbol string) ([]int, error)
}
