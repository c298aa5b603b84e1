// Package redis lee el historial de dígitos que un recorder externo publica
// en Redis bajo `ghost:market:{symbol}`. Este repo nunca escribe esas claves.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	keyPrefix          = "ghost:market:"
	defaultPoolSize    = 4
	defaultDialTimeout = 5 * time.Second
)

// Config configura la conexión a Redis.
type Config struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	// MaxAge marca como viejo un snapshot más antiguo que esto (0 = sin límite).
	MaxAge time.Duration
}

// snapshot es el JSON que escribe el recorder.
type snapshot struct {
	Symbol    string          `json:"symbol"`
	Timestamp int64           `json:"timestamp"` // ms desde epoch
	Ticks     []int           `json:"last_1000_ticks"`
	Stats     json.RawMessage `json:"stats,omitempty"`
}

// HistoryStore implementa ports.HistoryProvider sobre Redis.
type HistoryStore struct {
	client *goredis.Client
	maxAge time.Duration
	now    func() time.Time
}

// NewHistoryStore conecta y verifica la conexión con un PING.
func NewHistoryStore(ctx context.Context, cfg Config) (*HistoryStore, error) {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = defaultPoolSize
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: defaultDialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, defaultDialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis.NewHistoryStore: ping %s: %w", cfg.Addr, err)
	}
	return &HistoryStore{client: client, maxAge: cfg.MaxAge, now: time.Now}, nil
}

// LoadDigits devuelve los dígitos del símbolo, del más viejo al más nuevo.
// Una clave inexistente devuelve un slice vacío sin error.
func (h *HistoryStore) LoadDigits(ctx context.Context, symbol string) ([]int, error) {
	data, err := h.client.Get(ctx, Key(symbol)).Bytes()
	if errors.Is(err, goredis.Nil) {
		slog.Debug("redis: no history", "symbol", symbol)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis.LoadDigits: get %s: %w", symbol, err)
	}

	snap, err := decodeSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("redis.LoadDigits: %s: %w", symbol, err)
	}
	if age := snapshotAge(snap, h.now()); h.maxAge > 0 && age > h.maxAge {
		slog.Warn("redis: stale history", "symbol", symbol, "age", age.Round(time.Second))
	}
	return validDigits(snap.Ticks), nil
}

// Close cierra el cliente.
func (h *HistoryStore) Close() error {
	return h.client.Close()
}

// Key devuelve la clave Redis de un símbolo.
func Key(symbol string) string { return keyPrefix + symbol }

func decodeSnapshot(data []byte) (snapshot, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

func snapshotAge(s snapshot, now time.Time) time.Duration {
	if s.Timestamp <= 0 {
		return 0
	}
	return now.Sub(time.UnixMilli(s.Timestamp))
}

// validDigits descarta valores fuera de 0..9.
func validDigits(ticks []int) []int {
	out := make([]int, 0, len(ticks))
	for _, d := range ticks {
		if d >= 0 && d <= 9 {
			out = append(out, d)
		}
	}
	return out
}
