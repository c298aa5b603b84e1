package storage

// sqlite.go: journal de sesiones del bot.
//
// Tablas:
//   - `sessions`: una fila por Start..Stop, se completa al detenerse.
//   - `trades`: una fila por contrato real liquidado. contract_id es PK, así
//     una liquidación repetida nunca duplica filas.
//   - `virtual_trades`: resultados del virtual hook, para auditar rachas.
//
// No se guardan ticks: el historial de mercado vive en Redis.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alejandrodnm/ghostbot/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    run_id      TEXT PRIMARY KEY,
    bot         TEXT     NOT NULL,
    started_at  DATETIME NOT NULL,
    ended_at    DATETIME,
    stop_kind   TEXT     NOT NULL DEFAULT '',
    stop_detail TEXT     NOT NULL DEFAULT '',
    total_pl    REAL     NOT NULL DEFAULT 0,
    wins        INTEGER  NOT NULL DEFAULT 0,
    losses      INTEGER  NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS trades (
    contract_id   TEXT PRIMARY KEY,
    run_id        TEXT     NOT NULL,
    symbol        TEXT     NOT NULL,
    strategy      TEXT     NOT NULL,
    contract_type TEXT     NOT NULL,
    barrier       INTEGER  NOT NULL DEFAULT 0,
    stake         REAL     NOT NULL,
    profit        REAL     NOT NULL,
    won           INTEGER  NOT NULL DEFAULT 0,
    match_kind    TEXT     NOT NULL DEFAULT 'id',
    settled_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS virtual_trades (
    id          TEXT PRIMARY KEY,
    run_id      TEXT     NOT NULL,
    bot         TEXT     NOT NULL,
    symbol      TEXT     NOT NULL,
    action      TEXT     NOT NULL,
    barrier     INTEGER  NOT NULL DEFAULT 0,
    entry_quote REAL     NOT NULL DEFAULT 0,
    exit_quote  REAL     NOT NULL DEFAULT 0,
    exit_digit  INTEGER  NOT NULL DEFAULT 0,
    won         INTEGER  NOT NULL DEFAULT 0,
    wins        INTEGER  NOT NULL DEFAULT 0,
    losses      INTEGER  NOT NULL DEFAULT 0,
    placed_at   DATETIME NOT NULL,
    settled_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_trades_run       ON trades(run_id);
CREATE INDEX IF NOT EXISTS idx_virtual_run      ON virtual_trades(run_id);
`

// Columnas añadidas después de la primera versión del schema.
var migrations = []string{
	"ALTER TABLE trades ADD COLUMN match_kind TEXT NOT NULL DEFAULT 'id'",
	"ALTER TABLE virtual_trades ADD COLUMN exit_quote REAL NOT NULL DEFAULT 0",
}

const retentionVirtual = 30 * 24 * time.Hour // resultados virtuales: 30 días

// ErrNoSession se devuelve cuando no hay sesión que reportar.
var ErrNoSession = errors.New("storage: session not found")

// SQLiteStorage implementa ports.Journal usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada, aplica el
// schema y limpia resultados virtuales antiguos.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}
	for _, stmt := range migrations {
		db.Exec(stmt) // falla si la columna ya existe
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// StartSession registra el inicio de una corrida.
func (s *SQLiteStorage) StartSession(ctx context.Context, sess domain.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (run_id, bot, started_at) VALUES (?, ?, ?)
		ON CONFLICT(run_id) DO NOTHING`,
		sess.RunID, sess.Bot, formatTime(sess.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("storage.StartSession: %w", err)
	}
	return nil
}

// EndSession completa la fila de la sesión con el motivo de parada y los totales.
func (s *SQLiteStorage) EndSession(ctx context.Context, sess domain.Session) error {
	var endedAt *string
	if sess.EndedAt != nil {
		t := formatTime(*sess.EndedAt)
		endedAt = &t
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET ended_at = ?, stop_kind = ?, stop_detail = ?, total_pl = ?, wins = ?, losses = ?
		WHERE run_id = ?`,
		endedAt, string(sess.StopKind), sess.StopDetail, sess.TotalPL, sess.Wins, sess.Losses, sess.RunID,
	)
	if err != nil {
		return fmt.Errorf("storage.EndSession: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("storage.EndSession: run %s: %w", sess.RunID, ErrNoSession)
	}
	return nil
}

// SaveTrade inserta un trade liquidado. Un contract_id repetido se ignora.
func (s *SQLiteStorage) SaveTrade(ctx context.Context, t domain.TradeRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (contract_id, run_id, symbol, strategy, contract_type,
		                    barrier, stake, profit, won, match_kind, settled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(contract_id) DO NOTHING`,
		t.ContractID, t.RunID, t.Symbol, string(t.Strategy), string(t.ContractType),
		t.Barrier, t.Stake, t.Profit, boolInt(t.Won), t.Match, formatTime(t.SettledAt),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveTrade: %s: %w", t.ContractID, err)
	}
	return nil
}

// SaveVirtualResult guarda el resultado de una orden virtual.
func (s *SQLiteStorage) SaveVirtualResult(ctx context.Context, runID string, r domain.VirtualResult) error {
	o := r.Order
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO virtual_trades (id, run_id, bot, symbol, action, barrier, entry_quote,
		                            exit_quote, exit_digit, won, wins, losses, placed_at, settled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		o.ID, runID, o.Bot, o.Symbol, string(o.Action), o.Barrier, o.EntryQuote,
		r.ExitQuote, r.ExitDigit, boolInt(r.Won), r.Streak.Wins, r.Streak.Losses,
		formatTime(o.PlacedAt), formatTime(r.SettledAt),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveVirtualResult: %s: %w", o.ID, err)
	}
	return nil
}

// Trades devuelve los trades de una corrida en orden de liquidación.
func (s *SQLiteStorage) Trades(ctx context.Context, runID string) ([]domain.TradeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT contract_id, run_id, symbol, strategy, contract_type,
		       barrier, stake, profit, won, match_kind, settled_at
		FROM trades
		WHERE run_id = ?
		ORDER BY settled_at, contract_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("storage.Trades: query: %w", err)
	}
	defer rows.Close()

	var trades []domain.TradeRecord
	for rows.Next() {
		var t domain.TradeRecord
		var strategy, contractType, settledAt string
		var won int
		if err := rows.Scan(
			&t.ContractID,
			&t.RunID,
			&t.Symbol,
			&strategy,
			&contractType,
			&t.Barrier,
			&t.Stake,
			&t.Profit,
			&won,
			&t.Match,
			&settledAt,
		); err != nil {
			return nil, fmt.Errorf("storage.Trades: scan row: %w", err)
		}
		t.Strategy = domain.Strategy(strategy)
		t.ContractType = domain.ContractType(contractType)
		t.Won = won == 1
		t.SettledAt = parseTime(settledAt)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

// pruneOld elimina resultados virtuales antiguos; sesiones y trades se conservan.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := formatTime(time.Now().Add(-retentionVirtual))
	s.db.ExecContext(ctx, `DELETE FROM virtual_trades WHERE settled_at < ?`, cutoff)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
