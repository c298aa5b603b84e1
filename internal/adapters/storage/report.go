package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/alejandrodnm/ghostbot/internal/domain"
)

// SessionReport agrega una sesión: totales, desglose Entry/Recovery,
// resultados virtuales y PnL por símbolo. runID vacío = la última sesión.
func (s *SQLiteStorage) SessionReport(ctx context.Context, runID string) (domain.SessionReport, error) {
	sess, err := s.session(ctx, runID)
	if err != nil {
		return domain.SessionReport{}, fmt.Errorf("storage.SessionReport: %w", err)
	}

	trades, err := s.Trades(ctx, sess.RunID)
	if err != nil {
		return domain.SessionReport{}, fmt.Errorf("storage.SessionReport: %w", err)
	}

	report := domain.SessionReport{Session: sess, Trades: len(trades)}
	bySymbol := make(map[string]*domain.SymbolSummary)
	for _, t := range trades {
		switch t.Strategy {
		case domain.StrategyEntry:
			report.EntryTrades++
		case domain.StrategyRecovery:
			report.RecoveryTrades++
		}
		report.TotalStaked = domain.AddMoney(report.TotalStaked, t.Stake)

		sum, ok := bySymbol[t.Symbol]
		if !ok {
			sum = &domain.SymbolSummary{Symbol: t.Symbol}
			bySymbol[t.Symbol] = sum
		}
		sum.Trades++
		if t.Won {
			sum.Wins++
		}
		sum.PnL = domain.AddMoney(sum.PnL, t.Profit)
	}
	for _, sum := range bySymbol {
		report.BySymbol = append(report.BySymbol, *sum)
	}
	// Mayor PnL primero
	sort.Slice(report.BySymbol, func(i, j int) bool {
		if report.BySymbol[i].PnL != report.BySymbol[j].PnL {
			return report.BySymbol[i].PnL > report.BySymbol[j].PnL
		}
		return report.BySymbol[i].Symbol < report.BySymbol[j].Symbol
	})

	if err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(won), 0), COALESCE(SUM(1 - won), 0)
		FROM virtual_trades WHERE run_id = ?`, sess.RunID,
	).Scan(&report.VirtualWins, &report.VirtualLosses); err != nil {
		return domain.SessionReport{}, fmt.Errorf("storage.SessionReport: virtual totals: %w", err)
	}

	// Una sesión sin cerrar todavía no tiene totales: se derivan de los trades.
	if sess.EndedAt == nil {
		var pl float64
		for _, t := range trades {
			pl = domain.AddMoney(pl, t.Profit)
			if t.Won {
				report.Session.Wins++
			} else {
				report.Session.Losses++
			}
		}
		report.Session.TotalPL = pl
	}
	return report, nil
}

func (s *SQLiteStorage) session(ctx context.Context, runID string) (domain.Session, error) {
	query := `
		SELECT run_id, bot, started_at, ended_at, stop_kind, stop_detail, total_pl, wins, losses
		FROM sessions WHERE run_id = ?`
	args := []any{runID}
	if runID == "" {
		query = `
		SELECT run_id, bot, started_at, ended_at, stop_kind, stop_detail, total_pl, wins, losses
		FROM sessions ORDER BY started_at DESC, rowid DESC LIMIT 1`
		args = nil
	}

	var sess domain.Session
	var startedAt, stopKind string
	var endedAt sql.NullString
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&sess.RunID,
		&sess.Bot,
		&startedAt,
		&endedAt,
		&stopKind,
		&sess.StopDetail,
		&sess.TotalPL,
		&sess.Wins,
		&sess.Losses,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, ErrNoSession
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("query session: %w", err)
	}

	sess.StartedAt = parseTime(startedAt)
	sess.StopKind = domain.StopKind(stopKind)
	if endedAt.Valid {
		t := parseTime(endedAt.String)
		sess.EndedAt = &t
	}
	return sess, nil
}
