package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alejandrodnm/ghostbot/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier.
type Console struct {
	out io.Writer
	now func() time.Time
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout, now: time.Now}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w, now: time.Now}
}

// NotifyStop imprime el motivo de parada y el estado final del dinero.
func (c *Console) NotifyStop(_ context.Context, reason domain.StopReason, state domain.MoneyState) error {
	label := "STOPPED"
	switch {
	case reason.Success():
		label = "TARGET REACHED"
	case reason.Kind == domain.StopLossHit || reason.Kind == domain.StopMaxRecovery:
		label = "CATASTROPHIC STOP"
	}

	fmt.Fprintf(c.out, "\n[%s] %s: %s\n", c.now().Format("15:04:05"), label, reason.Detail)

	table := tablewriter.NewWriter(c.out)
	table.Header("P&L", "Wins", "Losses", "Win rate", "Staked", "Phase", "Next stake")
	table.Append(
		money(state.TotalPL),
		fmt.Sprintf("%d", state.WinCount),
		fmt.Sprintf("%d", state.LossCount),
		fmt.Sprintf("%.1f%%", state.WinRate()),
		fmt.Sprintf("$%.2f", state.TotalStaked),
		string(state.Phase()),
		fmt.Sprintf("$%.2f", state.CurrentStake),
	)
	table.Render()
	return nil
}

// NotifyReport imprime el resumen de una sesión y el desglose por símbolo.
func (c *Console) NotifyReport(_ context.Context, r domain.SessionReport) error {
	s := r.Session
	status := "running"
	if s.EndedAt != nil {
		status = fmt.Sprintf("%s after %s", s.StopKind, s.EndedAt.Sub(s.StartedAt).Round(time.Second))
	}

	fmt.Fprintf(c.out, "\nSession %s (%s) started %s | %s\n",
		shortID(s.RunID), s.Bot, s.StartedAt.Local().Format("2006-01-02 15:04:05"), status)

	summary := tablewriter.NewWriter(c.out)
	summary.Header("Trades", "Entry", "Recovery", "Wins", "Losses", "Staked", "P&L", "Virtual W/L")
	summary.Append(
		fmt.Sprintf("%d", r.Trades),
		fmt.Sprintf("%d", r.EntryTrades),
		fmt.Sprintf("%d", r.RecoveryTrades),
		fmt.Sprintf("%d", s.Wins),
		fmt.Sprintf("%d", s.Losses),
		fmt.Sprintf("$%.2f", r.TotalStaked),
		money(s.TotalPL),
		fmt.Sprintf("%d/%d", r.VirtualWins, r.VirtualLosses),
	)
	summary.Render()

	if len(r.BySymbol) == 0 {
		fmt.Fprintln(c.out, "  no settled trades")
		return nil
	}

	bySymbol := tablewriter.NewWriter(c.out)
	bySymbol.Header("Symbol", "Trades", "Wins", "P&L")
	for _, sym := range r.BySymbol {
		bySymbol.Append(
			sym.Symbol,
			fmt.Sprintf("%d", sym.Trades),
			fmt.Sprintf("%d", sym.Wins),
			money(sym.PnL),
		)
	}
	bySymbol.Render()
	return nil
}

func money(v float64) string {
	if v < 0 {
		return fmt.Sprintf("-$%.2f", -v)
	}
	return fmt.Sprintf("+$%.2f", v)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
