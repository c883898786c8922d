package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"smatrader/src/database"
	"smatrader/src/model"
	"smatrader/src/repository"
	"smatrader/src/utils"

	logger "github.com/sirupsen/logrus"
)

const recentTradesLimit = 10

type reportSource interface {
	GetStatistics(ctx context.Context) (model.Statistics, error)
	RecentTrades(ctx context.Context, limit int) ([]model.TradeRecord, error)
	LoadSnapshot(ctx context.Context) (*model.SystemState, error)
}

// Report prints trade statistics, recent trades and the saved engine state.
type Report struct {
	Log *logger.Entry
	Out io.Writer
}

func (r *Report) Start() error {
	if r.Out == nil {
		r.Out = os.Stdout
	}
	if r.Log == nil {
		r.Log = logger.WithField("cmd", "report")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := repository.OpenStateStore(ctx, database.GetConfig())
	if err != nil {
		return err
	}
	defer store.Close()
	r.Log.WithField("backend", store.Backend()).Debug("Reading trading database")

	return Write(ctx, r.Out, store)
}

func Write(ctx context.Context, out io.Writer, src reportSource) error {
	stats, err := src.GetStatistics(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "=== Trade statistics ===")
	fmt.Fprintf(out, "total_trades: %d\n", stats.TotalTrades)
	fmt.Fprintf(out, "winning_trades: %d\n", stats.WinningTrades)
	fmt.Fprintf(out, "win_rate: %.2f%%\n", stats.WinRate)
	fmt.Fprintf(out, "total_pnl: %.4f\n", stats.TotalPnl)

	trades, err := src.RecentTrades(ctx, recentTradesLimit)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\n=== Last %d trades ===\n", recentTradesLimit)
	if len(trades) == 0 {
		fmt.Fprintln(out, "No trades recorded")
	} else {
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME\tACTION\tSYMBOL\tPRICE\tQTY\tPNL\tTRADE ID")
		for _, t := range trades {
			pnl := "-"
			if t.Pnl.Valid {
				pnl = utils.FormatPnl(t.Pnl.Decimal)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				t.Timestamp.UTC().Format(time.RFC3339), t.Action, t.Symbol,
				t.Price.String(), t.Quantity.String(), pnl, t.TradeID)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	state, err := src.LoadSnapshot(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "\n=== Current state ===")
	if state == nil {
		fmt.Fprintln(out, "No saved state")
		return nil
	}
	fmt.Fprintf(out, "Position: %s\n", state.Position)
	fmt.Fprintf(out, "Entry Price: %s\n", state.EntryPrice.String())
	fmt.Fprintf(out, "Running PnL: %s\n", utils.FormatPnl(state.RunningPnl))
	if !state.UpdatedAt.IsZero() {
		fmt.Fprintf(out, "Updated: %s\n", state.UpdatedAt.UTC().Format(time.RFC3339))
	}
	return nil
}
