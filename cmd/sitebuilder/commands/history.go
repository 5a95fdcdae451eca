package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"git.home.luguber.info/inful/sitebuilder/internal/eventstore"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int  `short:"n" help:"Number of builds to show" default:"20"`
	JSON  bool `name:"json" help:"Print JSON instead of a table"`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	cfg, err := LoadConfig(root.Config)
	if err != nil {
		return err
	}
	store, err := eventstore.NewSQLiteStore(cfg.Daemon.HistoryDB)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return RunHistory(context.Background(), os.Stdout, store, h.Limit, h.JSON)
}

// RunHistory prints the newest limit builds recorded in store.
func RunHistory(ctx context.Context, out io.Writer, store eventstore.Store, limit int, asJSON bool) error {
	projection := eventstore.NewBuildHistoryProjection(store, limit)
	if err := projection.Rebuild(ctx); err != nil {
		return err
	}
	history := projection.History()

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(history)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "BUILD\tTRIGGER\tSTATUS\tSTARTED\tDURATION\tPAGES\tREDIRECTS")
	for _, b := range history {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
			b.BuildID, b.Trigger, b.Status,
			b.StartedAt.Format("2006-01-02 15:04:05"), b.Duration.Round(1e6),
			b.DetailPages+b.ListingPages, b.Redirects)
	}
	return tw.Flush()
}
