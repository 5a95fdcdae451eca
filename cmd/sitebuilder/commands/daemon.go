package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/sitebuilder/internal/daemon"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/notify"
)

// DaemonCmd implements the 'daemon' command.
type DaemonCmd struct {
	Output string `short:"o" help:"Output directory (overrides output.directory)"`
}

func (d *DaemonCmd) Run(_ *Global, root *CLI) error {
	cfg, err := LoadConfig(root.Config)
	if err != nil {
		return err
	}

	opts := daemon.Options{ConfigPath: root.Config, OutputDir: d.Output}
	if cfg.Notify.Enabled {
		pub, err := notify.Connect(cfg.Notify.NATSURL, cfg.Notify.Subject)
		if err != nil {
			slog.Warn("Build notifications disabled", logfields.Error(err))
		} else {
			opts.Publisher = pub
		}
	}

	dmn, err := daemon.New(cfg, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := dmn.Close(); cerr != nil {
			slog.Warn("Daemon cleanup failed", logfields.Error(cerr))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return dmn.Run(ctx)
}
