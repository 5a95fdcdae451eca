package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Output string `short:"o" help:"Output directory (overrides output.directory)"`
	Clean  bool   `help:"Remove previously emitted pages and redirects first"`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	cfg, err := LoadConfig(root.Config)
	if err != nil {
		return err
	}
	if b.Clean {
		cfg.Output.Clean = true
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return RunBuild(ctx, os.Stdout, cfg, b.Output)
}

// RunBuild runs one build and prints its summary to out.
func RunBuild(ctx context.Context, out io.Writer, cfg *config.Config, outputDir string) error {
	res, err := build.NewService(cfg).Run(ctx, build.Request{OutputDir: outputDir, Trigger: "cli"})
	if res != nil && res.Report != nil {
		_, _ = fmt.Fprintln(out, res.Report.Summary())
		for _, issue := range res.Report.Issues {
			_, _ = fmt.Fprintf(out, "  %s %s [%s]: %s\n", issue.Severity, issue.Code, issue.Stage, issue.Message)
		}
	}
	return err
}
