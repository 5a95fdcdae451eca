// Package commands implements the sitebuilder command line.
package commands

import (
	"errors"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"sitebuilder.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Load content, plan pages and redirects, and write them to the output directory"`
	Plan    PlanCmd    `cmd:"" help:"Print the page and redirect plan as JSON without writing anything"`
	Init    InitCmd    `cmd:"" help:"Initialize a new configuration file"`
	Daemon  DaemonCmd  `cmd:"" help:"Rebuild on content changes and on a schedule, serving metrics"`
	History HistoryCmd `cmd:"" help:"Show recorded daemon builds"`
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// LoadConfig loads path, classifying failures for the CLI error adapter.
func LoadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	cat := ferrors.CategoryConfig
	if errors.Is(err, config.ErrConfigNotFound) {
		cat = ferrors.CategoryNotFound
	}
	return nil, ferrors.WrapError(err, cat, "load configuration").
		WithContext("path", path).
		Fatal().
		Build()
}
