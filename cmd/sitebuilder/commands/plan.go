package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
)

// PlanCmd implements the 'plan' command.
type PlanCmd struct {
	Digest bool `help:"Print only the plan digest"`
}

func (p *PlanCmd) Run(_ *Global, root *CLI) error {
	cfg, err := LoadConfig(root.Config)
	if err != nil {
		return err
	}
	return RunPlan(context.Background(), os.Stdout, cfg, p.Digest)
}

// RunPlan plans without emitting and writes the plan (or its digest) to out.
func RunPlan(ctx context.Context, out io.Writer, cfg *config.Config, digestOnly bool) error {
	res, err := build.NewService(cfg).Run(ctx, build.Request{DryRun: true, Trigger: "plan"})
	if err != nil {
		return err
	}
	if digestOnly {
		_, err = fmt.Fprintln(out, res.Report.PlanDigest)
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res.Plan)
}
