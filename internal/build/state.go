package build

import (
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/plan"
)

// State carries data between stages of one build.
type State struct {
	Config    *config.Config
	Request   Request
	OutputDir string
	Report    *Report

	Nodes      []*content.Node
	Collection *content.Collection
	Plan       *plan.Plan
	Emitter    plan.Emitter

	Recorder metrics.Recorder
	Observer Observer
}

func (st *State) observer() Observer {
	if st.Observer == nil {
		return NoopObserver{}
	}
	return st.Observer
}
