package eventstore

import "time"

// Event type names.
const (
	TypeBuildStarted   = "BuildStarted"
	TypePlanGenerated  = "PlanGenerated"
	TypeBuildCompleted = "BuildCompleted"
	TypeBuildFailed    = "BuildFailed"
)

// BuildStartedPayload describes why and on what a build started.
type BuildStartedPayload struct {
	Trigger         string `json:"trigger"`
	ContentRevision string `json:"content_revision,omitempty"`
}

// PlanGeneratedPayload summarizes a successful plan.
type PlanGeneratedPayload struct {
	Digest       string         `json:"digest"`
	Nodes        map[string]int `json:"nodes"`
	DetailPages  int            `json:"detail_pages"`
	ListingPages int            `json:"listing_pages"`
	Redirects    int            `json:"redirects"`
}

// BuildCompletedPayload is the final status of a build that did not fail.
type BuildCompletedPayload struct {
	Outcome    string `json:"outcome"`
	DurationMS int64  `json:"duration_ms"`
	OutputDir  string `json:"output_dir,omitempty"`
	Warnings   int    `json:"warnings"`
}

// BuildFailedPayload names the failing stage.
type BuildFailedPayload struct {
	Outcome    string `json:"outcome"`
	Stage      string `json:"stage,omitempty"`
	Error      string `json:"error"`
	DurationMS int64  `json:"duration_ms"`
}

// NewBuildStarted creates a BuildStarted event.
func NewBuildStarted(buildID string, at time.Time, p BuildStartedPayload) (Event, error) {
	return newEvent(buildID, TypeBuildStarted, at, p)
}

// NewPlanGenerated creates a PlanGenerated event.
func NewPlanGenerated(buildID string, at time.Time, p PlanGeneratedPayload) (Event, error) {
	return newEvent(buildID, TypePlanGenerated, at, p)
}

// NewBuildCompleted creates a BuildCompleted event.
func NewBuildCompleted(buildID string, at time.Time, p BuildCompletedPayload) (Event, error) {
	return newEvent(buildID, TypeBuildCompleted, at, p)
}

// NewBuildFailed creates a BuildFailed event.
func NewBuildFailed(buildID string, at time.Time, p BuildFailedPayload) (Event, error) {
	return newEvent(buildID, TypeBuildFailed, at, p)
}
