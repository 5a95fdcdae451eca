package eventstore

import (
	"context"
	"sort"
	"sync"
	"time"
)

const (
	buildStatusRunning = "running"
	buildStatusFailed  = "failed"
)

// BuildSummary is a read model of one build.
type BuildSummary struct {
	BuildID         string         `json:"build_id"`
	Trigger         string         `json:"trigger,omitempty"`
	ContentRevision string         `json:"content_revision,omitempty"`
	Status          string         `json:"status"` // running, success, warning, failed, canceled
	StartedAt       time.Time      `json:"started_at"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	Duration        time.Duration  `json:"duration,omitempty"`
	PlanDigest      string         `json:"plan_digest,omitempty"`
	Nodes           map[string]int `json:"nodes,omitempty"`
	DetailPages     int            `json:"detail_pages"`
	ListingPages    int            `json:"listing_pages"`
	Redirects       int            `json:"redirects"`
	ErrorStage      string         `json:"error_stage,omitempty"`
	ErrorMessage    string         `json:"error_message,omitempty"`
}

// BuildHistoryProjection maintains an in-memory view of build history,
// reconstructed from events stored in the event store.
type BuildHistoryProjection struct {
	mu       sync.RWMutex
	store    Store
	builds   map[string]*BuildSummary
	history  []*BuildSummary // completed builds, newest first
	maxSize  int
	lastSync time.Time
}

// NewBuildHistoryProjection creates a new projection backed by the given store.
func NewBuildHistoryProjection(store Store, maxHistorySize int) *BuildHistoryProjection {
	if maxHistorySize <= 0 {
		maxHistorySize = 100
	}
	return &BuildHistoryProjection{
		store:   store,
		builds:  make(map[string]*BuildSummary),
		history: make([]*BuildSummary, 0, maxHistorySize),
		maxSize: maxHistorySize,
	}
}

// Rebuild reconstructs the projection from all events in the store.
func (p *BuildHistoryProjection) Rebuild(ctx context.Context) error {
	events, err := p.store.Between(ctx, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.builds = make(map[string]*BuildSummary)
	p.history = make([]*BuildSummary, 0, p.maxSize)
	for _, event := range events {
		p.applyEventLocked(event)
	}

	sort.SliceStable(p.history, func(i, j int) bool {
		return p.history[i].StartedAt.After(p.history[j].StartedAt)
	})
	if len(p.history) > p.maxSize {
		p.history = p.history[:p.maxSize]
	}
	p.pruneBuildsLocked()

	p.lastSync = time.Now()
	return nil
}

// Apply processes a single event and updates the projection.
func (p *BuildHistoryProjection) Apply(event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyEventLocked(event)
}

func (p *BuildHistoryProjection) applyEventLocked(event Event) {
	buildID := event.BuildID
	if buildID == "" {
		return
	}

	summary, exists := p.builds[buildID]
	if !exists {
		summary = &BuildSummary{BuildID: buildID, Status: buildStatusRunning, StartedAt: event.At}
		p.builds[buildID] = summary
	}

	switch event.Type {
	case TypeBuildStarted:
		var payload BuildStartedPayload
		if err := event.Decode(&payload); err == nil {
			summary.Trigger = payload.Trigger
			summary.ContentRevision = payload.ContentRevision
		}
		summary.StartedAt = event.At

	case TypePlanGenerated:
		var payload PlanGeneratedPayload
		if err := event.Decode(&payload); err == nil {
			summary.PlanDigest = payload.Digest
			summary.Nodes = payload.Nodes
			summary.DetailPages = payload.DetailPages
			summary.ListingPages = payload.ListingPages
			summary.Redirects = payload.Redirects
		}

	case TypeBuildCompleted:
		p.completeLocked(summary, event.At)
		var payload BuildCompletedPayload
		if err := event.Decode(&payload); err == nil && payload.Outcome != "" {
			summary.Status = payload.Outcome
		}
		p.addToHistoryLocked(summary)

	case TypeBuildFailed:
		p.completeLocked(summary, event.At)
		summary.Status = buildStatusFailed
		var payload BuildFailedPayload
		if err := event.Decode(&payload); err == nil {
			if payload.Outcome != "" {
				summary.Status = payload.Outcome
			}
			summary.ErrorStage = payload.Stage
			summary.ErrorMessage = payload.Error
		}
		p.addToHistoryLocked(summary)
	}
}

func (p *BuildHistoryProjection) completeLocked(summary *BuildSummary, at time.Time) {
	summary.CompletedAt = &at
	summary.Duration = at.Sub(summary.StartedAt)
}

func (p *BuildHistoryProjection) addToHistoryLocked(summary *BuildSummary) {
	for _, h := range p.history {
		if h.BuildID == summary.BuildID {
			return
		}
	}
	p.history = append([]*BuildSummary{summary}, p.history...)
	if len(p.history) > p.maxSize {
		p.history = p.history[:p.maxSize]
	}
	p.pruneBuildsLocked()
}

// pruneBuildsLocked drops completed builds that fell out of the bounded
// history. Running builds are kept.
func (p *BuildHistoryProjection) pruneBuildsLocked() {
	keep := make(map[string]struct{}, len(p.history))
	for _, h := range p.history {
		keep[h.BuildID] = struct{}{}
	}
	for id, summary := range p.builds {
		if summary.Status == buildStatusRunning {
			continue
		}
		if _, ok := keep[id]; !ok {
			delete(p.builds, id)
		}
	}
}

// History returns the build history, newest first.
func (p *BuildHistoryProjection) History() []*BuildSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]*BuildSummary, len(p.history))
	for i, h := range p.history {
		cp := *h
		result[i] = &cp
	}
	return result
}

// Build returns the summary for a specific build.
func (p *BuildHistoryProjection) Build(buildID string) (*BuildSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	summary, exists := p.builds[buildID]
	if !exists {
		return nil, false
	}
	cp := *summary
	return &cp, true
}

// LastCompleted returns the most recently completed build.
func (p *BuildHistoryProjection) LastCompleted() *BuildSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.history) == 0 {
		return nil
	}
	cp := *p.history[0]
	return &cp
}

// LastSync returns when the projection was last synchronized.
func (p *BuildHistoryProjection) LastSync() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastSync
}
