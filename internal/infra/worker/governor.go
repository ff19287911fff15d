package worker

import (
	"sync"

	"card-index-pipeline/internal/domain/model"
	"card-index-pipeline/internal/infra/metrics"
)

// Governor is the admission-control component bounding concurrently in-flight
// jobs by cost units rather than raw job count. Lightweight jobs cost one
// unit; jobs that hold the shared browser and a transcription pass cost more,
// throttling them harder. Admission is best-effort backpressure: the loop
// checks capacity before dequeuing, and a job once admitted is never
// preempted.
type Governor struct {
	mu        sync.Mutex
	active    int
	limit     int
	heavyCost int
}

func NewGovernor(limit, heavyCost int) *Governor {
	if limit <= 0 {
		limit = 10
	}
	if heavyCost <= 0 {
		heavyCost = 10
	}
	return &Governor{limit: limit, heavyCost: heavyCost}
}

// CostFor returns the admission cost of one job of the given type.
func (g *Governor) CostFor(t model.CardType) int {
	switch t {
	case model.CardTypeYouTube, model.CardTypeAudio:
		return g.heavyCost
	default:
		return 1
	}
}

// HasCapacity reports whether the loop may dequeue another record.
func (g *Governor) HasCapacity() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active < g.limit
}

// Admit charges the job's cost. Cost accounting is symmetric with Release.
func (g *Governor) Admit(cost int) {
	g.mu.Lock()
	g.active += cost
	metrics.SetGovernorActiveUnits(g.active)
	g.mu.Unlock()
}

// Release refunds the same cost charged at admission. Must run exactly once
// per admitted job, on every path.
func (g *Governor) Release(cost int) {
	g.mu.Lock()
	g.active -= cost
	if g.active < 0 {
		g.active = 0
	}
	metrics.SetGovernorActiveUnits(g.active)
	g.mu.Unlock()
}

// ActiveUnits returns the currently charged units.
func (g *Governor) ActiveUnits() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}
