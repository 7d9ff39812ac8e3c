package engine

import (
	"storenet/internal/domain"
	"storenet/internal/validator"
)

// Options tune a pipeline run
type Options struct {
	MaxPowerPasses int
}

// Result is the read model produced by one pipeline run
type Result struct {
	Power    PowerResult      `json:"power"`
	Findings []domain.Finding `json:"findings"`
}

// Run executes power, link, connection and validation stages in order. The
// topology is updated in place; running twice on an unchanged topology
// yields the same state.
func Run(t *domain.Topology, opts Options) Result {
	power := PropagatePower(t, opts.MaxPowerPasses)
	PropagateLinks(t)
	ResolveConnections(t)
	return Result{
		Power:    power,
		Findings: validator.Validate(t),
	}
}
