// Package decompose maps a free-form objective and an agent count onto a
// set of canonical roles, waves, and wave dependencies.
// It is a pluggable strategy, not part of the wave scheduler's core
// contract, so an alternative decomposer (e.g. LLM-backed) can replace the
// default role-table heuristic without touching internal/swarm.
package decompose

import (
	"fmt"

	"github.com/harrison/gasctl/internal/models"
)

// Plan is a pre-built (agents, waves, dependencies) triple ready to be
// written into a fresh models.WorkspaceState.
type Plan struct {
	Agents       []*models.Agent
	Waves        map[int][]string
	Dependencies map[int][]int
}

// Strategy decomposes an objective and an agent count into a Plan.
type Strategy interface {
	Decompose(objective string, agentCount int) Plan
}

// role is one canonical slot in the default heuristic's role table, keyed
// by the wave it belongs to.
type role struct {
	name string
	wave int
}

// defaultRoles is the canonical role ordering: core
// architecture first, then data/backend/auth, then UI, then integration.
var defaultRoles = []role{
	{name: "core-architect", wave: 1},
	{name: "database-engineer", wave: 2},
	{name: "backend-dev", wave: 2},
	{name: "auth-specialist", wave: 2},
	{name: "ui-developer", wave: 3},
	{name: "integration-engineer", wave: 4},
}

// RoleTable is the default heuristic: it assigns the first agentCount
// entries of defaultRoles, cycling back to the last wave's role ("
// integration-engineer") if more agents are requested than the table has
// distinct roles for.
type RoleTable struct{}

// NewRoleTable builds the default task-decomposition strategy.
func NewRoleTable() *RoleTable { return &RoleTable{} }

// Decompose implements Strategy.
func (RoleTable) Decompose(objective string, agentCount int) Plan {
	plan := Plan{
		Waves:        map[int][]string{},
		Dependencies: map[int][]int{},
	}
	if agentCount <= 0 {
		return plan
	}

	for i := 0; i < agentCount; i++ {
		r := defaultRoles[len(defaultRoles)-1]
		if i < len(defaultRoles) {
			r = defaultRoles[i]
		}
		id := fmt.Sprintf("agent-%d-%s", i+1, r.name)
		plan.Agents = append(plan.Agents, &models.Agent{
			ID:      id,
			Role:    r.name,
			Wave:    r.wave,
			Mission: objective,
		})
		plan.Waves[r.wave] = append(plan.Waves[r.wave], id)
	}

	for w := 2; w <= maxWave(plan.Waves); w++ {
		if _, ok := plan.Waves[w]; ok {
			plan.Dependencies[w] = []int{w - 1}
		}
	}

	return plan
}

func maxWave(waves map[int][]string) int {
	max := 0
	for w := range waves {
		if w > max {
			max = w
		}
	}
	return max
}
