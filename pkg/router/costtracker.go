package router

import "sync"

// CostTracker records per-call cost observations and derives a
// 0..1 cost-efficiency score, overriding Tables' static
// cost-efficiency entries once real data is available.
//
// Grounded in pkg/embedding/router.go's CostOptimizer, trimmed to the
// single derived signal the scoring formula needs.
type CostTracker struct {
	mu    sync.RWMutex
	costs map[string]float64 // running average cost per id
}

// NewCostTracker creates an empty CostTracker.
func NewCostTracker() *CostTracker {
	return &CostTracker{costs: make(map[string]float64)}
}

// RecordCost folds a new cost observation into id's running average.
func (c *CostTracker) RecordCost(id string, cost float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.costs[id]; ok {
		c.costs[id] = (existing + cost) / 2
	} else {
		c.costs[id] = cost
	}
}

// EfficiencyOf returns id's observed cost efficiency (lower cost ->
// higher score, via 1/(1+cost)) and whether any observation exists.
func (c *CostTracker) EfficiencyOf(id string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cost, ok := c.costs[id]
	if !ok {
		return 0, false
	}
	return 1 / (1 + cost), true
}
