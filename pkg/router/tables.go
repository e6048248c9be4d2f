package router

import "strings"

// Tables holds the per-id sub-score lookups the contextual strategy
// scores candidates against. Substring-keyed, per spec.md 4.4: "ollama
// is low-latency/high-load; anthropic is highest-quality".
//
// Grounded in pkg/embedding/router.go's DefaultRouterConfig named-table
// idiom, generalized from the teacher's task-type-bound config structs
// to the spec's dimensionless per-id tables.
type Tables struct {
	// Quality maps an id substring to a quality score in [0,1].
	Quality map[string]float64
	// Latency maps an id substring to a latency score in [0,1] (higher
	// is faster/better).
	Latency map[string]float64
	// Load maps an id substring to a load-tolerance score in [0,1]
	// (higher tolerates more load).
	Load map[string]float64
	// CostEfficiency maps an id substring to a cost-efficiency score in
	// [0,1] (higher is cheaper).
	CostEfficiency map[string]float64
}

// DefaultTables ships the built-in substring tables named in spec.md
// 4.4 (§9 Open Question: pluggable tables, default set provided here).
func DefaultTables() Tables {
	return Tables{
		Quality: map[string]float64{
			"anthropic": 0.95,
			"openai":    0.85,
			"gemini":    0.80,
			"ollama":    0.60,
		},
		Latency: map[string]float64{
			"ollama":    0.95,
			"openai":    0.70,
			"gemini":    0.65,
			"anthropic": 0.60,
		},
		Load: map[string]float64{
			"ollama":    0.90,
			"openai":    0.60,
			"gemini":    0.60,
			"anthropic": 0.55,
		},
		CostEfficiency: map[string]float64{
			"ollama":    1.0,
			"gemini":    0.75,
			"openai":    0.55,
			"anthropic": 0.45,
		},
	}
}

func lookup(table map[string]float64, id string, fallback float64) float64 {
	lower := strings.ToLower(id)
	for key, score := range table {
		if strings.Contains(lower, key) {
			return score
		}
	}
	return fallback
}

func (t Tables) qualityScore(id string) float64        { return lookup(t.Quality, id, 0.5) }
func (t Tables) latencyScore(id string) float64        { return lookup(t.Latency, id, 0.5) }
func (t Tables) loadScore(id string, _ Load) float64   { return lookup(t.Load, id, 0.5) }
func (t Tables) costEfficiency(id string) float64      { return lookup(t.CostEfficiency, id, 0.5) }
