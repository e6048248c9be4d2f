package router

// Load is the caller's expected load tier, per spec.md 3's
// ProviderContext.expected_load.
type Load string

const (
	LoadLow      Load = "low"
	LoadMedium   Load = "medium"
	LoadHigh     Load = "high"
	LoadCritical Load = "critical"
)

// Context carries the scoring inputs for a single routing decision,
// per spec.md 3's ProviderContext.
type Context struct {
	OperationType       string
	CostSensitivity     float64
	QualityRequirement  float64
	LatencySensitivity  float64
	Preferred           map[string]struct{}
	Excluded            map[string]struct{}
	ExpectedLoad        Load
}

func (c Context) isPreferred(id string) bool {
	_, ok := c.Preferred[id]
	return ok
}

func (c Context) isExcluded(id string) bool {
	_, ok := c.Excluded[id]
	return ok
}
