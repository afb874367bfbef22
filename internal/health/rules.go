package health

import "github.com/fkbarrett/urldemo/internal/metrics"

// RuleResult represents the outcome of a single rule.
type RuleResult struct {
	Triggered      bool
	Signal         string
	Recommendation string
	Severity       Status
}

// Rule evaluates a metrics snapshot.
type Rule func(snapshot map[string]int64) RuleResult

// ---------- RULES ----------

// Exhausted allocations mean the random token space could not yield a
// free token within the retry bound.
func AllocationExhaustedRule(snapshot map[string]int64) RuleResult {
	exhausted := snapshot[string(metrics.AllocExhaustedTotal)]

	if exhausted > 0 {
		return RuleResult{
			Triggered:      true,
			Signal:         "Token allocations exhausted the retry bound",
			Recommendation: "Lower default TTLs or increase token length to free up the namespace",
			Severity:       StatusCritical,
		}
	}
	return RuleResult{}
}

// Random-token collisions indicate the namespace is filling up.
func TokenCollisionRule(snapshot map[string]int64) RuleResult {
	retries := snapshot[string(metrics.AllocRetriesTotal)]

	if retries > 0 {
		return RuleResult{
			Triggered:      true,
			Signal:         "Random token collisions detected",
			Recommendation: "Review entry TTLs; the token namespace is unusually full",
			Severity:       StatusDegraded,
		}
	}
	return RuleResult{}
}

// A high miss rate suggests links are expiring sooner than users expect.
func LookupMissRule(snapshot map[string]int64) RuleResult {
	gets := snapshot[string(metrics.StoreGetsTotal)]
	misses := snapshot[string(metrics.StoreMissesTotal)]

	if gets >= 20 && misses*2 > gets {
		return RuleResult{
			Triggered:      true,
			Signal:         "More than half of recent lookups missed",
			Recommendation: "Check whether published links are expiring sooner than intended",
			Severity:       StatusDegraded,
		}
	}
	return RuleResult{}
}
