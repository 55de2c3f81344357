// Package costmodel derives staffing headcount and operating cost for the
// human-only and AI + human hybrid support models.
//
// Every function here is pure. Zero capacity and zero operating days are floored
// to 1 rather than reported, so a zero-capacity configuration yields one
// conversation per agent per day instead of an error.
package costmodel

import (
	"fmt"
	"math"

	"roi-calculator/errors"
	"roi-calculator/models"
)

// MonthlyRollupDays is the fixed multiplier used for monthly figures. It is
// independent of each model's DaysPerMonth, which only feeds the daily cost.
const MonthlyRollupDays = 30

// Model labels as shown to planners.
const (
	HumanOnlyLabel = "Human-Only"
	HybridLabel    = "AI + Human Hybrid"
)

// TotalUnresolved sums the unresolved leads of every channel.
func TotalUnresolved(channels []models.Channel) int {
	total := 0
	for _, ch := range channels {
		total += ch.UnresolvedLeads
	}
	return total
}

// RequiredAgents returns ceil(workload / capacity) with capacity floored to 1.
// The result is clamped to [0, math.MaxInt]; NaN workload yields 0.
func RequiredAgents(workload float64, convsPerAgentDay int) int {
	agents := math.Ceil(workload / float64(atLeastOne(convsPerAgentDay)))
	switch {
	case math.IsNaN(agents) || agents <= 0:
		return 0
	case agents >= maxIntFloat:
		return math.MaxInt
	}
	return int(agents)
}

// maxIntFloat is the smallest float64 above math.MaxInt.
const maxIntFloat = float64(math.MaxInt)

// CostPerAgentDay spreads the monthly agent cost over the operating days,
// with days floored to 1.
func CostPerAgentDay(cfg models.HumanConfig) float64 {
	return cfg.CostPerAgentMonth / float64(atLeastOne(cfg.DaysPerMonth))
}

// ComputeHumanOnly derives Model A: every unresolved lead goes to a human agent.
func ComputeHumanOnly(totalDemand int, cfg models.HumanConfig) models.ModelResult {
	agents := RequiredAgents(float64(totalDemand), cfg.ConvsPerAgentDay)
	perDay := CostPerAgentDay(cfg)
	daily := float64(agents) * perDay

	return models.ModelResult{
		Name:            HumanOnlyLabel,
		HumanHandled:    float64(totalDemand),
		AgentsRequired:  agents,
		CostPerAgentDay: perDay,
		HumanCost:       daily,
		DailyCost:       daily,
		MonthlyCost:     daily * MonthlyRollupDays,
	}
}

// ComputeHybrid derives Model B. The AI share is not rounded and the rate is not
// clamped, so rates above 100 produce a negative human residual (and zero agents).
func ComputeHybrid(totalDemand int, cfg models.ModelBConfig) models.ModelResult {
	demand := float64(totalDemand)
	aiResolved := demand * cfg.AIResolutionRate / 100
	humanHandled := demand - aiResolved

	agents := RequiredAgents(humanHandled, cfg.ConvsPerAgentDay)
	perDay := CostPerAgentDay(cfg.HumanConfig)
	humanCost := float64(agents) * perDay
	aiCost := aiResolved * cfg.AvgAIMinutes * cfg.CostPerAIMinute
	daily := humanCost + aiCost

	return models.ModelResult{
		Name:            HybridLabel,
		AIResolved:      aiResolved,
		HumanHandled:    humanHandled,
		AgentsRequired:  agents,
		CostPerAgentDay: perDay,
		HumanCost:       humanCost,
		AICost:          aiCost,
		DailyCost:       daily,
		MonthlyCost:     daily * MonthlyRollupDays,
	}
}

// Compare recommends the human-only model only when it is strictly cheaper;
// ties go to the hybrid.
func Compare(a, b models.ModelResult) models.Comparison {
	diff := a.DailyCost - b.DailyCost
	recommended := HybridLabel
	if a.DailyCost < b.DailyCost {
		recommended = HumanOnlyLabel
	}
	return models.Comparison{
		DailyDifference:   diff,
		MonthlyDifference: diff * MonthlyRollupDays,
		MonthlySavings:    math.Abs(diff) * MonthlyRollupDays,
		Recommended:       recommended,
		HybridCheaper:     diff > 0,
	}
}

// SummarizeChannel derives resolved leads and the resolution rate for one channel.
// The rate is 0 when the channel has no daily leads.
func SummarizeChannel(ch models.Channel) models.ChannelSummary {
	resolved := ch.DailyLeads - ch.UnresolvedLeads
	rate := 0.0
	if ch.DailyLeads > 0 {
		rate = float64(resolved) / float64(ch.DailyLeads) * 100
	}
	return models.ChannelSummary{
		ID:              ch.ID,
		Name:            ch.Name,
		DailyLeads:      ch.DailyLeads,
		UnresolvedLeads: ch.UnresolvedLeads,
		ResolvedLeads:   resolved,
		ResolutionRate:  rate,
	}
}

// Compute runs the whole pipeline over a scenario snapshot. It does not modify s.
func Compute(s models.Scenario) models.Results {
	total := TotalUnresolved(s.Channels)

	summaries := make([]models.ChannelSummary, 0, len(s.Channels))
	for _, ch := range s.Channels {
		summaries = append(summaries, SummarizeChannel(ch))
	}

	a := ComputeHumanOnly(total, s.ModelA)
	b := ComputeHybrid(total, s.ModelB)

	results := models.Results{
		TotalUnresolved: total,
		Channels:        summaries,
		ModelA:          a,
		ModelB:          b,
		Comparison:      Compare(a, b),
	}
	results.Breakdown = Breakdown(s, results)
	return results
}

// CheckFinite reports ErrNonFiniteResult when any derived figure overflowed
// to infinity or became NaN. Inputs are not range checked, so very large
// prices or volumes can get there.
func CheckFinite(r models.Results) error {
	figures := []struct {
		name  string
		value float64
	}{
		{"model_a.human_handled", r.ModelA.HumanHandled},
		{"model_a.cost_per_agent_day", r.ModelA.CostPerAgentDay},
		{"model_a.daily_cost", r.ModelA.DailyCost},
		{"model_a.monthly_cost", r.ModelA.MonthlyCost},
		{"model_b.ai_resolved", r.ModelB.AIResolved},
		{"model_b.human_handled", r.ModelB.HumanHandled},
		{"model_b.cost_per_agent_day", r.ModelB.CostPerAgentDay},
		{"model_b.human_daily_cost", r.ModelB.HumanCost},
		{"model_b.ai_daily_cost", r.ModelB.AICost},
		{"model_b.daily_cost", r.ModelB.DailyCost},
		{"model_b.monthly_cost", r.ModelB.MonthlyCost},
		{"comparison.daily_difference", r.Comparison.DailyDifference},
		{"comparison.monthly_difference", r.Comparison.MonthlyDifference},
		{"comparison.monthly_savings", r.Comparison.MonthlySavings},
	}
	for _, f := range figures {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%w: %s = %v", errors.ErrNonFiniteResult, f.name, f.value)
		}
	}
	return nil
}

func atLeastOne(v int) int {
	if v < 1 {
		return 1
	}
	return v
}
