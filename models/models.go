package models

// Channel is one intake channel feeding leads into the support queue.
// UnresolvedLeads is expected to be at most DailyLeads but this is not enforced.
type Channel struct {
	ID              string `json:"id" yaml:"id"`
	Name            string `json:"name" yaml:"name"`
	DailyLeads      int    `json:"daily_leads" yaml:"daily_leads"`
	UnresolvedLeads int    `json:"unresolved_leads" yaml:"unresolved_leads"`
	Icon            string `json:"icon,omitempty" yaml:"icon,omitempty"`
}

// HumanConfig holds the human staffing parameters used by both models.
type HumanConfig struct {
	CostPerAgentMonth float64 `json:"cost_per_agent_month" yaml:"cost_per_agent_month"`
	ConvsPerAgentDay  int     `json:"convs_per_agent_day" yaml:"convs_per_agent_day"`
	DaysPerMonth      int     `json:"days_per_month" yaml:"days_per_month"`
}

// ModelBConfig extends the human parameters with the AI agent's pricing.
// AIResolutionRate is a percentage and is not clamped to 0-100.
type ModelBConfig struct {
	HumanConfig      `yaml:",inline"`
	AIResolutionRate float64 `json:"ai_resolution_rate" yaml:"ai_resolution_rate"`
	AvgAIMinutes     float64 `json:"avg_ai_minutes" yaml:"avg_ai_minutes"`
	CostPerAIMinute  float64 `json:"cost_per_ai_minute" yaml:"cost_per_ai_minute"`
}

// Scenario is a full configuration snapshot. ModelB carries its own copy of the
// human parameters; nothing is shared with ModelA.
type Scenario struct {
	Channels []Channel    `json:"channels" yaml:"channels"`
	ModelA   HumanConfig  `json:"model_a" yaml:"model_a"`
	ModelB   ModelBConfig `json:"model_b" yaml:"model_b"`
}

// ChannelSummary is the derived view of a single channel.
type ChannelSummary struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	DailyLeads      int     `json:"daily_leads"`
	UnresolvedLeads int     `json:"unresolved_leads"`
	ResolvedLeads   int     `json:"resolved_leads"`
	ResolutionRate  float64 `json:"resolution_rate"`
}

// ModelResult is the derived staffing and cost figures for one model.
// AIResolved and HumanHandled are left unrounded.
type ModelResult struct {
	Name            string  `json:"name"`
	AIResolved      float64 `json:"ai_resolved"`
	HumanHandled    float64 `json:"human_handled"`
	AgentsRequired  int     `json:"agents_required"`
	CostPerAgentDay float64 `json:"cost_per_agent_day"`
	HumanCost       float64 `json:"human_daily_cost"`
	AICost          float64 `json:"ai_daily_cost"`
	DailyCost       float64 `json:"daily_cost"`
	MonthlyCost     float64 `json:"monthly_cost"`
}

// Comparison holds the outcome of comparing the two models.
// DailyDifference is ModelA minus ModelB, so a positive value means the hybrid is cheaper.
type Comparison struct {
	DailyDifference   float64 `json:"daily_difference"`
	MonthlyDifference float64 `json:"monthly_difference"`
	MonthlySavings    float64 `json:"monthly_savings"`
	Recommended       string  `json:"recommended"`
	HybridCheaper     bool    `json:"hybrid_cheaper"`
}

// Results is everything derived from a Scenario. It is never stored; callers
// recompute it whenever the scenario changes.
type Results struct {
	TotalUnresolved int              `json:"total_unresolved"`
	Channels        []ChannelSummary `json:"channels"`
	ModelA          ModelResult      `json:"model_a"`
	ModelB          ModelResult      `json:"model_b"`
	Comparison      Comparison       `json:"comparison"`
	Breakdown       []FormulaLine    `json:"breakdown,omitempty"`
}

// FormulaLine documents how one derived figure was obtained.
type FormulaLine struct {
	Section     string `json:"section"`
	Label       string `json:"label"`
	Formula     string `json:"formula"`
	Calculation string `json:"calculation"`
	Result      string `json:"result"`
}
