package costmodel

import (
	"fmt"
	"math"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"roi-calculator/models"
)

// CurrencySymbol prefixes every money figure in the breakdown.
var CurrencySymbol = "₹"

// Breakdown sections.
const (
	SectionChannel    = "channel"
	SectionModelA     = "model_a"
	SectionModelB     = "model_b"
	SectionComparison = "comparison"
)

var printer = message.NewPrinter(language.English)

// Breakdown lists every derived figure with its formula and the values that were
// substituted into it. Figures are rounded here for display only.
func Breakdown(s models.Scenario, r models.Results) []models.FormulaLine {
	lines := make([]models.FormulaLine, 0, 2*len(s.Channels)+8)

	for _, ch := range r.Channels {
		lines = append(lines,
			models.FormulaLine{
				Section:     SectionChannel,
				Label:       ch.Name + " Resolved Leads",
				Formula:     "Resolved Leads = Daily − Unresolved",
				Calculation: fmt.Sprintf("%d - %d", ch.DailyLeads, ch.UnresolvedLeads),
				Result:      Count(float64(ch.ResolvedLeads)),
			},
			models.FormulaLine{
				Section:     SectionChannel,
				Label:       ch.Name + " Resolution Rate",
				Formula:     "Resolution Rate = (Resolved ÷ Daily) × 100",
				Calculation: fmt.Sprintf("(%d / %d) * 100", ch.ResolvedLeads, ch.DailyLeads),
				Result:      fmt.Sprintf("%.1f%%", ch.ResolutionRate),
			},
		)
	}

	a, b := r.ModelA, r.ModelB
	lines = append(lines,
		models.FormulaLine{
			Section:     SectionModelA,
			Label:       "Agents Required",
			Formula:     "Ceiling(Total Leads ÷ Convs/Agent/Day)",
			Calculation: fmt.Sprintf("Ceiling(%d ÷ %d)", r.TotalUnresolved, s.ModelA.ConvsPerAgentDay),
			Result:      strconv.Itoa(a.AgentsRequired),
		},
		models.FormulaLine{
			Section: SectionModelA,
			Label:   "Daily Cost",
			Formula: "Agents Req × (Monthly Salary ÷ Operating Days)",
			Calculation: fmt.Sprintf("%d × (%s%s ÷ %d)", a.AgentsRequired,
				CurrencySymbol, num(s.ModelA.CostPerAgentMonth), s.ModelA.DaysPerMonth),
			Result: Money(a.DailyCost),
		},
		models.FormulaLine{
			Section:     SectionModelB,
			Label:       "AI Resolved Leads",
			Formula:     "Total Leads × AI Rate %",
			Calculation: fmt.Sprintf("%d × %s%%", r.TotalUnresolved, num(s.ModelB.AIResolutionRate)),
			Result:      Count(b.AIResolved),
		},
		models.FormulaLine{
			Section:     SectionModelB,
			Label:       "Agents Required",
			Formula:     "Ceiling((Total - AI Resolved) ÷ Capacity)",
			Calculation: fmt.Sprintf("Ceiling(%.0f ÷ %d)", math.Round(b.HumanHandled), s.ModelB.ConvsPerAgentDay),
			Result:      strconv.Itoa(b.AgentsRequired),
		},
		models.FormulaLine{
			Section: SectionModelB,
			Label:   "Daily AI Cost",
			Formula: "AI Leads × Min/Conv × Cost/Min",
			Calculation: fmt.Sprintf("%.0f × %s × %s%s", math.Round(b.AIResolved),
				num(s.ModelB.AvgAIMinutes), CurrencySymbol, num(s.ModelB.CostPerAIMinute)),
			Result: Money(b.AICost),
		},
		models.FormulaLine{
			Section: SectionModelB,
			Label:   "Daily Human Cost",
			Formula: "Agents Req × (Salary ÷ Days)",
			Calculation: fmt.Sprintf("%d × (%s%s ÷ %d)", b.AgentsRequired,
				CurrencySymbol, num(s.ModelB.CostPerAgentMonth), s.ModelB.DaysPerMonth),
			Result: Money(b.HumanCost),
		},
		models.FormulaLine{
			Section: SectionModelB,
			Label:   "Total Hybrid Daily Cost",
			Formula: "AI Cost + Human Cost",
			Calculation: fmt.Sprintf("%s%.0f + %s%.0f", CurrencySymbol, math.Round(b.AICost),
				CurrencySymbol, math.Round(b.HumanCost)),
			Result: Money(b.DailyCost),
		},
		models.FormulaLine{
			Section: SectionComparison,
			Label:   "Monthly Difference",
			Formula: fmt.Sprintf("Diff = |Model A - Model B| × %d", MonthlyRollupDays),
			Calculation: fmt.Sprintf("|%s - %s| × %d", Money(a.DailyCost), Money(b.DailyCost),
				MonthlyRollupDays),
			Result: Money(r.Comparison.MonthlySavings),
		},
	)
	return lines
}

// Count rounds v and groups thousands, e.g. 1540.4 -> "1,540".
func Count(v float64) string {
	return printer.Sprintf("%d", int64(math.Round(v)))
}

// Money renders a rounded currency amount, e.g. 90000 -> "₹90,000".
func Money(v float64) string {
	return CurrencySymbol + Count(v)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
