package formatter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"roi-calculator/costmodel"
	"roi-calculator/models"
)

// ReportData holds prepared results used by all formatters
type ReportData struct {
	TotalUnresolved int              `json:"total_unresolved"`
	Rows            []ComparisonRow  `json:"comparison"`
	Recommended     string           `json:"recommended"`
	HybridCheaper   bool             `json:"hybrid_cheaper"`
	MonthlySavings  float64          `json:"monthly_savings"`
	Results         models.Results   `json:"results"`
	Sections        []FormulaSection `json:"-"`
}

// ComparisonRow is one line of the side-by-side model comparison
type ComparisonRow struct {
	Metric    string  `json:"metric"`
	HumanOnly float64 `json:"human_only"`
	Hybrid    float64 `json:"hybrid"`
	Money     bool    `json:"money"`
}

// FormulaSection groups breakdown lines under a heading
type FormulaSection struct {
	Title string
	Lines []models.FormulaLine
}

var sectionTitles = []struct {
	key   string
	title string
}{
	{costmodel.SectionChannel, "Channel Demand"},
	{costmodel.SectionModelA, "Model A: Human-Only"},
	{costmodel.SectionModelB, "Model B: AI + Human"},
	{costmodel.SectionComparison, "Model Comparison"},
}

// prepareReportData extracts and organizes results for formatting
func prepareReportData(r models.Results) *ReportData {
	a, b := r.ModelA, r.ModelB
	rows := []ComparisonRow{
		{Metric: "Total Conversations", HumanOnly: float64(r.TotalUnresolved), Hybrid: float64(r.TotalUnresolved)},
		{Metric: "AI Resolved", HumanOnly: a.AIResolved, Hybrid: b.AIResolved},
		{Metric: "Human Handled", HumanOnly: a.HumanHandled, Hybrid: b.HumanHandled},
		{Metric: "Agents Required", HumanOnly: float64(a.AgentsRequired), Hybrid: float64(b.AgentsRequired)},
		{Metric: "Daily OpEx", HumanOnly: a.DailyCost, Hybrid: b.DailyCost, Money: true},
		{Metric: "Monthly OpEx", HumanOnly: a.MonthlyCost, Hybrid: b.MonthlyCost, Money: true},
	}

	bySection := make(map[string][]models.FormulaLine)
	for _, line := range r.Breakdown {
		bySection[line.Section] = append(bySection[line.Section], line)
	}
	var sections []FormulaSection
	for _, s := range sectionTitles {
		if lines := bySection[s.key]; len(lines) > 0 {
			sections = append(sections, FormulaSection{Title: s.title, Lines: lines})
		}
	}

	return &ReportData{
		TotalUnresolved: r.TotalUnresolved,
		Rows:            rows,
		Recommended:     r.Comparison.Recommended,
		HybridCheaper:   r.Comparison.HybridCheaper,
		MonthlySavings:  r.Comparison.MonthlySavings,
		Results:         r,
		Sections:        sections,
	}
}

// FormatText returns the text representation of the results.
// When breakdown is set, every formula and its substituted values are listed too.
func FormatText(r models.Results, breakdown bool) string {
	data := prepareReportData(r)
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Total unresolved leads: %s\n", costmodel.Count(float64(data.TotalUnresolved))))
	for _, ch := range r.Channels {
		sb.WriteString(fmt.Sprintf("  • %s: daily=%d, unresolved=%d, resolved=%d (%.1f%%)\n",
			ch.Name, ch.DailyLeads, ch.UnresolvedLeads, ch.ResolvedLeads, ch.ResolutionRate))
	}
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("%-20s %18s %18s\n", "", costmodel.HumanOnlyLabel, costmodel.HybridLabel))
	for _, row := range data.Rows {
		sb.WriteString(fmt.Sprintf("%-20s %18s %18s\n", row.Metric, displayValue(row.HumanOnly, row.Money),
			displayValue(row.Hybrid, row.Money)))
	}
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("Recommended: %s\n", data.Recommended))
	if data.HybridCheaper {
		sb.WriteString(fmt.Sprintf("Monthly savings realized: %s\n", costmodel.Money(data.MonthlySavings)))
	} else {
		sb.WriteString(fmt.Sprintf("Human-only advantage: %s per month\n", costmodel.Money(data.MonthlySavings)))
	}

	if breakdown {
		for _, section := range data.Sections {
			sb.WriteString(fmt.Sprintf("\n%s\n", section.Title))
			for _, line := range section.Lines {
				sb.WriteString(fmt.Sprintf("  %s = %s\n", line.Label, line.Result))
				sb.WriteString(fmt.Sprintf("    %s\n", line.Formula))
				sb.WriteString(fmt.Sprintf("    Value: %s\n", line.Calculation))
			}
		}
	}

	return sb.String()
}

// FormatJSON returns the JSON representation of the results. It fails when a
// figure is not finite, since JSON has no encoding for Inf or NaN.
func FormatJSON(r models.Results) (string, error) {
	data := prepareReportData(r)
	jsonBytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode results: %w", err)
	}
	return string(jsonBytes), nil
}

// FormatCSV returns the CSV representation of the comparison table
func FormatCSV(r models.Results) string {
	data := prepareReportData(r)
	var sb strings.Builder
	writer := csv.NewWriter(&sb)

	writer.Write([]string{"Metric", costmodel.HumanOnlyLabel, costmodel.HybridLabel})
	for _, row := range data.Rows {
		writer.Write([]string{row.Metric, csvValue(row.HumanOnly), csvValue(row.Hybrid)})
	}
	writer.Write([]string{"Recommended", data.Recommended, ""})
	writer.Write([]string{"Daily Difference", csvValue(r.Comparison.DailyDifference), ""})
	writer.Write([]string{"Monthly Difference", csvValue(r.Comparison.MonthlyDifference), ""})

	writer.Flush()
	return sb.String()
}

// displayValue rounds for display; the underlying figures stay unrounded
func displayValue(v float64, money bool) string {
	if money {
		return costmodel.Money(v)
	}
	return costmodel.Count(v)
}

// csvValue keeps two decimals so spreadsheets can re-derive totals
func csvValue(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', 2, 64)
}
