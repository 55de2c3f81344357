package parser

import (
	"fmt"
	"io"
	"math"
	"time"

	"gopkg.in/yaml.v3"

	"roi-calculator/errors"
	"roi-calculator/metrics"
	"roi-calculator/models"
)

// ParseScenario decodes a YAML scenario on top of models.DefaultScenario, so a
// file only needs the sections it wants to change. A channels list replaces the
// default channel set entirely. An empty document yields the default scenario.
func ParseScenario(r io.Reader) (models.Scenario, error) {
	return ParseScenarioOnto(r, models.DefaultScenario())
}

// ParseScenarioOnto is ParseScenario with an explicit base, e.g. the zero preset.
func ParseScenarioOnto(r io.Reader, base models.Scenario) (models.Scenario, error) {
	start := time.Now()
	defer func() { metrics.ParserDurationSeconds.Observe(time.Since(start).Seconds()) }()

	scenario := base.Clone()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&scenario); err != nil && err != io.EOF {
		metrics.ParserErrorsTotal.WithLabelValues(errorType(errors.ErrInvalidScenario)).Inc()
		return models.Scenario{}, fmt.Errorf("%w: %v", errors.ErrInvalidScenario, err)
	}

	seen := make(map[string]bool, len(scenario.Channels))
	for i, ch := range scenario.Channels {
		if ch.ID == "" {
			metrics.ParserErrorsTotal.WithLabelValues(errorType(errors.ErrEmptyID)).Inc()
			return models.Scenario{}, fmt.Errorf("%w: channel %d: %w", errors.ErrInvalidScenario, i, errors.ErrEmptyID)
		}
		if seen[ch.ID] {
			metrics.ParserErrorsTotal.WithLabelValues(errorType(errors.ErrDuplicateChannel)).Inc()
			return models.Scenario{}, fmt.Errorf("%w: %w: %s", errors.ErrInvalidScenario, errors.ErrDuplicateChannel, ch.ID)
		}
		seen[ch.ID] = true
		if ch.Name == "" {
			scenario.Channels[i].Name = ch.ID
		}
		if err := checkCount(ch.DailyLeads, ch.UnresolvedLeads); err != nil {
			metrics.ParserErrorsTotal.WithLabelValues(errorType(err)).Inc()
			return models.Scenario{}, fmt.Errorf("%w: channel %s: %w", errors.ErrInvalidScenario, ch.ID, err)
		}
		metrics.ParserRecordsTotal.Inc()
	}

	if err := checkModels(scenario); err != nil {
		metrics.ParserErrorsTotal.WithLabelValues(errorType(err)).Inc()
		return models.Scenario{}, fmt.Errorf("%w: %w", errors.ErrInvalidScenario, err)
	}

	return scenario, nil
}

// checkModels rejects the YAML spellings .inf and .nan, and counts too large
// for the cost model. Finite values are otherwise taken as given.
func checkModels(s models.Scenario) error {
	floats := []struct {
		name  string
		value float64
	}{
		{"model_a.cost_per_agent_month", s.ModelA.CostPerAgentMonth},
		{"model_b.cost_per_agent_month", s.ModelB.CostPerAgentMonth},
		{"model_b.ai_resolution_rate", s.ModelB.AIResolutionRate},
		{"model_b.avg_ai_minutes", s.ModelB.AvgAIMinutes},
		{"model_b.cost_per_ai_minute", s.ModelB.CostPerAIMinute},
	}
	for _, f := range floats {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%w: %s = %v", errors.ErrInvalidValue, f.name, f.value)
		}
	}
	return checkCount(s.ModelA.ConvsPerAgentDay, s.ModelA.DaysPerMonth, s.ModelB.ConvsPerAgentDay, s.ModelB.DaysPerMonth)
}

func checkCount(values ...int) error {
	for _, v := range values {
		if v > models.MaxCount || v < models.MinCount {
			return fmt.Errorf("%w: %d is outside [%d, %d]", errors.ErrInvalidValue, v, models.MinCount, models.MaxCount)
		}
	}
	return nil
}

// WriteScenario encodes a scenario as YAML, the inverse of ParseScenario.
func WriteScenario(w io.Writer, s models.Scenario) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode scenario: %w", err)
	}
	return enc.Close()
}
