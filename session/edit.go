package session

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"roi-calculator/errors"
	"roi-calculator/models"
)

// Edit operations.
const (
	OpSet    = "set"
	OpReset  = "reset"
	OpPreset = "preset"
)

// Preset names.
const (
	PresetDefault = "default"
	PresetZero    = "zero"
)

// Edit is one configuration change. Path addresses a numeric field:
//
//	channel.<id>.daily_leads | channel.<id>.unresolved_leads
//	model_a.<field>          | model_b.<field>
type Edit struct {
	Op     string  `json:"op"`
	Path   string  `json:"path,omitempty"`
	Value  float64 `json:"value,omitempty"`
	Preset string  `json:"preset,omitempty"`
}

// Preset returns a fresh copy of the named preset scenario.
func Preset(name string) (models.Scenario, error) {
	switch name {
	case PresetDefault, "":
		return models.DefaultScenario(), nil
	case PresetZero:
		return models.ZeroScenario(), nil
	default:
		return models.Scenario{}, fmt.Errorf("%w: %s", errors.ErrUnknownPreset, name)
	}
}

// ParseAssignment splits a "path=value" pair as given on the command line.
func ParseAssignment(s string) (string, float64, error) {
	path, raw, ok := strings.Cut(s, "=")
	if !ok {
		return "", 0, &errors.EditError{Path: s, Err: fmt.Errorf("%w: expected path=value", errors.ErrInvalidValue)}
	}
	path = strings.TrimSpace(path)
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return "", 0, &errors.EditError{Path: path, Err: fmt.Errorf("%w: %v", errors.ErrInvalidValue, err)}
	}
	return path, v, nil
}

// SetField writes value into the field addressed by path. Values are not range
// checked; only non-finite numbers and fractional counts are rejected.
func SetField(s *models.Scenario, path string, value float64) error {
	if err := setField(s, path, value); err != nil {
		return &errors.EditError{Path: path, Err: err}
	}
	return nil
}

func setField(s *models.Scenario, path string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%w: %v", errors.ErrInvalidValue, value)
	}

	parts := strings.Split(path, ".")
	switch {
	case len(parts) == 3 && parts[0] == "channel":
		ch := s.Channel(parts[1])
		if ch == nil {
			return fmt.Errorf("%w: %s", errors.ErrUnknownChannel, parts[1])
		}
		return setChannelField(ch, parts[2], value)
	case len(parts) == 2 && parts[0] == "model_a":
		return setHumanField(&s.ModelA, parts[1], value)
	case len(parts) == 2 && parts[0] == "model_b":
		return setModelBField(&s.ModelB, parts[1], value)
	default:
		return fmt.Errorf("%w: %s", errors.ErrUnknownField, path)
	}
}

func setChannelField(ch *models.Channel, field string, value float64) error {
	switch field {
	case "daily_leads":
		n, err := count(value)
		if err != nil {
			return err
		}
		ch.DailyLeads = n
	case "unresolved_leads":
		n, err := count(value)
		if err != nil {
			return err
		}
		ch.UnresolvedLeads = n
	default:
		return fmt.Errorf("%w: %s", errors.ErrUnknownField, field)
	}
	return nil
}

func setHumanField(cfg *models.HumanConfig, field string, value float64) error {
	switch field {
	case "cost_per_agent_month":
		cfg.CostPerAgentMonth = value
	case "convs_per_agent_day":
		n, err := count(value)
		if err != nil {
			return err
		}
		cfg.ConvsPerAgentDay = n
	case "days_per_month":
		n, err := count(value)
		if err != nil {
			return err
		}
		cfg.DaysPerMonth = n
	default:
		return fmt.Errorf("%w: %s", errors.ErrUnknownField, field)
	}
	return nil
}

func setModelBField(cfg *models.ModelBConfig, field string, value float64) error {
	switch field {
	case "ai_resolution_rate":
		cfg.AIResolutionRate = value
	case "avg_ai_minutes":
		cfg.AvgAIMinutes = value
	case "cost_per_ai_minute":
		cfg.CostPerAIMinute = value
	default:
		return setHumanField(&cfg.HumanConfig, field, value)
	}
	return nil
}

func count(value float64) (int, error) {
	if value != math.Trunc(value) {
		return 0, fmt.Errorf("%w: %v is not a whole number", errors.ErrInvalidValue, value)
	}
	if value > models.MaxCount || value < models.MinCount {
		return 0, fmt.Errorf("%w: %v is outside [%d, %d]", errors.ErrInvalidValue, value, models.MinCount, models.MaxCount)
	}
	return int(value), nil
}
