// Package session owns one editable scenario and recomputes the full results
// after every accepted edit. A Session is not safe for concurrent use; each
// live connection gets its own.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"roi-calculator/costmodel"
	"roi-calculator/errors"
	"roi-calculator/metrics"
	"roi-calculator/models"
)

// Session is a single planner's working scenario.
type Session struct {
	ID       string
	scenario models.Scenario
	logger   *slog.Logger
}

// New starts a session from a copy of initial. Log records carry the session
// ID when the caller's context does (see logging.WithSessionID).
func New(initial models.Scenario, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		ID:       uuid.NewString(),
		scenario: initial.Clone(),
		logger:   logger,
	}
}

// Scenario returns a copy of the current configuration.
func (s *Session) Scenario() models.Scenario {
	return s.scenario.Clone()
}

// Results recomputes everything from the current configuration.
func (s *Session) Results() models.Results {
	start := time.Now()
	r := costmodel.Compute(s.scenario)
	metrics.ComputeDurationSeconds.Observe(time.Since(start).Seconds())
	metrics.ObserveResults("session", r)
	return r
}

// Apply performs one edit and returns the recomputed results. A rejected edit
// leaves the scenario unchanged.
func (s *Session) Apply(ctx context.Context, e Edit) (models.Results, error) {
	if err := s.apply(e); err != nil {
		metrics.SessionEditsTotal.WithLabelValues(opLabel(e.Op), "rejected").Inc()
		s.logger.WarnContext(ctx, "edit rejected", "op", e.Op, "path", e.Path, "error", err)
		return models.Results{}, err
	}
	metrics.SessionEditsTotal.WithLabelValues(opLabel(e.Op), "applied").Inc()

	r := s.Results()
	s.logger.DebugContext(ctx, "edit applied",
		"op", e.Op,
		"path", e.Path,
		"total_unresolved", r.TotalUnresolved,
		"recommended", r.Comparison.Recommended,
	)
	return r, nil
}

func (s *Session) apply(e Edit) error {
	switch e.Op {
	case OpSet:
		next := s.scenario.Clone()
		if err := SetField(&next, e.Path, e.Value); err != nil {
			return err
		}
		s.scenario = next
	case OpReset:
		s.scenario.Reset()
	case OpPreset:
		p, err := Preset(e.Preset)
		if err != nil {
			return err
		}
		s.scenario = p
	default:
		return fmt.Errorf("%w: %q", errors.ErrUnknownOp, e.Op)
	}
	return nil
}

func opLabel(op string) string {
	switch op {
	case OpSet, OpReset, OpPreset:
		return op
	default:
		return "unknown"
	}
}
