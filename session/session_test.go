package session_test

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"

	customerrors "roi-calculator/errors"
	"roi-calculator/logging"
	"roi-calculator/models"
	"roi-calculator/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetField(t *testing.T) {
	tests := map[string]struct {
		path   string
		value  float64
		check  func(t *testing.T, s models.Scenario)
		expErr error
	}{
		"ChannelUnresolved": {
			path: "channel.ivr.unresolved_leads", value: 500,
			check: func(t *testing.T, s models.Scenario) { assert.Equal(t, 500, s.Channel("ivr").UnresolvedLeads) },
		},
		"ChannelDaily": {
			path: "channel.web.daily_leads", value: 0,
			check: func(t *testing.T, s models.Scenario) { assert.Equal(t, 0, s.Channel("web").DailyLeads) },
		},
		"ModelACost": {
			path: "model_a.cost_per_agent_month", value: 52000.5,
			check: func(t *testing.T, s models.Scenario) { assert.Equal(t, 52000.5, s.ModelA.CostPerAgentMonth) },
		},
		"ModelBHumanFieldIsIndependent": {
			path: "model_b.convs_per_agent_day", value: 80,
			check: func(t *testing.T, s models.Scenario) {
				assert.Equal(t, 80, s.ModelB.ConvsPerAgentDay)
				assert.Equal(t, 50, s.ModelA.ConvsPerAgentDay)
			},
		},
		"ModelBRateNotClamped": {
			path: "model_b.ai_resolution_rate", value: 140,
			check: func(t *testing.T, s models.Scenario) { assert.Equal(t, 140.0, s.ModelB.AIResolutionRate) },
		},
		"NegativeAccepted": {
			path: "model_a.days_per_month", value: -3,
			check: func(t *testing.T, s models.Scenario) { assert.Equal(t, -3, s.ModelA.DaysPerMonth) },
		},
		"Error_UnknownChannel": {
			path: "channel.email.daily_leads", value: 1, expErr: customerrors.ErrUnknownChannel,
		},
		"Error_UnknownChannelField": {
			path: "channel.ivr.icon", value: 1, expErr: customerrors.ErrUnknownField,
		},
		"Error_ModelAHasNoAIFields": {
			path: "model_a.ai_resolution_rate", value: 10, expErr: customerrors.ErrUnknownField,
		},
		"Error_UnknownRoot": {
			path: "model_c.days_per_month", value: 1, expErr: customerrors.ErrUnknownField,
		},
		"Error_FractionalCount": {
			path: "model_b.days_per_month", value: 21.5, expErr: customerrors.ErrInvalidValue,
		},
		"CountAtUpperBound": {
			path: "channel.ivr.daily_leads", value: models.MaxCount,
			check: func(t *testing.T, s models.Scenario) { assert.Equal(t, models.MaxCount, s.Channel("ivr").DailyLeads) },
		},
		"Error_CountAboveRange": {
			path: "channel.ivr.daily_leads", value: 1e30, expErr: customerrors.ErrInvalidValue,
		},
		"Error_CountBelowRange": {
			path: "model_a.convs_per_agent_day", value: -1e19, expErr: customerrors.ErrInvalidValue,
		},
		"Error_NaN": {
			path: "model_b.avg_ai_minutes", value: math.NaN(), expErr: customerrors.ErrInvalidValue,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			s := models.DefaultScenario()
			err := session.SetField(&s, tt.path, tt.value)

			if tt.expErr != nil {
				assert.ErrorIs(t, err, tt.expErr)
				var editErr *customerrors.EditError
				require.ErrorAs(t, err, &editErr)
				assert.Equal(t, tt.path, editErr.Path)
				return
			}
			require.NoError(t, err)
			tt.check(t, s)
		})
	}
}

func TestParseAssignment(t *testing.T) {
	path, v, err := session.ParseAssignment("model_b.ai_resolution_rate = 82.5")
	require.NoError(t, err)
	assert.Equal(t, "model_b.ai_resolution_rate", path)
	assert.Equal(t, 82.5, v)

	_, _, err = session.ParseAssignment("model_b.ai_resolution_rate")
	assert.ErrorIs(t, err, customerrors.ErrInvalidValue)

	_, _, err = session.ParseAssignment("model_b.ai_resolution_rate=high")
	assert.ErrorIs(t, err, customerrors.ErrInvalidValue)
}

func TestPreset(t *testing.T) {
	s, err := session.Preset(session.PresetZero)
	require.NoError(t, err)
	assert.Equal(t, models.ZeroScenario(), s)

	_, err = session.Preset("weekend")
	assert.ErrorIs(t, err, customerrors.ErrUnknownPreset)
}

func TestSession_ApplyRecomputes(t *testing.T) {
	ctx := context.Background()
	sess := session.New(models.DefaultScenario(), nil)
	require.NotEmpty(t, sess.ID)

	r, err := sess.Apply(ctx, session.Edit{Op: session.OpSet, Path: "channel.ivr.unresolved_leads", Value: 450})
	require.NoError(t, err)
	assert.Equal(t, 2250, r.TotalUnresolved)
	assert.Equal(t, 45, r.ModelA.AgentsRequired)

	r, err = sess.Apply(ctx, session.Edit{Op: session.OpSet, Path: "model_b.ai_resolution_rate", Value: 100})
	require.NoError(t, err)
	assert.Equal(t, 0, r.ModelB.AgentsRequired)
	assert.Zero(t, r.ModelB.HumanCost)
}

func TestSession_RejectedEditKeepsScenario(t *testing.T) {
	sess := session.New(models.DefaultScenario(), nil)
	before := sess.Scenario()

	_, err := sess.Apply(context.Background(), session.Edit{Op: session.OpSet, Path: "channel.fax.daily_leads", Value: 3})
	assert.ErrorIs(t, err, customerrors.ErrUnknownChannel)

	_, err = sess.Apply(context.Background(), session.Edit{Op: "delete"})
	assert.ErrorIs(t, err, customerrors.ErrUnknownOp)

	assert.Equal(t, before, sess.Scenario())
}

func TestSession_ResetAndPreset(t *testing.T) {
	ctx := context.Background()
	sess := session.New(models.DefaultScenario(), nil)

	r, err := sess.Apply(ctx, session.Edit{Op: session.OpReset})
	require.NoError(t, err)
	assert.Zero(t, r.TotalUnresolved)
	assert.Zero(t, r.ModelA.DailyCost)
	assert.Zero(t, r.ModelB.DailyCost)
	assert.Equal(t, models.ZeroScenario(), sess.Scenario())

	r, err = sess.Apply(ctx, session.Edit{Op: session.OpPreset, Preset: session.PresetDefault})
	require.NoError(t, err)
	assert.Equal(t, 2200, r.TotalUnresolved)
}

func TestSession_DoesNotAliasInitialScenario(t *testing.T) {
	initial := models.DefaultScenario()
	sess := session.New(initial, nil)

	_, err := sess.Apply(context.Background(), session.Edit{Op: session.OpReset})
	require.NoError(t, err)

	assert.Equal(t, 400, initial.Channels[0].UnresolvedLeads)
}

func TestSession_LogsSessionIDOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(logging.Config{Level: "debug", Format: "json", Output: &buf})
	sess := session.New(models.DefaultScenario(), logger)
	ctx := logging.WithSessionID(context.Background(), sess.ID)

	_, err := sess.Apply(ctx, session.Edit{Op: session.OpSet, Path: "channel.fax.daily_leads", Value: 1})
	require.Error(t, err)
	_, err = sess.Apply(ctx, session.Edit{Op: session.OpReset})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Equal(t, 1, strings.Count(line, `"session_id"`), line)
		assert.Contains(t, line, sess.ID)
	}
}
