package server_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roi-calculator/config"
	"roi-calculator/costmodel"
	"roi-calculator/models"
	"roi-calculator/server"
	"roi-calculator/session"
)

func dialLiveSession(t *testing.T, ts *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) server.LiveMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg server.LiveMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestLiveSession(t *testing.T) {
	ts := newTestServer(t, nil)
	conn := dialLiveSession(t, ts, nil)

	initial := readMessage(t, conn)
	require.Equal(t, server.MessageResults, initial.Type)
	require.NotNil(t, initial.Results)
	assert.NotEmpty(t, initial.SessionID)
	assert.Equal(t, 2200, initial.Results.TotalUnresolved)
	assert.Equal(t, 44, initial.Results.ModelA.AgentsRequired)
	assert.Equal(t, 14, initial.Results.ModelB.AgentsRequired)

	t.Run("AcceptedEdit", func(t *testing.T) {
		require.NoError(t, conn.WriteJSON(session.Edit{
			Op:    session.OpSet,
			Path:  "channel.ivr.unresolved_leads",
			Value: 0,
		}))
		msg := readMessage(t, conn)
		require.Equal(t, server.MessageResults, msg.Type)
		assert.Equal(t, initial.SessionID, msg.SessionID)
		assert.Equal(t, 1800, msg.Results.TotalUnresolved)
		assert.Equal(t, 36, msg.Results.ModelA.AgentsRequired)
		require.NotNil(t, msg.Scenario)
		assert.Equal(t, 0, msg.Scenario.Channel(models.ChannelIVR).UnresolvedLeads)
	})

	t.Run("RejectedEditKeepsState", func(t *testing.T) {
		tests := map[string]struct {
			edit session.Edit
			raw  string
			code string
		}{
			"ValueAsString":  {raw: `{"op":"set","path":"model_b.ai_resolution_rate","value":"80"}`, code: "INVALID_EDIT"},
			"NotJSON":        {raw: `set model_b.ai_resolution_rate 80`, code: "INVALID_EDIT"},
			"UnknownChannel": {edit: session.Edit{Op: session.OpSet, Path: "channel.fax.daily_leads", Value: 1}, code: "UNKNOWN_CHANNEL"},
			"UnknownField":   {edit: session.Edit{Op: session.OpSet, Path: "model_a.bonus", Value: 1}, code: "UNKNOWN_FIELD"},
			"Fractional":     {edit: session.Edit{Op: session.OpSet, Path: "model_a.days_per_month", Value: 2.5}, code: "INVALID_VALUE"},
			"UnknownPreset":  {edit: session.Edit{Op: session.OpPreset, Preset: "holiday"}, code: "UNKNOWN_PRESET"},
			"UnknownOp":      {edit: session.Edit{Op: "undo"}, code: "UNKNOWN_OP"},
		}

		for name, tt := range tests {
			t.Run(name, func(t *testing.T) {
				if tt.raw != "" {
					require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(tt.raw)))
				} else {
					require.NoError(t, conn.WriteJSON(tt.edit))
				}
				msg := readMessage(t, conn)
				assert.Equal(t, server.MessageError, msg.Type)
				assert.Equal(t, tt.code, msg.Code)
				assert.NotEmpty(t, msg.Error)
			})
		}
	})

	t.Run("NonFiniteResultKeepsSessionOpen", func(t *testing.T) {
		require.NoError(t, conn.WriteJSON(session.Edit{Op: session.OpSet, Path: "model_b.avg_ai_minutes", Value: 1e200}))
		msg := readMessage(t, conn)
		require.Equal(t, server.MessageResults, msg.Type)

		require.NoError(t, conn.WriteJSON(session.Edit{Op: session.OpSet, Path: "model_b.cost_per_ai_minute", Value: 1e200}))
		msg = readMessage(t, conn)
		assert.Equal(t, server.MessageError, msg.Type)
		assert.Equal(t, "NON_FINITE_RESULT", msg.Code)

		require.NoError(t, conn.WriteJSON(session.Edit{Op: session.OpSet, Path: "model_b.cost_per_ai_minute", Value: 2}))
		msg = readMessage(t, conn)
		require.Equal(t, server.MessageResults, msg.Type)
		assert.Equal(t, 1e200, msg.Scenario.ModelB.AvgAIMinutes)
	})

	t.Run("Reset", func(t *testing.T) {
		require.NoError(t, conn.WriteJSON(session.Edit{Op: session.OpReset}))
		msg := readMessage(t, conn)
		require.Equal(t, server.MessageResults, msg.Type)
		assert.Equal(t, 0, msg.Results.TotalUnresolved)
		assert.Equal(t, costmodel.HybridLabel, msg.Results.Comparison.Recommended)
		assert.Len(t, msg.Scenario.Channels, 3)
	})

	t.Run("PresetRestoresDefaults", func(t *testing.T) {
		require.NoError(t, conn.WriteJSON(session.Edit{Op: session.OpPreset, Preset: session.PresetDefault}))
		msg := readMessage(t, conn)
		require.Equal(t, server.MessageResults, msg.Type)
		assert.Equal(t, 2200, msg.Results.TotalUnresolved)
	})
}

func TestLiveSession_Origin(t *testing.T) {
	production := func(cfg *config.Config) {
		cfg.App.Environment = "production"
		cfg.WebSocket.AllowedOrigins = []string{"planner.example.com", "*.staffing.example.com"}
	}

	tests := map[string]struct {
		origin  string
		allowed bool
	}{
		"NoOrigin":        {origin: "", allowed: true},
		"ExactHost":       {origin: "https://planner.example.com", allowed: true},
		"WildcardSub":     {origin: "https://ops.staffing.example.com", allowed: true},
		"WildcardApex":    {origin: "https://staffing.example.com", allowed: true},
		"ForeignHost":     {origin: "https://evil.example.net", allowed: false},
		"LookalikeSuffix": {origin: "https://notstaffing.example.com", allowed: false},
	}

	ts := newTestServer(t, production)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			conn, resp, err := websocket.DefaultDialer.Dial(url, header)
			if resp != nil && resp.Body != nil {
				_, _ = io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
			}
			if tt.allowed {
				require.NoError(t, err)
				conn.Close()
				return
			}
			require.ErrorIs(t, err, websocket.ErrBadHandshake)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		})
	}
}

func TestNew_ClonesInitialScenario(t *testing.T) {
	initial := models.DefaultScenario()
	cfg := config.Default()
	cfg.RateLimit.Enabled = false
	srv := server.New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), initial)
	initial.Channels[0].UnresolvedLeads = 99999

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)

	conn := dialLiveSession(t, ts, nil)
	msg := readMessage(t, conn)
	assert.Equal(t, 2200, msg.Results.TotalUnresolved)
}
