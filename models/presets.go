package models

import "math"

// Bounds for whole-number inputs. Leads, conversations per agent and working
// days must fit in 32 bits so that summing channels cannot overflow int.
const (
	MaxCount = math.MaxInt32
	MinCount = math.MinInt32
)

// Channel identifiers of the stock configuration.
const (
	ChannelIVR      = "ivr"
	ChannelWhatsApp = "whatsapp"
	ChannelWeb      = "web"
)

// DefaultChannels returns the three stock intake channels with sample volumes.
func DefaultChannels() []Channel {
	return []Channel{
		{ID: ChannelIVR, Name: "IVR", DailyLeads: 1000, UnresolvedLeads: 400, Icon: "phone"},
		{ID: ChannelWhatsApp, Name: "WhatsApp", DailyLeads: 2500, UnresolvedLeads: 1200, Icon: "whatsapp"},
		{ID: ChannelWeb, Name: "Website Chat", DailyLeads: 1500, UnresolvedLeads: 600, Icon: "globe"},
	}
}

// DefaultHumanConfig returns the stock human staffing parameters.
func DefaultHumanConfig() HumanConfig {
	return HumanConfig{
		CostPerAgentMonth: 45000,
		ConvsPerAgentDay:  50,
		DaysPerMonth:      22,
	}
}

// DefaultModelBConfig returns the stock hybrid parameters, starting from its own
// copy of the default human parameters.
func DefaultModelBConfig() ModelBConfig {
	return ModelBConfig{
		HumanConfig:      DefaultHumanConfig(),
		AIResolutionRate: 70,
		AvgAIMinutes:     2,
		CostPerAIMinute:  2,
	}
}

// DefaultScenario is the configuration the tool starts with.
func DefaultScenario() Scenario {
	return Scenario{
		Channels: DefaultChannels(),
		ModelA:   DefaultHumanConfig(),
		ModelB:   DefaultModelBConfig(),
	}
}

// ZeroScenario keeps the stock channel set with every numeric field zeroed.
func ZeroScenario() Scenario {
	s := DefaultScenario()
	s.Reset()
	return s
}

// Reset zeroes every numeric field in place. Channel identity, name and icon are kept.
func (s *Scenario) Reset() {
	for i := range s.Channels {
		s.Channels[i].DailyLeads = 0
		s.Channels[i].UnresolvedLeads = 0
	}
	s.ModelA = HumanConfig{}
	s.ModelB = ModelBConfig{}
}

// Clone returns a deep copy so callers can mutate channels without aliasing.
func (s Scenario) Clone() Scenario {
	c := s
	c.Channels = append([]Channel(nil), s.Channels...)
	return c
}

// Channel returns a pointer to the channel with the given id, or nil.
func (s *Scenario) Channel(id string) *Channel {
	for i := range s.Channels {
		if s.Channels[i].ID == id {
			return &s.Channels[i]
		}
	}
	return nil
}
