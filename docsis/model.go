package docsis

import (
	"errors"
	"strings"
)

// ErrMalformedResponse is returned when a modem reply is structurally
// unusable. It is always wrapped with context; test for it with errors.Is.
var ErrMalformedResponse = errors.New("malformed modem response")

// ChannelModel is the normalized result of parsing one modem response.
// Channel maps are keyed by the 1-based position of the channel in the
// source, which is independent of the channel id reported by the modem.
type ChannelModel struct {
	Downstream          map[int]DownstreamChannel
	Upstream            map[int]UpstreamChannel
	SystemUptimeSeconds int64
}

type DownstreamChannel struct {
	Channel           int
	LockStatus        string
	Modulation        string
	ChannelID         int
	FrequencyMHz      float64
	PowerDB           float64
	SNRDB             float64
	CorrectedErrors   uint64
	UncorrectedErrors uint64
}

type UpstreamChannel struct {
	Channel        int
	LockStatus     string
	Modulation     string
	ChannelID      int
	SymbolRateKsps int
	FrequencyMHz   float64
	PowerDB        float64
}

func newChannelModel() *ChannelModel {
	return &ChannelModel{
		Downstream: map[int]DownstreamChannel{},
		Upstream:   map[int]UpstreamChannel{},
	}
}

type Direction int

const (
	Downstream Direction = iota
	Upstream
)

func (d Direction) String() string {
	switch d {
	case Downstream:
		return "downstream"
	case Upstream:
		return "upstream"
	}
	return "unknown"
}

// Metric names a scalar that can be queried from a channel.
type Metric string

const (
	MetricChannelID         Metric = "channel_id"
	MetricLocked            Metric = "locked"
	MetricFrequency         Metric = "frequency"
	MetricPower             Metric = "power"
	MetricSNR               Metric = "snr"
	MetricCorrectedErrors   Metric = "corrected_errors"
	MetricUncorrectedErrors Metric = "uncorrected_errors"
	MetricSymbolRate        Metric = "symbol_rate"
)

// Value returns a single scalar for the given direction, metric and channel
// position. The boolean is false when the channel does not exist or the
// metric is not carried by that direction; a missing channel is not an error.
func (m *ChannelModel) Value(dir Direction, metric Metric, channel int) (float64, bool) {
	if m == nil {
		return 0, false
	}
	switch dir {
	case Downstream:
		c, ok := m.Downstream[channel]
		if !ok {
			return 0, false
		}
		return c.value(metric)
	case Upstream:
		c, ok := m.Upstream[channel]
		if !ok {
			return 0, false
		}
		return c.value(metric)
	}
	return 0, false
}

func (c DownstreamChannel) value(metric Metric) (float64, bool) {
	switch metric {
	case MetricChannelID:
		return float64(c.ChannelID), true
	case MetricLocked:
		return lockedValue(c.LockStatus), true
	case MetricFrequency:
		return c.FrequencyMHz, true
	case MetricPower:
		return c.PowerDB, true
	case MetricSNR:
		return c.SNRDB, true
	case MetricCorrectedErrors:
		return float64(c.CorrectedErrors), true
	case MetricUncorrectedErrors:
		return float64(c.UncorrectedErrors), true
	}
	return 0, false
}

func (c UpstreamChannel) value(metric Metric) (float64, bool) {
	switch metric {
	case MetricChannelID:
		return float64(c.ChannelID), true
	case MetricLocked:
		return lockedValue(c.LockStatus), true
	case MetricFrequency:
		return c.FrequencyMHz, true
	case MetricPower:
		return c.PowerDB, true
	case MetricSymbolRate:
		return float64(c.SymbolRateKsps), true
	}
	return 0, false
}

func lockedValue(status string) float64 {
	if strings.EqualFold(status, "Locked") {
		return 1
	}
	return 0
}
