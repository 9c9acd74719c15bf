package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/markuslindenberg/cablemodem_exporter/docsis"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

type staticFetcher struct {
	body   []byte
	format docsis.Format
	err    error
}

func (f *staticFetcher) Fetch(ctx context.Context) ([]byte, error) {
	return f.body, f.err
}

func (f *staticFetcher) Format() docsis.Format {
	return f.format
}

func TestExporter_CollectHNAP(t *testing.T) {
	exporter := newExporter("MB8600", &staticFetcher{body: loadTestData(t, "mb8600.json"), format: docsis.FormatHNAP})

	expected := `
# HELP cablemodem_up Was the last scrape of the cable modem successful.
# TYPE cablemodem_up gauge
cablemodem_up 1
# HELP cablemodem_system_uptime_seconds Cable modem system uptime.
# TYPE cablemodem_system_uptime_seconds gauge
cablemodem_system_uptime_seconds 1048455
# HELP cablemodem_upstream_symbol_rate_ksps Upstream Symbol Rate
# TYPE cablemodem_upstream_symbol_rate_ksps gauge
cablemodem_upstream_symbol_rate_ksps{channel="01",channel_id="1"} 5120
cablemodem_upstream_symbol_rate_ksps{channel="02",channel_id="2"} 5120
# HELP cablemodem_downstream_codewords_uncorrectable_total Downstream Uncorrectable Codewords
# TYPE cablemodem_downstream_codewords_uncorrectable_total counter
cablemodem_downstream_codewords_uncorrectable_total{channel="01",channel_id="20"} 0
cablemodem_downstream_codewords_uncorrectable_total{channel="02",channel_id="1"} 1
cablemodem_downstream_codewords_uncorrectable_total{channel="03",channel_id="33"} 37
# HELP cablemodem_downstream_frequency_hz Downstream Frequency
# TYPE cablemodem_downstream_frequency_hz gauge
cablemodem_downstream_frequency_hz{channel="01",channel_id="20"} 4.83e+08
cablemodem_downstream_frequency_hz{channel="02",channel_id="1"} 3.57e+08
cablemodem_downstream_frequency_hz{channel="03",channel_id="33"} 6.9e+08
`
	err := testutil.CollectAndCompare(exporter, strings.NewReader(expected),
		"cablemodem_up",
		"cablemodem_system_uptime_seconds",
		"cablemodem_upstream_symbol_rate_ksps",
		"cablemodem_downstream_codewords_uncorrectable_total",
		"cablemodem_downstream_frequency_hz",
	)
	assert.NoError(t, err)
}

func TestExporter_CollectHTML(t *testing.T) {
	exporter := newExporter("CGM4331COM", &staticFetcher{body: loadTestData(t, "cgm4331com.html"), format: docsis.FormatHTML})

	expected := `
# HELP cablemodem_downstream_locked Downstream Lock Status
# TYPE cablemodem_downstream_locked gauge
cablemodem_downstream_locked{channel="01",channel_id="13"} 1
cablemodem_downstream_locked{channel="02",channel_id="14"} 1
cablemodem_downstream_locked{channel="03",channel_id="15"} 0
# HELP cablemodem_upstream_modulation Upstream Modulation
# TYPE cablemodem_upstream_modulation gauge
cablemodem_upstream_modulation{channel="01",channel_id="1",modulation="QAM"} 1
cablemodem_upstream_modulation{channel="02",channel_id="2",modulation="QAM"} 1
`
	err := testutil.CollectAndCompare(exporter, strings.NewReader(expected),
		"cablemodem_downstream_locked",
		"cablemodem_upstream_modulation",
	)
	assert.NoError(t, err)
}

func TestExporter_FetchFailure(t *testing.T) {
	exporter := newExporter("MB8600", &staticFetcher{err: errors.New("connection refused"), format: docsis.FormatHNAP})

	expected := `
# HELP cablemodem_up Was the last scrape of the cable modem successful.
# TYPE cablemodem_up gauge
cablemodem_up 0
# HELP cablemodem_exporter_scrapes_total Current total cable modem scrapes.
# TYPE cablemodem_exporter_scrapes_total counter
cablemodem_exporter_scrapes_total 1
`
	err := testutil.CollectAndCompare(exporter, strings.NewReader(expected),
		"cablemodem_up",
		"cablemodem_exporter_scrapes_total",
		"cablemodem_system_uptime_seconds",
	)
	assert.NoError(t, err)
}

func TestExporter_ParseFailure(t *testing.T) {
	exporter := newExporter("MB8600", &staticFetcher{body: []byte(`{"GetMultipleHNAPsResponse": {}}`), format: docsis.FormatHNAP})

	expected := `
# HELP cablemodem_up Was the last scrape of the cable modem successful.
# TYPE cablemodem_up gauge
cablemodem_up 0
# HELP cablemodem_exporter_parse_errors_total Number of errors while parsing modem responses.
# TYPE cablemodem_exporter_parse_errors_total counter
cablemodem_exporter_parse_errors_total{model="MB8600"} 1
`
	err := testutil.CollectAndCompare(exporter, strings.NewReader(expected),
		"cablemodem_up",
		"cablemodem_exporter_parse_errors_total",
		"cablemodem_downstream_locked",
	)
	assert.NoError(t, err)
}

func TestNewExporter_UnsupportedModel(t *testing.T) {
	_, err := NewExporter(ModemConfig{Model: "TC4400"})
	assert.Error(t, err)
}
