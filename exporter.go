package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/markuslindenberg/cablemodem_exporter/docsis"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/log"
)

var channelLabelNames = []string{"channel", "channel_id"}

func newChannelMetric(subsystemName, metricName, docString string, extraLabels ...string) *prometheus.Desc {
	return prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemName, metricName), docString, append(append([]string{}, channelLabelNames...), extraLabels...), nil)
}

// channelMetric exposes one scalar of a channel, scaled from the unit used
// in docsis.ChannelModel.
type channelMetric struct {
	desc      *prometheus.Desc
	metric    docsis.Metric
	valueType prometheus.ValueType
	scale     float64
}

var (
	targetUpMetric     = prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "up"), "Was the last scrape of the cable modem successful.", nil, nil)
	systemUptimeMetric = prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "system_uptime_seconds"), "Cable modem system uptime.", nil, nil)

	downstreamModulationMetric = newChannelMetric("downstream", "modulation", "Downstream Modulation", "modulation")
	upstreamModulationMetric   = newChannelMetric("upstream", "modulation", "Upstream Modulation", "modulation")

	downstreamChannelMetrics = []channelMetric{
		{newChannelMetric("downstream", "locked", "Downstream Lock Status"), docsis.MetricLocked, prometheus.GaugeValue, 1},
		{newChannelMetric("downstream", "frequency_hz", "Downstream Frequency"), docsis.MetricFrequency, prometheus.GaugeValue, 1e6},
		{newChannelMetric("downstream", "power_dbmv", "Downstream Power Level"), docsis.MetricPower, prometheus.GaugeValue, 1},
		{newChannelMetric("downstream", "snr_db", "Downstream SNR"), docsis.MetricSNR, prometheus.GaugeValue, 1},
		{newChannelMetric("downstream", "codewords_corrected_total", "Downstream Corrected Codewords"), docsis.MetricCorrectedErrors, prometheus.CounterValue, 1},
		{newChannelMetric("downstream", "codewords_uncorrectable_total", "Downstream Uncorrectable Codewords"), docsis.MetricUncorrectedErrors, prometheus.CounterValue, 1},
	}

	upstreamChannelMetrics = []channelMetric{
		{newChannelMetric("upstream", "locked", "Upstream Lock Status"), docsis.MetricLocked, prometheus.GaugeValue, 1},
		{newChannelMetric("upstream", "frequency_hz", "Upstream Frequency"), docsis.MetricFrequency, prometheus.GaugeValue, 1e6},
		{newChannelMetric("upstream", "power_dbmv", "Upstream Power Level"), docsis.MetricPower, prometheus.GaugeValue, 1},
		{newChannelMetric("upstream", "symbol_rate_ksps", "Upstream Symbol Rate"), docsis.MetricSymbolRate, prometheus.GaugeValue, 1},
	}
)

// Fetcher returns the raw status response of a modem.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
	Format() docsis.Format
}

type Exporter struct {
	model   string
	fetcher Fetcher
	mutex   sync.RWMutex

	totalScrapes          prometheus.Counter
	parseFailures         *prometheus.CounterVec
	clientRequestCount    *prometheus.CounterVec
	clientRequestDuration *prometheus.HistogramVec
}

func NewExporter(cfg ModemConfig) (*Exporter, error) {
	clientRequestCount := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "exporter_client_requests_total",
		Help:      "HTTP requests to the cable modem",
	}, []string{"code", "method"})

	clientRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "exporter_client_request_duration_seconds",
		Help:      "Histogram of cable modem HTTP request latencies.",
	}, []string{"code", "method"})

	client, err := NewModemClient(cfg, clientRequestCount, clientRequestDuration)
	if err != nil {
		return nil, err
	}

	e := newExporter(cfg.Model, client)
	e.clientRequestCount = clientRequestCount
	e.clientRequestDuration = clientRequestDuration
	return e, nil
}

func newExporter(model string, fetcher Fetcher) *Exporter {
	return &Exporter{
		model:   model,
		fetcher: fetcher,
		totalScrapes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exporter_scrapes_total",
			Help:      "Current total cable modem scrapes.",
		}),
		parseFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exporter_parse_errors_total",
			Help:      "Number of errors while parsing modem responses.",
		}, []string{"model"}),
	}
}

func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range downstreamChannelMetrics {
		ch <- m.desc
	}
	for _, m := range upstreamChannelMetrics {
		ch <- m.desc
	}
	ch <- downstreamModulationMetric
	ch <- upstreamModulationMetric

	ch <- targetUpMetric
	ch <- systemUptimeMetric
	ch <- e.totalScrapes.Desc()
	e.parseFailures.Describe(ch)
	if e.clientRequestCount != nil {
		e.clientRequestCount.Describe(ch)
		e.clientRequestDuration.Describe(ch)
	}
}

func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	up := e.scrape(ch)
	ch <- prometheus.MustNewConstMetric(targetUpMetric, prometheus.GaugeValue, up)

	ch <- e.totalScrapes
	e.parseFailures.Collect(ch)
	if e.clientRequestCount != nil {
		e.clientRequestCount.Collect(ch)
		e.clientRequestDuration.Collect(ch)
	}
}

func (e *Exporter) scrape(ch chan<- prometheus.Metric) (up float64) {
	e.totalScrapes.Inc()

	body, err := e.fetcher.Fetch(context.Background())
	if err != nil {
		log.Errorln(err)
		return 0
	}

	model, err := docsis.Parse(e.fetcher.Format(), body)
	if err != nil {
		log.Errorln(err)
		e.parseFailures.WithLabelValues(e.model).Inc()
		return 0
	}

	ch <- prometheus.MustNewConstMetric(systemUptimeMetric, prometheus.GaugeValue, float64(model.SystemUptimeSeconds))

	for _, channel := range sortedChannels(model.Downstream) {
		c := model.Downstream[channel]
		labelValues := channelLabels(channel, c.ChannelID)
		collectChannel(ch, model, docsis.Downstream, channel, downstreamChannelMetrics, labelValues)
		if c.Modulation != "" {
			ch <- prometheus.MustNewConstMetric(downstreamModulationMetric, prometheus.GaugeValue, 1, append(labelValues, c.Modulation)...)
		}
	}

	for _, channel := range sortedChannels(model.Upstream) {
		c := model.Upstream[channel]
		labelValues := channelLabels(channel, c.ChannelID)
		collectChannel(ch, model, docsis.Upstream, channel, upstreamChannelMetrics, labelValues)
		if c.Modulation != "" {
			ch <- prometheus.MustNewConstMetric(upstreamModulationMetric, prometheus.GaugeValue, 1, append(labelValues, c.Modulation)...)
		}
	}

	return 1
}

func collectChannel(ch chan<- prometheus.Metric, model *docsis.ChannelModel, dir docsis.Direction, channel int, metrics []channelMetric, labelValues []string) {
	for _, m := range metrics {
		value, ok := model.Value(dir, m.metric, channel)
		if !ok {
			continue
		}
		ch <- prometheus.MustNewConstMetric(m.desc, m.valueType, value*m.scale, labelValues...)
	}
}

func channelLabels(channel, channelID int) []string {
	return []string{fmt.Sprintf("%02d", channel), strconv.Itoa(channelID)}
}

func sortedChannels[T any](channels map[int]T) []int {
	keys := make([]int, 0, len(channels))
	for k := range channels {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
