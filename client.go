package main

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/markuslindenberg/cablemodem_exporter/docsis"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/publicsuffix"
)

const hnapSOAPAction = `"http://purenetworks.com/HNAP1/GetMultipleHNAPs"`

var errAuthentication = errors.New("modem authentication failed")

// ModemClient fetches the raw status response of one modem.
type ModemClient struct {
	cfg    ModemConfig
	format docsis.Format
	client *http.Client
}

func NewModemClient(cfg ModemConfig, requestCount *prometheus.CounterVec, requestDuration *prometheus.HistogramVec) (*ModemClient, error) {
	format, err := docsis.FormatForModel(cfg.Model)
	if err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: cfg.Insecure} // #nosec G402 -- modems ship self-signed certificates

	client := &http.Client{
		Jar:     jar,
		Timeout: cfg.Timeout,
		Transport: promhttp.InstrumentRoundTripperCounter(requestCount,
			promhttp.InstrumentRoundTripperDuration(requestDuration, transport)),
		// The login endpoint answers with a redirect that must not be followed.
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &ModemClient{cfg: cfg, format: format, client: client}, nil
}

func (c *ModemClient) Format() docsis.Format {
	return c.format
}

func (c *ModemClient) baseURL() *url.URL {
	scheme := "https"
	if !c.cfg.SSL {
		scheme = "http"
	}
	return &url.URL{Scheme: scheme, Host: c.cfg.Host}
}

func (c *ModemClient) endpoint(p string) string {
	u := c.baseURL()
	u.Path = p
	return u.String()
}

// Fetch returns the raw status document for the configured model.
func (c *ModemClient) Fetch(ctx context.Context) ([]byte, error) {
	switch c.format {
	case docsis.FormatHNAP:
		return c.fetchHNAP(ctx)
	case docsis.FormatHTML:
		return c.fetchNetworkSetup(ctx)
	}
	return nil, fmt.Errorf("no fetcher for format %v", c.format)
}

func (c *ModemClient) fetchHNAP(ctx context.Context) ([]byte, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"GetMultipleHNAPs": map[string]string{
			"GetMotoStatusStartupSequence":       "",
			"GetMotoStatusConnectionInfo":        "",
			"GetMotoStatusDownstreamChannelInfo": "",
			"GetMotoStatusUpstreamChannelInfo":   "",
			"GetMotoLagStatus":                   "",
		},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/HNAP1"), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("SOAPACTION", hnapSOAPAction)
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

func (c *ModemClient) fetchNetworkSetup(ctx context.Context) ([]byte, error) {
	if c.cfg.Username == "" || c.cfg.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required for %s", errAuthentication, c.cfg.Model)
	}

	form := url.Values{}
	form.Set("username", c.cfg.Username)
	form.Set("password", c.cfg.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/check.jst"), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMovedPermanently && resp.StatusCode != http.StatusFound {
		return nil, fmt.Errorf("%w: login returned HTTP status %d", errAuthentication, resp.StatusCode)
	}
	if len(resp.Cookies()) == 0 {
		return nil, fmt.Errorf("%w: no session cookie received", errAuthentication)
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/network_setup.jst"), nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *ModemClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !(resp.StatusCode >= 200 && resp.StatusCode < 300) {
		return nil, fmt.Errorf("Scraping %s failed: HTTP status %d", req.URL.String(), resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
