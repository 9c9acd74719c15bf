package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/markuslindenberg/cablemodem_exporter/docsis"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestData(t *testing.T, filename string) []byte {
	data, err := os.ReadFile("docsis/testdata/" + filename)
	require.NoError(t, err, "failed to load test data: %s", filename)
	return data
}

func newTestClient(t *testing.T, srv *httptest.Server, cfg ModemConfig) *ModemClient {
	cfg.SSL = strings.HasPrefix(srv.URL, "https://")
	cfg.Host = strings.TrimPrefix(strings.TrimPrefix(srv.URL, "https://"), "http://")
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}

	requestCount := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "requests_total"}, []string{"code", "method"})
	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "request_duration_seconds"}, []string{"code", "method"})

	client, err := NewModemClient(cfg, requestCount, requestDuration)
	require.NoError(t, err)
	return client
}

func hnapHandler(t *testing.T, body []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/HNAP1", r.URL.Path)
		assert.Equal(t, hnapSOAPAction, r.Header.Get("SOAPACTION"))

		var payload map[string]map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Contains(t, payload["GetMultipleHNAPs"], "GetMotoStatusDownstreamChannelInfo")
		assert.Contains(t, payload["GetMultipleHNAPs"], "GetMotoStatusUpstreamChannelInfo")
		assert.Contains(t, payload["GetMultipleHNAPs"], "GetMotoStatusConnectionInfo")

		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}
}

func TestModemClient_FetchHNAP(t *testing.T) {
	fixture := loadTestData(t, "mb8600.json")
	srv := httptest.NewServer(hnapHandler(t, fixture))
	defer srv.Close()

	client := newTestClient(t, srv, ModemConfig{Model: "MB8600"})
	assert.Equal(t, docsis.FormatHNAP, client.Format())

	body, err := client.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fixture, body)
}

func TestModemClient_FetchHNAP_TLS(t *testing.T) {
	fixture := loadTestData(t, "mb8600.json")
	srv := httptest.NewTLSServer(hnapHandler(t, fixture))
	defer srv.Close()

	client := newTestClient(t, srv, ModemConfig{Model: "MB8600", Insecure: true})
	body, err := client.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fixture, body)
}

func TestModemClient_FetchHNAP_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := newTestClient(t, srv, ModemConfig{Model: "MB8600"})
	_, err := client.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP status 503")
}

func networkSetupServer(t *testing.T, loginStatus int, setCookie bool, page []byte) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/check.jst", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "admin", r.PostForm.Get("username"))
		assert.Equal(t, "secret", r.PostForm.Get("password"))

		if setCookie {
			http.SetCookie(w, &http.Cookie{Name: "DUKSID", Value: "session-1", Path: "/"})
		}
		if loginStatus == http.StatusFound {
			w.Header().Set("Location", "/at_a_glance.jst")
		}
		w.WriteHeader(loginStatus)
	})
	mux.HandleFunc("/at_a_glance.jst", func(w http.ResponseWriter, r *http.Request) {
		t.Error("login redirect must not be followed")
	})
	mux.HandleFunc("/network_setup.jst", func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("DUKSID")
		if err != nil || cookie.Value != "session-1" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write(page)
	})
	return httptest.NewServer(mux)
}

func TestModemClient_FetchNetworkSetup(t *testing.T) {
	page := loadTestData(t, "cgm4331com.html")
	srv := networkSetupServer(t, http.StatusFound, true, page)
	defer srv.Close()

	client := newTestClient(t, srv, ModemConfig{Model: "CGM4331COM", Username: "admin", Password: "secret"})
	assert.Equal(t, docsis.FormatHTML, client.Format())

	body, err := client.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, page, body)
}

func TestModemClient_FetchNetworkSetup_LoginRejected(t *testing.T) {
	srv := networkSetupServer(t, http.StatusOK, true, nil)
	defer srv.Close()

	client := newTestClient(t, srv, ModemConfig{Model: "CGM4981COM", Username: "admin", Password: "secret"})
	_, err := client.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errAuthentication))
}

func TestModemClient_FetchNetworkSetup_NoCookie(t *testing.T) {
	srv := networkSetupServer(t, http.StatusFound, false, nil)
	defer srv.Close()

	client := newTestClient(t, srv, ModemConfig{Model: "CGM4331COM", Username: "admin", Password: "secret"})
	_, err := client.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errAuthentication))
}

func TestModemClient_FetchNetworkSetup_MissingCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		t.Error("no request expected without credentials")
	}))
	defer srv.Close()

	client := newTestClient(t, srv, ModemConfig{Model: "CGM4331COM"})
	_, err := client.Fetch(context.Background())
	assert.True(t, errors.Is(err, errAuthentication))
}

func TestNewModemClient_UnsupportedModel(t *testing.T) {
	requestCount := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "requests_total"}, []string{"code", "method"})
	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "request_duration_seconds"}, []string{"code", "method"})

	_, err := NewModemClient(ModemConfig{Model: "TC4400"}, requestCount, requestDuration)
	assert.Error(t, err)
}
