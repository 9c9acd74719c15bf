package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/log"
	"github.com/prometheus/common/version"
	"gopkg.in/alecthomas/kingpin.v2"
)

const (
	exporterName = "cablemodem_exporter"
	namespace    = "cablemodem"
)

func main() {
	var (
		listenAddress = kingpin.Flag("web.listen-address", "Address to listen on for web interface and telemetry.").Default(":9624").OverrideDefaultFromEnvar("CABLEMODEM_EXPORTER_PORT").String()
		metricsPath   = kingpin.Flag("web.telemetry-path", "Path under which to expose metrics.").Default("/metrics").String()
		configFile    = kingpin.Flag("config.file", "Optional YAML file with modem settings; overrides the modem flags.").OverrideDefaultFromEnvar("CABLEMODEM_EXPORTER_CONFIG").String()
		modemHost     = kingpin.Flag("modem.host", "Host name or address of the cable modem.").Default("192.168.100.1").OverrideDefaultFromEnvar("CABLEMODEM_EXPORTER_HOST").String()
		modemModel    = kingpin.Flag("modem.model", "Cable modem model (MB8600, CGM4331COM, CGM4981COM).").Default("MB8600").OverrideDefaultFromEnvar("CABLEMODEM_EXPORTER_MODEL").String()
		modemUsername = kingpin.Flag("modem.username", "Username for the modem web interface.").OverrideDefaultFromEnvar("CABLEMODEM_EXPORTER_USERNAME").String()
		modemPassword = kingpin.Flag("modem.password", "Password for the modem web interface.").OverrideDefaultFromEnvar("CABLEMODEM_EXPORTER_PASSWORD").String()
		modemSSL      = kingpin.Flag("modem.ssl", "Use HTTPS to talk to the modem.").Default("true").OverrideDefaultFromEnvar("CABLEMODEM_EXPORTER_SSL").Bool()
		modemInsecure = kingpin.Flag("modem.insecure", "Skip TLS certificate verification.").Default("true").OverrideDefaultFromEnvar("CABLEMODEM_EXPORTER_INSECURE").Bool()
		modemTimeout  = kingpin.Flag("modem.timeout", "Timeout for HTTP requests to the modem.").Default("10s").OverrideDefaultFromEnvar("CABLEMODEM_EXPORTER_TIMEOUT").Duration()
	)

	log.AddFlags(kingpin.CommandLine)
	kingpin.Version(version.Print(exporterName))
	kingpin.HelpFlag.Short('h')
	kingpin.Parse()

	log.Infoln("Starting", exporterName, version.Info())
	log.Infoln("Build context", version.BuildContext())

	cfg := &Config{Modem: ModemConfig{
		Host:     *modemHost,
		Model:    *modemModel,
		Username: *modemUsername,
		Password: *modemPassword,
		SSL:      *modemSSL,
		Insecure: *modemInsecure,
		Timeout:  *modemTimeout,
	}}
	if *configFile != "" {
		if err := LoadConfig(*configFile, cfg); err != nil {
			log.Fatal(err)
		}
	} else if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	exporter, err := NewExporter(cfg.Modem)
	if err != nil {
		log.Fatal(err)
	}
	prometheus.MustRegister(exporter)
	prometheus.MustRegister(version.NewCollector(exporterName))

	log.Infof("Scraping %s at %s", cfg.Modem.Model, cfg.Modem.Host)
	log.Infoln("Listening on", *listenAddress)
	http.Handle(*metricsPath, promhttp.Handler())
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>
             <head><title>Cable Modem Exporter</title></head>
             <body>
             <h1>Cable Modem Exporter</h1>
             <p><a href='` + *metricsPath + `'>Metrics</a></p>
             </body>
             </html>`))
	})
	log.Fatal(http.ListenAndServe(*listenAddress, nil))
}
