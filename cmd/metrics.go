package cmd

import (
	"net/http"

	"github.com/armon/go-metrics"
	"github.com/armon/go-metrics/prometheus"
	"github.com/davecgh/go-spew/spew"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// InitializeMetrics wires the global metrics sink. With a metricsAddr a
// prometheus endpoint is served at /metrics; without one, counters go to a
// blackhole sink.
func InitializeMetrics(serviceName, metricsAddr string) error {
	var sink metrics.MetricSink = nil
	var err error = nil
	if metricsAddr != "" {
		sink, err = prometheus.NewPrometheusSink()
		if err != nil {
			return err
		}
	} else {
		sink = &metrics.BlackholeSink{}
	}

	m, err := metrics.NewGlobal(metrics.DefaultConfig(serviceName), sink)
	if err != nil {
		return err
	}
	m.EnableHostname = false
	spew.Dump(m)

	if metricsAddr != "" {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(metricsAddr, nil); err != nil {
				log.Fatalf("Unable to start prometheus server err = %v", err)
			}
		}()
	}
	return nil
}
